package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"Tweeter/internal/middleware"
	"Tweeter/internal/service"
)

type FeedHandler struct {
	feed   *service.FeedService
	search *service.SearchService
}

func NewFeedHandler(feed *service.FeedService, search *service.SearchService) *FeedHandler {
	return &FeedHandler{feed: feed, search: search}
}

// Home 全站帖子 + 关注推荐，未登录也可访问
func (h *FeedHandler) Home(c *gin.Context) {
	feed, err := h.feed.Home(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, feedResponse(feed))
}

// Following 只看关注的人
func (h *FeedHandler) Following(c *gin.Context) {
	feed, err := h.feed.FollowingHome(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, feedResponse(feed))
}

// Search ?q= 按内容和用户名搜索
func (h *FeedHandler) Search(c *gin.Context) {
	posts, err := h.search.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

func feedResponse(f *service.Feed) gin.H {
	liked := make([]uint64, 0, len(f.Liked))
	for _, p := range f.Posts {
		if f.Liked[p.ID] {
			liked = append(liked, p.ID)
		}
	}
	return gin.H{"posts": f.Posts, "liked": liked, "suggestions": f.Suggestions}
}
