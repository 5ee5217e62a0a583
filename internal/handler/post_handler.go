package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"Tweeter/internal/middleware"
	"Tweeter/internal/service"
)

type PostHandler struct {
	svc   *service.PostService
	likes *service.PostLikeService
}

type CreatePostReq struct {
	Content string `json:"content" binding:"required"`
}

func NewPostHandler(svc *service.PostService, likes *service.PostLikeService) *PostHandler {
	return &PostHandler{svc: svc, likes: likes}
}

// CreatePost 发帖接口
func (h *PostHandler) CreatePost(c *gin.Context) {
	var req CreatePostReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	post, err := h.svc.CreatePost(c.Request.Context(), middleware.UserID(c), req.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"msg": "your post is now live", "post": post})
}

// GetPost 帖子详情，登录时带上是否已点赞
func (h *PostHandler) GetPost(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	post, err := h.svc.GetPost(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	count, err := h.likes.LikeCount(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := gin.H{"post": post, "like_count": count}
	if uid := middleware.UserID(c); uid != 0 {
		liked, err := h.likes.IsLiked(ctx, uid, id)
		if err != nil {
			writeError(c, err)
			return
		}
		resp["liked"] = liked
	}
	c.JSON(http.StatusOK, resp)
}
