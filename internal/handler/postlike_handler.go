package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"Tweeter/internal/middleware"
	"Tweeter/internal/service"
)

type PostLikeHandler struct {
	svc *service.PostLikeService
}

func NewPostLikeHandler(svc *service.PostLikeService) *PostLikeHandler {
	return &PostLikeHandler{svc: svc}
}

// Toggle 点赞/取消点赞
func (h *PostLikeHandler) Toggle(c *gin.Context) {
	pid, ok := idParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	liked, err := h.svc.ToggleLike(ctx, middleware.UserID(c), pid)
	if err != nil {
		writeError(c, err)
		return
	}
	count, err := h.svc.LikeCount(ctx, pid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": liked, "like_count": count})
}

// Likers 点赞过该帖子的用户
func (h *PostLikeHandler) Likers(c *gin.Context) {
	pid, ok := idParam(c, "id")
	if !ok {
		return
	}
	users, err := h.svc.Likers(c.Request.Context(), pid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": users})
}
