package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"Tweeter/internal/middleware"
	"Tweeter/internal/service"
)

type FollowHandler struct {
	svc *service.FollowService
}

func NewFollowHandler(svc *service.FollowService) *FollowHandler {
	return &FollowHandler{svc: svc}
}

// Follow 关注 :id
func (h *FollowHandler) Follow(c *gin.Context) {
	target, ok := idParam(c, "id")
	if !ok {
		return
	}
	user, changed, err := h.svc.Follow(c.Request.Context(), middleware.UserID(c), target)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "you are following " + user.Username, "changed": changed})
}

// Unfollow 取消关注 :id
func (h *FollowHandler) Unfollow(c *gin.Context) {
	target, ok := idParam(c, "id")
	if !ok {
		return
	}
	user, changed, err := h.svc.Unfollow(c.Request.Context(), middleware.UserID(c), target)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "you are not following " + user.Username, "changed": changed})
}

// ListFollowings 当前用户的关注列表（游标分页）
func (h *FollowHandler) ListFollowings(c *gin.Context) {
	cursor, _ := strconv.ParseUint(c.Query("cursor"), 10, 64)
	limit, _ := strconv.Atoi(c.Query("limit"))
	rows, next, err := h.svc.ListFollowings(c.Request.Context(), middleware.UserID(c), cursor, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": rows, "next_cursor": next})
}

// ListFollowers 当前用户的粉丝列表（游标分页）
func (h *FollowHandler) ListFollowers(c *gin.Context) {
	cursor, _ := strconv.ParseUint(c.Query("cursor"), 10, 64)
	limit, _ := strconv.Atoi(c.Query("limit"))
	rows, next, err := h.svc.ListFollowers(c.Request.Context(), middleware.UserID(c), cursor, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": rows, "next_cursor": next})
}

// Relation 当前用户是否关注了 to
func (h *FollowHandler) Relation(c *gin.Context) {
	to, err := strconv.ParseUint(c.Query("to"), 10, 64)
	if err != nil || to == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid to"})
		return
	}
	ok, err := h.svc.IsFollowing(c.Request.Context(), middleware.UserID(c), to)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": ok})
}
