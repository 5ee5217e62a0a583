package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"Tweeter/internal/middleware"
	"Tweeter/internal/service"
)

// EmailHandler 当前登录用户的邮箱验证
type EmailHandler struct {
	svc *service.VerifyService
}

type VerifyReq struct {
	Code string `json:"code" binding:"required,len=6,numeric"`
}

func NewEmailHandler(svc *service.VerifyService) *EmailHandler {
	return &EmailHandler{svc: svc}
}

func (h *EmailHandler) SendCode(c *gin.Context) {
	if err := h.svc.SendCode(c.Request.Context(), middleware.UserID(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "send code successfully"})
}

// VerifyCode 校验验证码，成功后账号标记为已验证
func (h *EmailHandler) VerifyCode(c *gin.Context) {
	var req VerifyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	if err := h.svc.Verify(c.Request.Context(), middleware.UserID(c), req.Code); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "verify successfully"})
}
