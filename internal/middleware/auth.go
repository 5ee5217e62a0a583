package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"Tweeter/internal/pkg"
	"Tweeter/internal/service"
)

const ContextUserIDKey = "user_id"

// Auth 必须登录：校验 access token，并确认它是 redis 里记录的当前会话
func Auth(tokens *pkg.TokenManager, sessions service.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "missing authorization header"})
			return
		}
		tokenStr, ok := bearer(authHeader)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "invalid authorization format"})
			return
		}
		userID, status, msg := check(c, tokens, sessions, tokenStr)
		if status != 0 {
			c.AbortWithStatusJSON(status, gin.H{"msg": msg})
			return
		}
		// 注入 user_id
		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}

// OptionalAuth 可选登录：token 有效时注入 user_id，否则按未登录继续
func OptionalAuth(tokens *pkg.TokenManager, sessions service.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenStr, ok := bearer(c.GetHeader("Authorization")); ok {
			if userID, status, _ := check(c, tokens, sessions, tokenStr); status == 0 {
				c.Set(ContextUserIDKey, userID)
			}
		}
		c.Next()
	}
}

func bearer(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func check(c *gin.Context, tokens *pkg.TokenManager, sessions service.SessionStore, tokenStr string) (uint64, int, string) {
	claims, err := tokens.ParseAccess(tokenStr)
	if err != nil {
		return 0, http.StatusUnauthorized, "invalid or expired token"
	}
	ctx := c.Request.Context()
	// redis校验是否是当前会话的token
	current, err := sessions.GetUserToken(ctx, claims.UserID)
	if err != nil || current != tokenStr {
		return 0, http.StatusUnauthorized, "account has been logged in elsewhere"
	}
	// 校验通过后更新过期时间
	if err = sessions.ExtendUserToken(ctx, claims.UserID); err != nil {
		return 0, http.StatusInternalServerError, err.Error()
	}
	return claims.UserID, 0, ""
}

// UserID 取出 Auth 注入的用户 id，未登录为 0
func UserID(c *gin.Context) uint64 {
	if v, ok := c.Get(ContextUserIDKey); ok {
		if id, ok2 := v.(uint64); ok2 {
			return id
		}
	}
	return 0
}
