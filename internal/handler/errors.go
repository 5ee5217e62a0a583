package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"Tweeter/internal/pkg"
	"Tweeter/internal/service"
)

// writeError 把业务错误翻译成状态码
func writeError(c *gin.Context, err error) {
	var fe *service.FieldError
	switch {
	case errors.As(err, &fe):
		status := http.StatusBadRequest
		if errors.Is(err, service.ErrDuplicate) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"msg": err.Error(), "field": fe.Field})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"msg": err.Error()})
	case errors.Is(err, service.ErrSelfReference),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidCode):
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
	case errors.Is(err, service.ErrDuplicate),
		errors.Is(err, service.ErrAlreadyVerified),
		errors.Is(err, service.ErrConstraintViolation):
		c.JSON(http.StatusConflict, gin.H{"msg": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, pkg.ErrRefreshExpired),
		errors.Is(err, pkg.ErrRefreshInvalid):
		c.JSON(http.StatusUnauthorized, gin.H{"msg": err.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "internal error"})
	}
}

func idParam(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid " + name})
		return 0, false
	}
	return id, true
}
