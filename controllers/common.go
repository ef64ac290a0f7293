package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/flowvahq/rewards/middleware"
)

// getUserID extracts the authenticated user id placed in context by AuthRequired.
func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		return uint(v), true
	case int64:
		return uint(v), true
	case float64:
		return uint(v), true
	default:
		return 0, false
	}
}
