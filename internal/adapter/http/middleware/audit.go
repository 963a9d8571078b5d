package middleware

import (
	"vtu-backend/internal/core/domain"

	"github.com/gin-gonic/gin"
)

// ClientContext stores the caller's IP in the request context so audit
// records written deeper in the stack carry it.
func ClientContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := domain.WithClientIP(c.Request.Context(), c.ClientIP())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
