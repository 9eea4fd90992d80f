package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"queuepanel/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware bearer token authentication. An empty apiKey disables it.
func AuthMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}

		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			logger.WarnCtx(c.Request.Context(), "unauthorized request, invalid API key, path: %s", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Next()
	}
}
