package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/jaggery/internal/service/access"
)

// RoleHeader carries the caller's role.
const RoleHeader = "X-User-Role"

const roleKey = "role"

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("role", c.GetString(roleKey)))
	}
}

// requireRole resolves the role header and rejects unknown callers.
func requireRole(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, err := access.ParseRole(c.GetHeader(RoleHeader))
		if err != nil {
			logger.Debug("rejected request without a known role", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "a valid " + RoleHeader + " header is required"})
			return
		}
		c.Set(roleKey, string(role))
		c.Next()
	}
}

// requirePerm lets the request through only when the role holds every perm.
func requirePerm(perms ...access.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := access.Role(c.GetString(roleKey))
		if !access.Can(role, perms...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "permission denied"})
			return
		}
		c.Next()
	}
}
