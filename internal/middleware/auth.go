// internal/middleware/auth.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ludora/ludora-backend/internal/utils"
)

// AuthRequired validates the bearer token and stores the caller's identity
// in context.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			utils.UnauthorizedResponse(c, "")
			c.Abort()
			return
		}

		claims, err := utils.ValidateJWT(token)
		if err != nil {
			utils.UnauthorizedResponse(c, "")
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("username", claims.Username)
		c.Set("user_type", claims.UserType)
		c.Next()
	}
}

// OptionalAuth stores identity when a valid token is present but never
// rejects the request. Public reads use it so access decisions can be
// computed for logged-in callers.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token != "" {
			if claims, err := utils.ValidateJWT(token); err == nil {
				c.Set("user_id", claims.UserID)
				c.Set("username", claims.Username)
				c.Set("user_type", claims.UserType)
			}
		}
		c.Next()
	}
}

func RequireUserType(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userType, ok := utils.GetUserTypeFromContext(c)
		if !ok {
			utils.UnauthorizedResponse(c, "")
			c.Abort()
			return
		}

		for _, t := range allowed {
			if userType == t {
				c.Next()
				return
			}
		}

		utils.ForbiddenResponse(c, "")
		c.Abort()
	}
}

func AdminRequired() gin.HandlerFunc {
	return RequireUserType("admin")
}

func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
