package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dimz119/project-saeum/common/auth"

	"github.com/gin-gonic/gin"
)

const (
	UserContextKey = "userID"
	RoleContextKey = "userRole"

	RoleAdmin = "admin"

	accessTokenCookie = "access_token"
)

// AuthConfig selects where identities are accepted from. Gateway headers are
// only honoured behind a gateway that strips them from client requests.
type AuthConfig struct {
	JWTSecret           []byte
	TrustGatewayHeaders bool
}

// AuthMiddleware resolves the caller from X-User-ID/X-User-Role set by the
// gateway, or from an access token in the Authorization header or cookie.
func AuthMiddleware(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.TrustGatewayHeaders {
			if userID := c.GetHeader("X-User-ID"); userID != "" {
				c.Set(UserContextKey, userID)
				c.Set(RoleContextKey, c.GetHeader("X-User-Role"))
				c.Next()
				return
			}
		}

		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		claims, err := auth.ParseAccessToken(token, cfg.JWTSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(UserContextKey, claims.UserID)
		c.Set(RoleContextKey, claims.Role)
		c.Next()
	}
}

// AdminOnly must run after AuthMiddleware.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next()
	}
}

func GetUserID(c *gin.Context) (string, error) {
	if val, ok := c.Get(UserContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id, nil
		}
	}
	return "", errors.New("user ID not found in context")
}

func IsAdmin(c *gin.Context) bool {
	return strings.EqualFold(c.GetString(RoleContextKey), RoleAdmin)
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	if cookie, err := c.Cookie(accessTokenCookie); err == nil {
		return cookie
	}
	return ""
}
