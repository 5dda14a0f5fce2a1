package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/KHABI-TEQ/console-admin/internal/auth"
	"github.com/KHABI-TEQ/console-admin/internal/config"
)

const (
	// ContextKeyAdminID holds the key for the authenticated admin's ID.
	ContextKeyAdminID = "adminID"
	// ContextKeySuperAdmin holds the key for the super-admin flag.
	ContextKeySuperAdmin = "superAdmin"
)

// AuthMiddleware authenticates console requests. It accepts the JWT either
// as a Bearer token or in the session cookie set at login, so both the SPA
// and scripted API clients work.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""

		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
				return
			}
			tokenString = parts[1]
		} else if cookie, err := c.Cookie(cfg.SessionCookie); err == nil {
			tokenString = cookie
		}

		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		claims, err := auth.ValidateJWT(tokenString, cfg.JwtSecret)
		if err != nil {
			errMsg := fmt.Sprintf("Invalid or expired token: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errMsg})
			return
		}

		c.Set(ContextKeyAdminID, claims.AdminID)
		c.Set(ContextKeySuperAdmin, claims.SuperAdmin)

		c.Next()
	}
}

// SuperAdminMiddleware restricts a route group to super admins. Assumes
// AuthMiddleware runs first.
func SuperAdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		superAdmin, exists := c.Get(ContextKeySuperAdmin)
		if !exists || !superAdmin.(bool) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Super administrator privileges required"})
			return
		}
		c.Next()
	}
}
