package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/6231368521/VacQ/internal/models"
	"github.com/6231368521/VacQ/internal/utils"
)

// Keys under which the authenticated caller is stored in the gin context.
const (
	ContextUserID   = "userID"
	ContextUserRole = "userRole"
)

// Protect rejects requests without a valid bearer token and stores the
// caller's id and role in the request context.
func Protect() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "msg": "Not authorized to access this route"})
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := utils.ValidateJWT(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "msg": "Not authorized to access this route"})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserRole, claims.Role)
		c.Next()
	}
}

// RequireAdmin gates a route to admin callers. Must run after Protect.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get(ContextUserRole)
		if r, ok := role.(models.Role); !ok || !r.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "msg": "User role is not authorized to access this route"})
			return
		}
		c.Next()
	}
}
