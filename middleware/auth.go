package middleware

import (
	"net/http"
	"strings"

	"servly/models"
	"servly/utils"

	"github.com/gin-gonic/gin"
)

const actorContextKey = "actor"

// AuthMiddleware resolves the session token into an authenticated
// actor. The core trusts the identity collaborator's claims on every
// command; actor identity is never read from a request body.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Insufficient authorization",
			})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		id, role, err := utils.ExtractActorFromToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			return
		}
		switch role {
		case models.RoleCustomer, models.RoleProvider, models.RoleAdmin:
		default:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Unrecognized actor role",
			})
			return
		}

		c.Set(actorContextKey, models.Actor{ID: id, Role: role})
		c.Next()
	}
}

// GetActor returns the authenticated actor set by AuthMiddleware.
func GetActor(c *gin.Context) (models.Actor, bool) {
	v, ok := c.Get(actorContextKey)
	if !ok {
		return models.Actor{}, false
	}
	actor, ok := v.(models.Actor)
	return actor, ok
}
