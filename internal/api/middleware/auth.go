package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/plentyofmemes/memepipe/internal/domain"
)

// actorKey is the Gin context key holding the request actor capability.
const actorKey = "actor"

// Actor returns a middleware that resolves the caller's capability. A valid
// admin bearer token yields an admin actor; everything else is public.
// Parameters:
//   - adminToken: shared secret for administrator access; empty disables
//     admin resolution entirely.
// Returns:
//   - gin.HandlerFunc: middleware handler.
func Actor(adminToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := domain.Actor{Role: domain.RolePublic}

		if adminToken != "" {
			auth := c.GetHeader("Authorization")
			if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
				if subtle.ConstantTimeCompare([]byte(token), []byte(adminToken)) == 1 {
					actor = domain.Actor{Role: domain.RoleAdmin}
				}
			}
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

// RequireAdmin returns a middleware that rejects non-admin actors.
// Parameters: none.
// Returns:
//   - gin.HandlerFunc: middleware handler.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !GetActor(c).CanModerate() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}

// GetActor extracts the actor capability from the Gin context.
// Parameters:
//   - c: Gin request context.
// Returns:
//   - domain.Actor: resolved actor, public when unset.
func GetActor(c *gin.Context) domain.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(domain.Actor); ok {
			return actor
		}
	}
	return domain.Actor{Role: domain.RolePublic}
}
