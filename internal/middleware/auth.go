package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"group-service/internal/auth"
	"group-service/internal/models"
	"group-service/internal/repositories"
)

// AuthMiddleware validates the Authorization header and stores the verified
// identity in the request context. The asserted user is lazily materialized
// into the users table so reads can resolve display names later.
func AuthMiddleware(verifier *auth.Verifier, users repositories.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		identity, err := verifier.FromHeader(header)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		if users != nil && identity.Username != "" {
			if err := users.Upsert(c.Request.Context(), models.User{ID: identity.UserID, Username: identity.Username}); err != nil {
				log.Printf("user upsert failed: %v", err)
			}
		}

		c.Set("userID", identity.UserID)
		c.Set("username", identity.Username)
		c.Next()
	}
}
