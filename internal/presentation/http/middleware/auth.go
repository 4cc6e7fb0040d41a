package middleware

import (
	"net/http"
	"strings"

	"github.com/fady17/garagehub-go/internal/application/services"
	"github.com/fady17/garagehub-go/internal/infrastructure/security"
	"github.com/fady17/garagehub-go/pkg/config"
	"github.com/gin-gonic/gin"
)

// Context keys set by the auth middlewares.
const (
	ContextAnonIDKey = "anonId"
	ContextUserIDKey = "userId"
)

// AnonymousTokenHeader carries the anonymous session token on every
// anonymous-scoped request.
const AnonymousTokenHeader = "X-Anonymous-Token"

// AnonymousTokenMiddleware validates the anonymous session token and
// puts the anon_id into the request context. Requests with a missing,
// unverifiable, expired, or retired token are rejected with 401.
func AnonymousTokenMiddleware(sessions *services.SessionIssueService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(AnonymousTokenHeader)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing anonymous session token"})
			return
		}

		anonID, err := sessions.VerifyAnonymousToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid anonymous session token"})
			return
		}

		c.Set(ContextAnonIDKey, anonID)
		c.Next()
	}
}

// UserTokenMiddleware validates the Bearer user token and puts the user
// id into the request context.
func UserTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := security.ValidateJWT(token, config.JWTSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		subType, _ := claims["sub_type"].(string)
		userID, _ := claims["sub"].(string)
		if subType != "user_session" || userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}
