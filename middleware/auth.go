package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const MemberKey = "memberID"

type TokenValidator interface {
	ValidateToken(tokenStr, expectedType string) (jwt.MapClaims, error)
}

// RequireAuth validates the bearer token and stores the member id on the
// context. Handlers load the member themselves and pass it explicitly into
// the services that need it.
func RequireAuth(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing bearer token"})
			return
		}

		claims, err := tokens.ValidateToken(strings.TrimPrefix(header, "Bearer "), "access")
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		sub, ok := claims["sub"].(string)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			return
		}
		memberID, err := uuid.Parse(sub)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			return
		}

		c.Set(MemberKey, memberID)
		c.Next()
	}
}

// CurrentMemberID returns the authenticated member id set by RequireAuth.
func CurrentMemberID(c *gin.Context) (uuid.UUID, bool) {
	val, exists := c.Get(MemberKey)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := val.(uuid.UUID)
	return id, ok
}
