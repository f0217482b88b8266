package middleware

import (
	"errors"
	"net/http"
	"strings"

	pkgAuth "chkobba-service/pkg/auth"

	"github.com/gin-gonic/gin"
)

const ContextConnectionIDKey = "connectionID"

func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractBearerToken(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		claims, err := pkgAuth.ParseToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ContextConnectionIDKey, claims.ConnectionID)
		c.Next()
	}
}

// ConnectionID returns the identity set by AuthRequired.
func ConnectionID(c *gin.Context) string {
	return c.GetString(ContextConnectionIDKey)
}

// TokenFromRequest accepts a ?token= query parameter (browsers cannot set
// headers on websocket upgrades) or a bearer header.
func TokenFromRequest(c *gin.Context) (string, error) {
	if token := strings.TrimSpace(c.Query("token")); token != "" {
		return token, nil
	}
	return extractBearerToken(c.GetHeader("Authorization"))
}

func extractBearerToken(authHeader string) (string, error) {
	if strings.TrimSpace(authHeader) == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization header")
	}
	return token, nil
}
