package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"maintenance-service/internal/auth"
	"maintenance-service/internal/model"
)

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer"
	principalContextKey = "principal"
)

// Auth resolves the bearer token into a principal. Every failure is a 401
// with code UNAUTHENTICATED.
func Auth(parser *auth.Parser) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, reason := bearerToken(c.GetHeader(authorizationHeader))
		if reason != "" {
			unauthorized(c, reason)
			return
		}
		claims, err := parser.Parse(token)
		if err != nil {
			unauthorized(c, "invalid token")
			return
		}
		principal, err := claims.Principal()
		if err != nil {
			unauthorized(c, "invalid token")
			return
		}
		c.Set(principalContextKey, principal)
		c.Next()
	}
}

func bearerToken(header string) (string, string) {
	if header == "" {
		return "", "authorization header missing"
	}
	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, bearerPrefix) || token == "" {
		return "", "invalid authorization header"
	}
	return token, ""
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg, "code": "UNAUTHENTICATED"})
}

// RequireRole rejects principals whose role is not listed. It must run
// after Auth.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := MustPrincipal(c)
		if !ok {
			unauthorized(c, "principal missing")
			return
		}
		for _, role := range roles {
			if principal.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "permission denied", "code": "FORBIDDEN"})
	}
}

func MustPrincipal(c *gin.Context) (model.Principal, bool) {
	value, exists := c.Get(principalContextKey)
	if !exists {
		return model.Principal{}, false
	}
	principal, ok := value.(model.Principal)
	if !ok {
		return model.Principal{}, false
	}
	return principal, true
}
