package auth

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"smartscan/internal/model"
	"smartscan/internal/supabase"
)

const (
	userKey  = "auth.user"
	tokenKey = "auth.token"
)

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(c *gin.Context) (string, bool) {
	authz := c.GetHeader("Authorization")
	if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(authz[len("bearer "):])
	return token, token != ""
}

// RequireUser rejects requests without a valid operator token. The token is also attached
// to the request context so backend calls run as the operator.
func RequireUser(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		user, err := a.CurrentUser(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, ErrUnauthenticated) {
				log.Printf("resolve operator: %v", err)
				c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "auth backend unavailable"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(userKey, user)
		c.Set(tokenKey, token)
		c.Request = c.Request.WithContext(supabase.WithAccessToken(c.Request.Context(), token))
		c.Next()
	}
}

// UserFrom returns the operator set by RequireUser.
func UserFrom(c *gin.Context) (model.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return model.User{}, false
	}
	u, ok := v.(model.User)
	return u, ok
}

// TokenFrom returns the bearer token accepted by RequireUser.
func TokenFrom(c *gin.Context) string {
	return c.GetString(tokenKey)
}
