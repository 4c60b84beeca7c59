// Package auth gates administrative operations behind a static bearer token.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"siteapi/internal/response"

	"github.com/gin-gonic/gin"
)

// contextKeyAdmin holds the result of Identify for downstream handlers.
const contextKeyAdmin = "is_admin"

// Gate compares presented bearer tokens against the configured secret.
type Gate struct {
	secret []byte
}

// NewGate creates a gate for secret. An empty secret rejects every token.
func NewGate(secret string) *Gate {
	return &Gate{secret: []byte(secret)}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Authorized reports whether r carries the admin token.
func (g *Gate) Authorized(r *http.Request) bool {
	if g == nil || len(g.secret) == 0 {
		return false
	}
	token := BearerToken(r.Header.Get("Authorization"))
	if token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), g.secret) == 1
}

// Identify records whether the caller is an admin without rejecting anyone.
func (g *Gate) Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(contextKeyAdmin, g.Authorized(c.Request))
		c.Next()
	}
}

// RequireAdmin aborts with 401 unless the caller presented the admin token.
func (g *Gate) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !g.Authorized(c.Request) {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
			return
		}
		c.Set(contextKeyAdmin, true)
		c.Next()
	}
}

// IsAdmin is a helper to read the flag set by Identify or RequireAdmin
func IsAdmin(c *gin.Context) bool {
	return c.GetBool(contextKeyAdmin)
}
