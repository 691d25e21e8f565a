// Package auth resolves the acting operator from already-verified bearer
// claims. The approval engine never authenticates; it only reads the
// identity snapshot this middleware provides.
package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/finvera/backoffice/internal/approval"
	"github.com/finvera/backoffice/internal/auth/token"
)

const principalKey = "auth.principal"

// Principal is the authenticated operator on a request. Identity.Role holds
// the primary (first) role claim; Roles keeps the full set for authz checks.
type Principal struct {
	approval.Identity
	Roles []string
}

// Middleware validates the bearer token and stores the Principal in the gin
// context.
func Middleware(mgr *token.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		claims, err := mgr.Verify(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		p := &Principal{
			Identity: approval.Identity{Username: claims.Subject, Name: claims.Name},
			Roles:    claims.Roles,
		}
		if len(claims.Roles) > 0 {
			p.Role = claims.Roles[0]
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// FromContext returns the Principal set by Middleware.
func FromContext(c *gin.Context) (*Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*Principal)
	return p, ok
}
