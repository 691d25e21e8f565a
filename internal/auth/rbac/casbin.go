// Package rbac gates backoffice endpoints with a Casbin policy. Approval
// eligibility itself is decided by the engine's based-type strategies; this
// layer only controls who may reach which endpoint at all.
package rbac

import (
	"log/slog"
	"net/http"

	"github.com/casbin/casbin/v2"
	"github.com/gin-gonic/gin"

	"github.com/finvera/backoffice/internal/auth"
)

type Policy struct {
	enforcer *casbin.Enforcer
}

func Load(modelPath, policyPath string) (*Policy, error) {
	e, err := casbin.NewEnforcer(modelPath, policyPath)
	if err != nil {
		return nil, err
	}
	return &Policy{enforcer: e}, nil
}

// CanHTTP checks whether the user, directly or through any of their roles,
// may perform method on path.
func (p *Policy) CanHTTP(username string, roles []string, method, path string) bool {
	subjects := append([]string{username}, roles...)
	for _, sub := range subjects {
		if allowed, err := p.enforcer.Enforce(sub, path, method); err == nil && allowed {
			return true
		}
	}
	slog.Debug("rbac denied", "user", username, "method", method, "path", path)
	return false
}

// Middleware enforces the policy for authenticated routes.
func (p *Policy) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := auth.FromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}
		if !p.CanHTTP(principal.Username, principal.Roles, c.Request.Method, c.Request.URL.Path) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "not allowed"})
			return
		}
		c.Next()
	}
}
