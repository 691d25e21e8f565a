// Package http exposes the approval engine to the backoffice UI. Handlers
// are transport plumbing only: validate, call the engine, map errors.
package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/finvera/backoffice/internal/approval"
	"github.com/finvera/backoffice/internal/auth"
	"github.com/finvera/backoffice/internal/auth/rbac"
	"github.com/finvera/backoffice/internal/auth/token"
)

// OperatorInfo is what login needs back from the account store.
type OperatorInfo struct {
	Username string
	Name     string
	Roles    []string
}

// VerifyFunc checks operator credentials and returns the account info.
type VerifyFunc func(username, password string) (*OperatorInfo, error)

type Server struct {
	engine *approval.Engine
	store  approval.Store
	verify VerifyFunc
	tokens *token.Manager
	policy *rbac.Policy
}

func New(engine *approval.Engine, store approval.Store, verify VerifyFunc, tokens *token.Manager, policy *rbac.Policy) *Server {
	return &Server{engine: engine, store: store, verify: verify, tokens: tokens, policy: policy}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	r.POST("/api/login", s.login)

	api := r.Group("/api", auth.Middleware(s.tokens))
	if s.policy != nil {
		api.Use(s.policy.Middleware())
	}
	api.POST("/rules", s.createRule)
	api.GET("/rules/:activity", s.getRule)
	api.POST("/requests", s.createRequest)
	api.GET("/requests", s.listRequests)
	api.GET("/requests/:id", s.getRequest)
	api.POST("/requests/:id/decision", s.decide)
	return r
}

// statusFor maps engine error classes onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, approval.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, approval.ErrAlreadyTreated):
		return http.StatusConflict
	case errors.Is(err, approval.ErrLockTimeout):
		return http.StatusServiceUnavailable
	case errors.Is(err, approval.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, approval.ErrConfiguration), errors.Is(err, approval.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) login(c *gin.Context) {
	var in struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	op, err := s.verify(in.Username, in.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	tok, err := s.tokens.Sign(op.Username, op.Name, op.Roles)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tok})
}

func (s *Server) createRule(c *gin.Context) {
	var rule approval.Rule
	if err := c.ShouldBindJSON(&rule); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.store.SaveRule(c.Request.Context(), &rule); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"rule": rule})
}

func (s *Server) getRule(c *gin.Context) {
	rule, err := s.store.GetRule(c.Request.Context(), c.Param("activity"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rule": rule})
}

func (s *Server) createRequest(c *gin.Context) {
	principal, ok := auth.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	var in struct {
		ActivityType string `json:"activity_type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req, err := s.engine.Submit(c.Request.Context(), in.ActivityType, principal.Username)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"request": req})
}

func (s *Server) listRequests(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	items, total, err := s.store.ListRequests(c.Request.Context(), approval.Status(c.Query("status")), page, size)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": total})
}

func (s *Server) getRequest(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request id"})
		return
	}
	req, err := s.store.GetRequest(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	flows, err := s.store.Flows(c.Request.Context(), req.ID)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": req, "flows": flows})
}

func (s *Server) decide(c *gin.Context) {
	principal, ok := auth.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request id"})
		return
	}
	// The flow topology is part of the rule, not the payload: a decider
	// never chooses how many approvals close a request.
	var in struct {
		Status string `json:"status" binding:"required"`
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	d := approval.Decision{Status: approval.Status(in.Status), Reason: in.Reason}
	terminal, err := s.engine.Decide(c.Request.Context(), uint(id), d, principal.Identity)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"treated": terminal})
}
