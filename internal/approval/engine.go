// Package approval implements the maker-checker decision engine: for every
// gated write operation it decides who may approve, in what order, how many
// approvals close the request, and serializes concurrent attempts so a
// request is never double-treated.
package approval

import (
	"context"
	"fmt"
	"log/slog"
)

// Auditor is notified after a terminal decision. Fire-and-forget: a failure
// is logged and never rolls back the decision.
type Auditor interface {
	Decision(role, username, name, activity, module string, requestID uint) error
}

// Engine is the entry point feature services call to gate their sensitive
// writes. Strategies come from an explicitly constructed Registry so tests
// can substitute fakes.
type Engine struct {
	store Store
	reg   *Registry
	audit Auditor
}

func NewEngine(store Store, reg *Registry, audit Auditor) *Engine {
	return &Engine{store: store, reg: reg, audit: audit}
}

// Submit opens a PENDING request for one gated operation. The activity type
// must have a rule configured.
func (e *Engine) Submit(ctx context.Context, activityType, maker string) (*Request, error) {
	rule, err := e.store.GetRule(ctx, activityType)
	if err != nil {
		return nil, err
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	req := &Request{ActivityType: activityType, Maker: maker, Status: StatusPending}
	if err := e.store.CreateRequest(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// Decide runs one decision for the given request. The flow topology comes
// from the rule governing the request's activity type, never from the caller.
// Returns true when the request is now terminal, false when it is still
// collecting approvals.
func (e *Engine) Decide(ctx context.Context, requestID uint, d Decision, actor Identity) (bool, error) {
	if err := d.Validate(); err != nil {
		return false, err
	}
	req, err := e.store.GetRequest(ctx, requestID)
	if err != nil {
		return false, err
	}
	rule, err := e.store.GetRule(ctx, req.ActivityType)
	if err != nil {
		return false, err
	}
	flow, err := e.reg.Flow(rule.FlowKind)
	if err != nil {
		return false, err
	}
	based, err := e.reg.Based(rule.BasedType)
	if err != nil {
		return false, err
	}

	terminal, err := flow.Process(ctx, e.store, based, rule, requestID, d, actor)
	if err != nil {
		return false, err
	}
	slog.Info("approval decision",
		"request", requestID, "activity", rule.ActivityType,
		"decider", actor.Username, "status", string(d.Status), "terminal", terminal)

	if terminal && e.audit != nil {
		activity := "APPROVE"
		if d.Status == StatusDeclined {
			activity = "DECLINE"
		}
		if aerr := e.audit.Decision(actor.Role, actor.Username, actor.Name, activity, rule.ActivityType, requestID); aerr != nil {
			slog.Warn("audit notify failed", "request", requestID, "err", aerr)
		}
	}
	return terminal, nil
}

// NextApprover reports who is due to act next on a pending request: the
// entry at the request's cursor for sequential rules, the first eligible
// party otherwise.
func (e *Engine) NextApprover(ctx context.Context, requestID uint) (string, error) {
	req, err := e.store.GetRequest(ctx, requestID)
	if err != nil {
		return "", err
	}
	if req.Terminal() {
		return "", fmt.Errorf("%w: request %d is %s", ErrAlreadyTreated, req.ID, req.Status)
	}
	rule, err := e.store.GetRule(ctx, req.ActivityType)
	if err != nil {
		return "", err
	}
	based, err := e.reg.Based(rule.BasedType)
	if err != nil {
		return "", err
	}
	if rule.Sequential {
		return based.ApproverAt(rule, req.NextIndex)
	}
	return based.FirstApprover(rule)
}
