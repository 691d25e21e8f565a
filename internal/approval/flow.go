package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/finvera/backoffice/internal/lock"
)

// Guard bounds: a caller waits up to guardWait for the lock; a held lock
// auto-expires after guardHold so a crashed holder cannot lock a request out
// permanently.
const (
	guardWait = 5 * time.Second
	guardHold = 30 * time.Second
)

// FlowStrategy orchestrates one decision against one pending request under
// one rule, updates request state, and reports whether the request is now
// terminal.
type FlowStrategy interface {
	Process(ctx context.Context, store Store, based BasedStrategy, rule *Rule, requestID uint, d Decision, actor Identity) (bool, error)
}

// Registry is the immutable two-level strategy lookup handed to the engine:
// flow strategies keyed by topology, based strategies keyed by eligibility
// model. Constructed once at startup; unknown keys are configuration errors.
type Registry struct {
	based map[BasedType]BasedStrategy
	flows map[FlowKind]FlowStrategy
}

func NewRegistry(guard lock.Guard) *Registry {
	return &Registry{
		based: map[BasedType]BasedStrategy{
			BasedRole: roleBased{},
			BasedUser: userBased{},
		},
		flows: map[FlowKind]FlowStrategy{
			FlowSingle: &singleFlow{guard: guard, wait: guardWait, hold: guardHold},
			FlowMulti:  &multiFlow{guard: guard, wait: guardWait, hold: guardHold},
		},
	}
}

func (r *Registry) Based(t BasedType) (BasedStrategy, error) {
	s, ok := r.based[t]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported based type %q", ErrConfiguration, t)
	}
	return s, nil
}

func (r *Registry) Flow(k FlowKind) (FlowStrategy, error) {
	s, ok := r.flows[k]
	if !ok {
		return nil, fmt.Errorf("%w: unknown flow kind %q", ErrConfiguration, k)
	}
	return s, nil
}

func singleLockKey(id uint) string { return fmt.Sprintf("approval:single:%d", id) }
func multiLockKey(id uint) string  { return fmt.Sprintf("approval:multi:%d", id) }

// reloadPending re-reads the request under the guard. Another decider may
// have closed it while this caller waited for the lock.
func reloadPending(ctx context.Context, store Store, id uint) (*Request, error) {
	req, err := store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Terminal() {
		return nil, fmt.Errorf("%w: request %d is %s", ErrAlreadyTreated, req.ID, req.Status)
	}
	return req, nil
}

func newFlow(requestID uint, actor Identity, d Decision, roleBased bool) *Flow {
	return &Flow{
		RequestID: requestID,
		Username:  actor.Username,
		Name:      actor.Name,
		Role:      actor.Role,
		Status:    d.Status,
		RoleBased: roleBased,
		Reason:    d.Reason,
	}
}
