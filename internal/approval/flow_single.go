package approval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/finvera/backoffice/internal/lock"
)

// singleFlow closes a request with one decision. The per-request guard
// guarantees at most one approver closes a given request: without it two
// concurrent approvals could both pass the PENDING check and both write a
// terminal status.
type singleFlow struct {
	guard lock.Guard
	wait  time.Duration
	hold  time.Duration
}

func (s *singleFlow) Process(ctx context.Context, store Store, based BasedStrategy, rule *Rule, requestID uint, d Decision, actor Identity) (bool, error) {
	lease, err := s.guard.Acquire(ctx, singleLockKey(requestID), s.wait, s.hold)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return false, fmt.Errorf("%w: request %d", ErrLockTimeout, requestID)
		}
		return false, err
	}
	defer func() {
		if rerr := s.guard.Release(ctx, lease); rerr != nil {
			slog.Warn("release approval lock", "key", lease.Key, "err", rerr)
		}
	}()

	err = store.Transact(ctx, func(tx Store) error {
		req, err := reloadPending(ctx, tx, requestID)
		if err != nil {
			return err
		}
		prior, err := tx.ApprovedFlows(ctx, req.ID)
		if err != nil {
			return err
		}
		// Single-decision flows have no ordering: quorum-mode validation.
		if err := based.Validate(rule, nil, actor, prior); err != nil {
			return err
		}
		if err := tx.AppendFlow(ctx, newFlow(req.ID, actor, d, based.Kind() == BasedRole)); err != nil {
			return err
		}
		req.Status = d.Status
		return tx.SaveRequest(ctx, req)
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
