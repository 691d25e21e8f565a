package approval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/finvera/backoffice/internal/lock"
)

// multiFlow collects a quorum of approvals, sequential or unordered. It takes
// the same per-request guard as the single flow: the duplicate check, quorum
// count and index advance form a read-modify-write that would otherwise race
// under concurrent approvals.
type multiFlow struct {
	guard lock.Guard
	wait  time.Duration
	hold  time.Duration
}

func (m *multiFlow) Process(ctx context.Context, store Store, based BasedStrategy, rule *Rule, requestID uint, d Decision, actor Identity) (bool, error) {
	lease, err := m.guard.Acquire(ctx, multiLockKey(requestID), m.wait, m.hold)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return false, fmt.Errorf("%w: request %d", ErrLockTimeout, requestID)
		}
		return false, err
	}
	defer func() {
		if rerr := m.guard.Release(ctx, lease); rerr != nil {
			slog.Warn("release approval lock", "key", lease.Key, "err", rerr)
		}
	}()

	terminal := false
	err = store.Transact(ctx, func(tx Store) error {
		req, err := reloadPending(ctx, tx, requestID)
		if err != nil {
			return err
		}
		prior, err := tx.ApprovedFlows(ctx, req.ID)
		if err != nil {
			return err
		}
		if err := based.CheckNotVoted(actor, prior); err != nil {
			return err
		}

		f := newFlow(req.ID, actor, d, based.Kind() == BasedRole)

		// A single decline terminates the whole flow, regardless of how many
		// approvals already exist.
		if d.Status == StatusDeclined {
			if err := tx.AppendFlow(ctx, f); err != nil {
				return err
			}
			req.Status = StatusDeclined
			terminal = true
			return tx.SaveRequest(ctx, req)
		}

		var idx *int
		if rule.Sequential {
			i := req.NextIndex
			idx = &i
		}
		if err := based.Validate(rule, idx, actor, prior); err != nil {
			return err
		}

		// Count includes the approval being recorded now.
		if len(prior)+1 < rule.MinApprovals {
			req.NextIndex++
			next, err := based.ApproverAt(rule, req.NextIndex)
			if err != nil {
				return err
			}
			f.NextApproval = next
			if err := tx.AppendFlow(ctx, f); err != nil {
				return err
			}
			return tx.SaveRequest(ctx, req)
		}

		if err := tx.AppendFlow(ctx, f); err != nil {
			return err
		}
		req.Status = StatusApproved
		terminal = true
		return tx.SaveRequest(ctx, req)
	})
	if err != nil {
		return false, err
	}
	return terminal, nil
}
