// Package lock provides per-key mutual exclusion for approval requests. The
// redis implementation serves multi-instance deployments; the local one backs
// tests and single-node dev with the same lease semantics.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrNotAcquired is returned when the lock is still held by someone else when
// the wait bound expires.
var ErrNotAcquired = errors.New("lock: not acquired within wait bound")

// Lease is proof of a held lock. Release verifies the token so a lease whose
// hold bound already expired cannot release the lock from its next holder.
type Lease struct {
	Key   string
	Token string
}

// Guard acquires and releases per-key leases. Acquire blocks up to wait; a
// held lease auto-expires after hold so a crashed holder cannot lock a
// request out permanently.
type Guard interface {
	Acquire(ctx context.Context, key string, wait, hold time.Duration) (*Lease, error)
	Release(ctx context.Context, lease *Lease) error
}
