package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const localPollInterval = 5 * time.Millisecond

type localEntry struct {
	token     string
	expiresAt time.Time
}

// LocalGuard is an in-process Guard with the same lease semantics as the
// redis variant, including hold expiry.
type LocalGuard struct {
	mu   sync.Mutex
	held map[string]localEntry
}

func NewLocal() *LocalGuard { return &LocalGuard{held: map[string]localEntry{}} }

func (g *LocalGuard) tryClaim(key, token string, hold time.Duration) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if e, ok := g.held[key]; ok && time.Now().Before(e.expiresAt) {
		return false
	}
	g.held[key] = localEntry{token: token, expiresAt: time.Now().Add(hold)}
	return true
}

func (g *LocalGuard) Acquire(ctx context.Context, key string, wait, hold time.Duration) (*Lease, error) {
	token := uuid.NewString()
	deadline := time.Now().Add(wait)
	for {
		if g.tryClaim(key, token, hold) {
			return &Lease{Key: key, Token: token}, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrNotAcquired, key)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(localPollInterval):
		}
	}
}

func (g *LocalGuard) Release(_ context.Context, lease *Lease) error {
	if lease == nil {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if e, ok := g.held[lease.Key]; ok && e.token == lease.Token {
		delete(g.held, lease.Key)
	}
	return nil
}
