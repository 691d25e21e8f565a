package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const redisPollInterval = 100 * time.Millisecond

// releaseScript deletes the key only when the caller still owns it.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
end
return 0`)

// RedisGuard implements Guard on a shared redis instance reachable by all
// engine replicas. SET NX PX gives atomic acquire-with-expiry.
type RedisGuard struct {
	cli *redis.Client
}

func NewRedis(url string) (*RedisGuard, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("lock: parse redis url: %w", err)
	}
	return &RedisGuard{cli: redis.NewClient(opt)}, nil
}

// NewRedisWithClient wraps an existing client (shared pools, tests).
func NewRedisWithClient(cli *redis.Client) *RedisGuard { return &RedisGuard{cli: cli} }

func (g *RedisGuard) Acquire(ctx context.Context, key string, wait, hold time.Duration) (*Lease, error) {
	token := uuid.NewString()
	deadline := time.Now().Add(wait)
	for {
		ok, err := g.cli.SetNX(ctx, key, token, hold).Result()
		if err != nil {
			return nil, fmt.Errorf("lock: setnx %s: %w", key, err)
		}
		if ok {
			return &Lease{Key: key, Token: token}, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrNotAcquired, key)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(redisPollInterval):
		}
	}
}

func (g *RedisGuard) Release(ctx context.Context, lease *Lease) error {
	if lease == nil {
		return nil
	}
	// Short independent timeout: release must be attempted even when the
	// caller's context is already done.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	return releaseScript.Run(rctx, g.cli, []string{lease.Key}, lease.Token).Err()
}

func (g *RedisGuard) Close() error { return g.cli.Close() }
