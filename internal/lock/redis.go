package lock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/xid"
)

// releaseScript deletes the key only if it still holds our token, so an
// expired lock re-acquired by another process is left alone.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// extendScript pushes the expiry out only while the key still holds our token.
var extendScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0
`)

// Redis is a Locker shared by every process using the same Redis instance.
// A held lock is renewed every ttl/3 until released, so ttl only bounds how
// long a crashed holder can wedge the schedule, not how long a run may take.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

var _ Locker = (*Redis)(nil)

// NewRedis returns a Redis locker whose keys expire ttl after the holder
// stops renewing them.
func NewRedis(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Redis {
	return &Redis{client: client, ttl: ttl, logger: logger}
}

// TryLock claims key with SET NX and starts renewing it. It returns ErrHeld
// when another process owns key. Unlock stops renewal and deletes key only if
// it still holds our token.
func (r *Redis) TryLock(ctx context.Context, key string) (Unlock, error) {
	token := xid.New().String()

	ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("lock: acquiring %s: %w", key, err)
	}
	if !ok {
		return nil, ErrHeld
	}

	logger := r.logger.With(slog.String("key", key))
	stop := keepAlive(context.WithoutCancel(ctx), r.ttl/3, logger, func(ctx context.Context) (bool, error) {
		n, err := extendScript.Run(ctx, r.client, []string{key}, token, r.ttl.Milliseconds()).Int64()
		return n == 1, err
	})

	return func(ctx context.Context) error {
		stop()
		if err := releaseScript.Run(ctx, r.client, []string{key}, token).Err(); err != nil {
			return fmt.Errorf("lock: releasing %s: %w", key, err)
		}
		return nil
	}, nil
}

// keepAlive calls extend every interval until the returned stop func is
// called or extend reports the lock no longer belongs to us. Transient
// errors are logged and retried on the next tick. stop waits for the
// renewal goroutine and is safe to call more than once.
func keepAlive(ctx context.Context, interval time.Duration, logger *slog.Logger,
	extend func(context.Context) (bool, error)) (stop func()) {
	if interval <= 0 {
		interval = time.Second
	}

	done := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				ok, err := extend(ctx)
				switch {
				case err != nil:
					logger.Warn("lock renewal failed", slog.String("error", err.Error()))
				case !ok:
					logger.Error("lock lost before release")
					return
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
		<-finished
	}
}
