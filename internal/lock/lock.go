// Package lock provides named, non-blocking mutual exclusion for pipeline runs.
package lock

import (
	"context"
	"errors"
	"sync"
)

// Keys held by the two scheduled jobs.
const (
	KeyGenerate  = "pipeline:generate"
	KeyReconcile = "pipeline:reconcile"
)

// ErrHeld is returned by TryLock when another holder owns the key.
var ErrHeld = errors.New("lock: already held")

// Unlock releases a lock obtained from TryLock.
type Unlock func(ctx context.Context) error

// Locker grants at most one holder per key at a time.
type Locker interface {
	TryLock(ctx context.Context, key string) (Unlock, error)
}

// Local is an in-process Locker for single-instance deployments.
type Local struct {
	mu   sync.Mutex
	held map[string]struct{}
}

var _ Locker = (*Local)(nil)

// NewLocal returns an empty Local locker.
func NewLocal() *Local {
	return &Local{held: make(map[string]struct{})}
}

// TryLock claims key or returns ErrHeld. The returned Unlock is idempotent.
func (l *Local) TryLock(_ context.Context, key string) (Unlock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[key]; ok {
		return nil, ErrHeld
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
		return nil
	}, nil
}
