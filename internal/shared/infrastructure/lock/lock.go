// Package lock provides a distributed mutual-exclusion lock for batch jobs.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrLockHeld is returned when another holder owns the key.
var ErrLockHeld = errors.New("lock is held by another process")

// Release frees a lock acquired by Acquire.
type Release func(ctx context.Context) error

// Locker acquires a named lock that expires after ttl.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error)
}

// InMemoryLocker is a process-local Locker for tests and single-node runs.
type InMemoryLocker struct {
	mu    sync.Mutex
	held  map[string]lease
	clock func() time.Time
}

type lease struct {
	token     string
	expiresAt time.Time
}

// NewInMemoryLocker creates an empty in-memory locker.
func NewInMemoryLocker() *InMemoryLocker {
	return &InMemoryLocker{held: make(map[string]lease), clock: time.Now}
}

// Acquire takes key unless an unexpired lease exists.
func (l *InMemoryLocker) Acquire(_ context.Context, key string, ttl time.Duration) (Release, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if current, ok := l.held[key]; ok && now.Before(current.expiresAt) {
		return nil, ErrLockHeld
	}

	token := uuid.NewString()
	l.held[key] = lease{token: token, expiresAt: now.Add(ttl)}

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if current, ok := l.held[key]; ok && current.token == token {
			delete(l.held, key)
		}
		return nil
	}, nil
}
