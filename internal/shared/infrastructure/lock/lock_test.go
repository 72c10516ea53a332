package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryLocker(t *testing.T) {
	ctx := context.Background()

	t.Run("second acquire fails while held", func(t *testing.T) {
		l := NewInMemoryLocker()

		release, err := l.Acquire(ctx, "discount", time.Minute)
		require.NoError(t, err)

		_, err = l.Acquire(ctx, "discount", time.Minute)
		assert.ErrorIs(t, err, ErrLockHeld)

		require.NoError(t, release(ctx))
		_, err = l.Acquire(ctx, "discount", time.Minute)
		assert.NoError(t, err)
	})

	t.Run("keys are independent", func(t *testing.T) {
		l := NewInMemoryLocker()

		_, err := l.Acquire(ctx, "a", time.Minute)
		require.NoError(t, err)
		_, err = l.Acquire(ctx, "b", time.Minute)
		assert.NoError(t, err)
	})

	t.Run("expired lease can be taken over", func(t *testing.T) {
		l := NewInMemoryLocker()
		now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		l.clock = func() time.Time { return now }

		staleRelease, err := l.Acquire(ctx, "discount", time.Second)
		require.NoError(t, err)

		now = now.Add(2 * time.Second)
		_, err = l.Acquire(ctx, "discount", time.Minute)
		require.NoError(t, err)

		// the stale holder must not free the new lease
		require.NoError(t, staleRelease(ctx))
		_, err = l.Acquire(ctx, "discount", time.Minute)
		assert.ErrorIs(t, err, ErrLockHeld)
	})
}
