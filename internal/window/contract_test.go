// ABOUTME: Shared behavioural tests every window store backend must pass
// ABOUTME: Run against memory, sqlite and redis (miniredis) backends

package window

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type storeFactory func(t *testing.T) AtomicStore

func runStoreContract(t *testing.T, newStore storeFactory) {
	t.Helper()

	t.Run("FetchUnknownKey", func(t *testing.T) {
		s := newStore(t)
		items, err := s.Fetch(context.Background(), "su:never-written")
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("PushPrependsToFront", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Push(ctx, "su:abc", "i1"))
		require.NoError(t, s.Push(ctx, "su:abc", "i2"))

		items, err := s.Fetch(ctx, "su:abc")
		require.NoError(t, err)
		assert.Equal(t, []string{"i2", "i1"}, items)
	})

	t.Run("PushDoesNotDeduplicate", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Push(ctx, "su:abc", "i1"))
		require.NoError(t, s.Push(ctx, "su:abc", "i1"))

		items, err := s.Fetch(ctx, "su:abc")
		require.NoError(t, err)
		assert.Equal(t, []string{"i1", "i1"}, items)
	})

	t.Run("TrimKeepsNewest", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for i := 1; i <= 5; i++ {
			require.NoError(t, s.Push(ctx, "su:abc", fmt.Sprintf("i%d", i)))
		}
		require.NoError(t, s.Trim(ctx, "su:abc", 3))

		items, err := s.Fetch(ctx, "su:abc")
		require.NoError(t, err)
		assert.Equal(t, []string{"i5", "i4", "i3"}, items)
	})

	t.Run("TrimShorterWindowIsNoop", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Push(ctx, "su:abc", "i1"))
		require.NoError(t, s.Trim(ctx, "su:abc", 100))
		require.NoError(t, s.Trim(ctx, "su:abc", 0))
		require.NoError(t, s.Trim(ctx, "su:missing", 100))

		items, err := s.Fetch(ctx, "su:abc")
		require.NoError(t, err)
		assert.Equal(t, []string{"i1"}, items)
	})

	t.Run("KeysAreIndependent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Push(ctx, "su:a", "x"))
		require.NoError(t, s.Push(ctx, "su:b", "y"))
		require.NoError(t, s.Trim(ctx, "su:b", 1))

		a, err := s.Fetch(ctx, "su:a")
		require.NoError(t, err)
		b, err := s.Fetch(ctx, "su:b")
		require.NoError(t, err)
		assert.Equal(t, []string{"x"}, a)
		assert.Equal(t, []string{"y"}, b)
	})

	t.Run("PushIfAbsent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		pushed, err := s.PushIfAbsent(ctx, "su:abc", "i1", 2)
		require.NoError(t, err)
		assert.True(t, pushed)

		pushed, err = s.PushIfAbsent(ctx, "su:abc", "i1", 2)
		require.NoError(t, err)
		assert.False(t, pushed, "value already in window")

		for _, v := range []string{"i2", "i3"} {
			pushed, err = s.PushIfAbsent(ctx, "su:abc", v, 2)
			require.NoError(t, err)
			assert.True(t, pushed)
		}

		items, err := s.Fetch(ctx, "su:abc")
		require.NoError(t, err)
		assert.Equal(t, []string{"i3", "i2"}, items, "window trimmed to size")

		pushed, err = s.PushIfAbsent(ctx, "su:abc", "i1", 2)
		require.NoError(t, err)
		assert.True(t, pushed, "evicted value counts as absent")
	})

	t.Run("PushIfAbsentConcurrent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		const numGoroutines = 20
		var wins int32
		var g errgroup.Group

		for i := 0; i < numGoroutines; i++ {
			g.Go(func() error {
				pushed, err := s.PushIfAbsent(ctx, "su:contested", "same-instance", 100)
				if pushed {
					atomic.AddInt32(&wins, 1)
				}
				return err
			})
		}
		require.NoError(t, g.Wait())

		assert.Equal(t, int32(1), wins, "exactly one writer should push")
		items, err := s.Fetch(ctx, "su:contested")
		require.NoError(t, err)
		assert.Equal(t, []string{"same-instance"}, items)
	})
}
