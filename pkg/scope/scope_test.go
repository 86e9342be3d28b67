package scope_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/scope"
)

type subtree struct {
	key      string
	released atomic.Bool
}

func TestGroup_Get(t *testing.T) {
	t.Parallel()

	t.Run("same key reuses one instance", func(t *testing.T) {
		t.Parallel()

		var builds atomic.Int32
		g := scope.NewGroup(0, func(_ context.Context, key string) (*subtree, error) {
			builds.Add(1)
			return &subtree{key: key}, nil
		}, nil)
		defer g.Close()

		ctx := context.Background()
		first, err := g.Get(ctx, "tenant-a")
		require.NoError(t, err)
		second, err := g.Get(ctx, "tenant-a")
		require.NoError(t, err)

		assert.Same(t, first, second)
		assert.Equal(t, int32(1), builds.Load())
	})

	t.Run("distinct keys get distinct instances", func(t *testing.T) {
		t.Parallel()

		g := scope.NewGroup(0, func(_ context.Context, key string) (*subtree, error) {
			return &subtree{key: key}, nil
		}, nil)
		defer g.Close()

		ctx := context.Background()
		a, err := g.Get(ctx, "tenant-a")
		require.NoError(t, err)
		b, err := g.Get(ctx, "tenant-b")
		require.NoError(t, err)

		assert.NotSame(t, a, b)
		assert.Equal(t, 2, g.Len())
	})

	t.Run("concurrent first calls build once", func(t *testing.T) {
		t.Parallel()

		var builds atomic.Int32
		g := scope.NewGroup(0, func(_ context.Context, key string) (*subtree, error) {
			builds.Add(1)
			time.Sleep(10 * time.Millisecond)
			return &subtree{key: key}, nil
		}, nil)
		defer g.Close()

		const workers = 50
		results := make([]*subtree, workers)
		var wg sync.WaitGroup
		wg.Add(workers)
		for i := range workers {
			go func() {
				defer wg.Done()
				v, err := g.Get(context.Background(), "tenant-a")
				require.NoError(t, err)
				results[i] = v
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), builds.Load())
		for _, v := range results {
			assert.Same(t, results[0], v)
		}
	})

	t.Run("build failure is not cached", func(t *testing.T) {
		t.Parallel()

		buildErr := errors.New("downstream unavailable")
		var builds atomic.Int32
		g := scope.NewGroup(0, func(_ context.Context, key string) (*subtree, error) {
			if builds.Add(1) == 1 {
				return nil, buildErr
			}
			return &subtree{key: key}, nil
		}, nil)
		defer g.Close()

		ctx := context.Background()
		_, err := g.Get(ctx, "tenant-a")
		require.ErrorIs(t, err, buildErr)
		assert.Zero(t, g.Len())

		v, err := g.Get(ctx, "tenant-a")
		require.NoError(t, err)
		assert.Equal(t, "tenant-a", v.key)
	})

	t.Run("evicts least recently used beyond limit", func(t *testing.T) {
		t.Parallel()

		g := scope.NewGroup(2, func(_ context.Context, key string) (*subtree, error) {
			return &subtree{key: key}, nil
		}, func(s *subtree) { s.released.Store(true) })
		defer g.Close()

		ctx := context.Background()
		a, err := g.Get(ctx, "tenant-a")
		require.NoError(t, err)
		_, err = g.Get(ctx, "tenant-b")
		require.NoError(t, err)

		// Touch a so b becomes the eviction candidate.
		_, err = g.Get(ctx, "tenant-a")
		require.NoError(t, err)

		_, err = g.Get(ctx, "tenant-c")
		require.NoError(t, err)

		assert.Equal(t, 2, g.Len())
		assert.Eventually(t, func() bool {
			g2, err := g.Get(ctx, "tenant-b")
			return err == nil && !g2.released.Load() && g2.key == "tenant-b"
		}, time.Second, 10*time.Millisecond, "evicted key must rebuild on next use")
		assert.False(t, a.released.Load(), "recently used instance must survive")
	})
}

func TestGroup_Fresh(t *testing.T) {
	t.Parallel()

	var builds atomic.Int32
	g := scope.NewGroup(0, func(_ context.Context, key string) (*subtree, error) {
		builds.Add(1)
		return &subtree{key: key}, nil
	}, nil)
	defer g.Close()

	ctx := context.Background()
	first, err := g.Fresh(ctx, "")
	require.NoError(t, err)
	second, err := g.Fresh(ctx, "")
	require.NoError(t, err)

	assert.NotSame(t, first, second, "ungrouped instances are never shared")
	assert.Equal(t, int32(2), builds.Load())
	assert.Zero(t, g.Len(), "ungrouped instances stay out of the group")
}

func TestGroup_Close(t *testing.T) {
	t.Parallel()

	g := scope.NewGroup(0, func(_ context.Context, key string) (*subtree, error) {
		return &subtree{key: key}, nil
	}, func(s *subtree) { s.released.Store(true) })

	ctx := context.Background()
	a, err := g.Get(ctx, "tenant-a")
	require.NoError(t, err)
	b, err := g.Get(ctx, "tenant-b")
	require.NoError(t, err)

	g.Close()

	assert.True(t, a.released.Load())
	assert.True(t, b.released.Load())
	assert.Zero(t, g.Len())
}
