package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusfinder/internal/domain"
)

func newTestCache(t *testing.T) (*RedisResourceList, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := NewRedisClient("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisResourceList(client, time.Minute, nil), mr
}

func TestRedisResourceList_MissThenHit(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	items, gen, ok := c.Get(ctx)
	assert.False(t, ok)
	assert.Nil(t, items)
	assert.Equal(t, int64(0), gen)

	c.Set(ctx, gen, []domain.Resource{{ID: 1, Name: "HUB", Reviews: []domain.Review{}}})

	items, _, ok = c.Get(ctx)
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, "HUB", items[0].Name)
}

func TestRedisResourceList_InvalidateDropsStaleWrites(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	_, gen, ok := c.Get(ctx)
	require.False(t, ok)

	// a mutation commits while the listing is being built
	c.Invalidate(ctx)
	c.Set(ctx, gen, []domain.Resource{{ID: 1, Name: "stale"}})

	_, newGen, ok := c.Get(ctx)
	assert.False(t, ok)
	assert.Equal(t, gen+1, newGen)
}

func TestRedisResourceList_Expires(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, 0, []domain.Resource{{ID: 7}})
	mr.FastForward(2 * time.Minute)

	_, _, ok := c.Get(ctx)
	assert.False(t, ok)
}

func TestRedisResourceList_RedisDown(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	mr.Close()

	_, gen, ok := c.Get(ctx)
	assert.False(t, ok)
	assert.Equal(t, int64(-1), gen)
	c.Set(ctx, gen, []domain.Resource{{ID: 1}})
	c.Invalidate(ctx)
}

func TestNoop(t *testing.T) {
	var c ResourceList = Noop{}
	_, _, ok := c.Get(context.Background())
	assert.False(t, ok)
}
