package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/stepgraph/pkg/adapters/redis"
	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, opts ...redis.Option) (*redis.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	store := redis.NewFromClient(client, opts...)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisGraphStore_Contract(t *testing.T) {
	store, _ := newStore(t)
	ports.RunGraphStoreContract(t, store.Graphs())
}

func TestRedisRunStore_Contract(t *testing.T) {
	store, _ := newStore(t)
	ports.RunRunStoreContract(t, store.Runs())
}

func TestRedisSessionStore_Contract(t *testing.T) {
	store, _ := newStore(t, redis.WithSessionTTL(time.Hour))
	ports.RunSessionStoreContract(t, store.Sessions())
}

func TestRedisStore_KeyLayout(t *testing.T) {
	store, mr := newStore(t, redis.WithPrefix("test:"))
	ctx := context.Background()

	g := &domain.GraphDefinition{
		ID:        "g1",
		StartNode: "a",
		Nodes:     map[string]domain.NodeDefinition{"a": {Name: "a", Tool: "noop"}},
	}
	require.NoError(t, store.Graphs().Save(ctx, g))
	require.NoError(t, store.Runs().Save(ctx, domain.NewRunRecord("r1", "g1", "a", nil, 10, time.Now())))

	assert.True(t, mr.Exists("test:graph:g1"))
	assert.True(t, mr.Exists("test:index:graph"))
	assert.True(t, mr.Exists("test:run:r1"))
	assert.True(t, mr.Exists("test:index:run"))
	assert.NoError(t, store.Ping(ctx))
}

func TestRedisRunStore_TTLExpiration(t *testing.T) {
	store, mr := newStore(t, redis.WithRunTTL(time.Second))
	runs := store.Runs()
	ctx := context.Background()

	require.NoError(t, runs.Save(ctx, domain.NewRunRecord("short-lived", "g", "a", nil, 10, time.Now())))

	ids, err := runs.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, "short-lived")

	// Expire the key inside miniredis.
	mr.FastForward(2 * time.Second)

	_, err = runs.Get(ctx, "short-lived")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)

	// The index is pruned against wall-clock time.
	time.Sleep(1200 * time.Millisecond)
	ids, err = runs.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRedisGraphStore_IgnoresRunTTL(t *testing.T) {
	store, mr := newStore(t, redis.WithRunTTL(time.Second))
	ctx := context.Background()

	g := &domain.GraphDefinition{
		ID:        "durable",
		StartNode: "a",
		Nodes:     map[string]domain.NodeDefinition{"a": {Name: "a", Tool: "noop"}},
	}
	require.NoError(t, store.Graphs().Save(ctx, g))
	mr.FastForward(time.Hour)

	_, err := store.Graphs().Get(ctx, "durable")
	assert.NoError(t, err)
}

func TestRedisStore_CorruptPayload(t *testing.T) {
	store, mr := newStore(t)
	require.NoError(t, mr.Set(redis.DefaultPrefix+"run:bad", "{not json"))

	_, err := store.Runs().Get(context.Background(), "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrRunNotFound)
}
