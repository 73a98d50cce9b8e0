package cache

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/passbi/railplanner/internal/config"
	"github.com/passbi/railplanner/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewStore(rdb), mr
}

func TestJourneyKey(t *testing.T) {
	a := JourneyKey("R11", "C26", "08:00:00", "first_visit")
	b := JourneyKey("R11", "C26", "08:00:00", "first_visit")
	c := JourneyKey("C26", "R11", "08:00:00", "first_visit")
	d := JourneyKey("R11", "C26", "08:00:00", "earliest")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
	assert.Contains(t, a, "journey:")
	assert.Contains(t, d, ":earliest")
	assert.Equal(t, "lock:"+a, LockKey(a))
}

func TestJourneyRoundTrip(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	key := JourneyKey("R11", "R13", "08:00:00", "first_visit")

	t.Run("Miss returns nil without error", func(t *testing.T) {
		legs, err := store.GetJourney(ctx, key)
		require.NoError(t, err)
		assert.Nil(t, legs)
	})

	t.Run("Hit returns stored legs", func(t *testing.T) {
		legs := []models.JourneyLeg{{
			RouteID:       "R",
			FromStationID: "R11",
			ToStationID:   "R13",
			Schedule:      models.Schedule{DepartureTime: "08:03:00", ArrivalTime: "08:09:00", Duration: 360},
		}}
		require.NoError(t, store.SetJourney(ctx, key, legs, time.Minute))

		cached, err := store.GetJourney(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, legs, cached)
	})

	t.Run("Entry expires", func(t *testing.T) {
		mr.FastForward(2 * time.Minute)
		cached, err := store.GetJourney(ctx, key)
		require.NoError(t, err)
		assert.Nil(t, cached)
	})

	t.Run("Corrupt entry is an error", func(t *testing.T) {
		require.NoError(t, mr.Set(key, "{not json"))
		_, err := store.GetJourney(ctx, key)
		assert.Error(t, err)
	})
}

func TestLocks(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	key := JourneyKey("R11", "C26", "08:00:00", "first_visit")
	lockKey := LockKey(key)

	acquired, err := store.AcquireLock(ctx, lockKey, 5*time.Second)
	require.NoError(t, err)
	assert.True(t, acquired)

	acquired, err = store.AcquireLock(ctx, lockKey, 5*time.Second)
	require.NoError(t, err)
	assert.False(t, acquired)

	t.Run("Wait times out while locked", func(t *testing.T) {
		_, err := store.WaitForLock(ctx, key, 250*time.Millisecond)
		assert.Error(t, err)
	})

	t.Run("Wait returns result once released", func(t *testing.T) {
		legs := []models.JourneyLeg{{RouteID: "C"}}
		require.NoError(t, store.SetJourney(ctx, key, legs, time.Minute))
		require.NoError(t, store.ReleaseLock(ctx, lockKey))

		cached, err := store.WaitForLock(ctx, key, time.Second)
		require.NoError(t, err)
		assert.Equal(t, legs, cached)
	})
}

func TestHealthCheck(t *testing.T) {
	store, mr := newTestStore(t)
	assert.NoError(t, store.HealthCheck(context.Background()))

	mr.Close()
	assert.Error(t, store.HealthCheck(context.Background()))
}

func TestOptions(t *testing.T) {
	cfg := config.Default().Redis
	cfg.Host = "cache.internal"
	cfg.Port = 6380
	cfg.DB = 2

	opts := Options(cfg)
	assert.Equal(t, "cache.internal:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 10, opts.PoolSize)
	assert.Nil(t, opts.TLSConfig)

	t.Run("TLS", func(t *testing.T) {
		cfg.TLS = true
		opts := Options(cfg)
		require.NotNil(t, opts.TLSConfig)
		assert.Equal(t, "cache.internal", opts.TLSConfig.ServerName)
	})
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default().Redis
	cfg.Host = mr.Host()
	cfg.Port, _ = strconv.Atoi(mr.Port())

	client, err := Connect(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	assert.NoError(t, NewStore(client).HealthCheck(context.Background()))

	t.Run("Unreachable", func(t *testing.T) {
		mr.Close()
		_, err := Connect(context.Background(), cfg)
		assert.Error(t, err)
	})
}
