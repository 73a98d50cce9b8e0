package schedule_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/passbi/railplanner/internal/cache"
	"github.com/passbi/railplanner/internal/schedule"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	mu    sync.Mutex
	calls int
	dep   schedule.Departure
	err   error
}

func (p *countingProvider) EarliestDeparture(_ context.Context, _ schedule.HopRequest) (schedule.Departure, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.dep, p.err
}

func (p *countingProvider) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func newCachedProvider(t *testing.T, next schedule.Provider) (*schedule.CachedProvider, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return schedule.NewCachedProvider(next, cache.NewStore(rdb), time.Minute), mr
}

var hop = schedule.HopRequest{
	FromStationID:  "R11",
	ToStationID:    "R13",
	SubRouteIDs:    []string{"R-MAIN"},
	Direction:      schedule.DirectionOutbound,
	NotEarlierThan: schedule.MustParseServiceTime("08:00"),
}

func TestCachedProviderHit(t *testing.T) {
	next := &countingProvider{dep: schedule.Departure{
		TripID: "R-MAIN-0-00", RouteID: "R", SubRouteID: "R-MAIN",
		FromStationID: "R11", ToStationID: "R13",
		Departure: schedule.MustParseServiceTime("08:03"), Arrival: schedule.MustParseServiceTime("08:09"),
	}}
	provider, mr := newCachedProvider(t, next)
	ctx := context.Background()

	first, err := provider.EarliestDeparture(ctx, hop)
	require.NoError(t, err)
	second, err := provider.EarliestDeparture(ctx, hop)
	require.NoError(t, err)

	assert.Equal(t, next.dep, first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, next.count())

	t.Run("Entry expires", func(t *testing.T) {
		mr.FastForward(2 * time.Minute)
		_, err := provider.EarliestDeparture(ctx, hop)
		require.NoError(t, err)
		assert.Equal(t, 2, next.count())
	})
}

func TestCachedProviderNegativeAnswer(t *testing.T) {
	next := &countingProvider{err: schedule.ErrNoDeparture}
	provider, _ := newCachedProvider(t, next)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := provider.EarliestDeparture(ctx, hop)
		assert.ErrorIs(t, err, schedule.ErrNoDeparture)
	}
	assert.Equal(t, 1, next.count())
}

func TestCachedProviderFaultIsNotCached(t *testing.T) {
	boom := errors.New("database unavailable")
	next := &countingProvider{err: boom}
	provider, _ := newCachedProvider(t, next)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := provider.EarliestDeparture(ctx, hop)
		assert.ErrorIs(t, err, boom)
	}
	assert.Equal(t, 2, next.count())
}

func TestCachedProviderRedisDown(t *testing.T) {
	next := &countingProvider{dep: schedule.Departure{TripID: "R-MAIN-0-00"}}
	provider, mr := newCachedProvider(t, next)
	mr.Close()

	dep, err := provider.EarliestDeparture(context.Background(), hop)
	require.NoError(t, err)
	assert.Equal(t, "R-MAIN-0-00", dep.TripID)
	assert.Equal(t, 1, next.count())
}

// gatedProvider blocks every lookup until release is closed or its context ends
type gatedProvider struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
	dep     schedule.Departure
}

func (p *gatedProvider) EarliestDeparture(ctx context.Context, _ schedule.HopRequest) (schedule.Departure, error) {
	p.once.Do(func() { close(p.started) })
	select {
	case <-p.release:
		return p.dep, nil
	case <-ctx.Done():
		return schedule.Departure{}, ctx.Err()
	}
}

func TestCachedProviderSharedLookupOutlivesFirstCaller(t *testing.T) {
	next := &gatedProvider{
		started: make(chan struct{}),
		release: make(chan struct{}),
		dep:     schedule.Departure{TripID: "R-MAIN-0-00", RouteID: "R", SubRouteID: "R-MAIN"},
	}
	provider, _ := newCachedProvider(t, next)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := provider.EarliestDeparture(firstCtx, hop)
		firstErr <- err
	}()
	<-next.started

	type answer struct {
		dep schedule.Departure
		err error
	}
	second := make(chan answer, 1)
	go func() {
		dep, err := provider.EarliestDeparture(context.Background(), hop)
		second <- answer{dep, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(next.release)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, "R-MAIN-0-00", got.dep.TripID)

	t.Run("Answer is cached for later callers", func(t *testing.T) {
		dep, err := provider.EarliestDeparture(context.Background(), hop)
		require.NoError(t, err)
		assert.Equal(t, next.dep, dep)
	})
}
