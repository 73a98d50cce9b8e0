package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/passbi/railplanner/internal/cache"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// cachedHop is the cached answer of one hop lookup, including "no departure"
type cachedHop struct {
	Found     bool      `json:"found"`
	Departure Departure `json:"departure"`
}

// CachedProvider memoizes hop answers in Redis and collapses concurrent
// identical lookups. Cache failures fall through to the wrapped provider.
type CachedProvider struct {
	next          Provider
	store         *cache.Store
	ttl           time.Duration
	lookupTimeout time.Duration
	group         singleflight.Group
}

// defaultLookupTimeout bounds one shared lookup against the wrapped provider
const defaultLookupTimeout = 5 * time.Second

// NewCachedProvider wraps next with a Redis-backed hop cache
func NewCachedProvider(next Provider, store *cache.Store, ttl time.Duration) *CachedProvider {
	return &CachedProvider{next: next, store: store, ttl: ttl, lookupTimeout: defaultLookupTimeout}
}

// EarliestDeparture implements Provider
func (c *CachedProvider) EarliestDeparture(ctx context.Context, req HopRequest) (Departure, error) {
	requestKey := req.Key()
	key := cache.HopKey(requestKey)

	var hit cachedHop
	found, err := c.store.GetJSON(ctx, key, &hit)
	if err != nil {
		log.Warn().Err(err).Str("hop", requestKey).Msg("hop cache read failed")
	}
	if found {
		return hit.result()
	}

	// the shared lookup is detached from the caller that started it; every
	// waiter stops at its own deadline instead
	ch := c.group.DoChan(requestKey, func() (interface{}, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.lookupTimeout)
		defer cancel()

		dep, err := c.next.EarliestDeparture(flightCtx, req)
		if err != nil && !errors.Is(err, ErrNoDeparture) {
			return nil, err
		}

		entry := cachedHop{Found: err == nil, Departure: dep}
		if err := c.store.SetJSON(flightCtx, key, entry, c.ttl); err != nil {
			log.Warn().Err(err).Str("hop", requestKey).Msg("hop cache write failed")
		}
		return entry, nil
	})

	select {
	case <-ctx.Done():
		return Departure{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Departure{}, res.Err
		}
		return res.Val.(cachedHop).result()
	}
}

func (h cachedHop) result() (Departure, error) {
	if !h.Found {
		return Departure{}, ErrNoDeparture
	}
	return h.Departure, nil
}
