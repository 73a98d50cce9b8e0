package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/passbi/railplanner/internal/graph"
	"github.com/passbi/railplanner/internal/models"
	"github.com/passbi/railplanner/internal/network"
	"github.com/passbi/railplanner/internal/schedule"
	"github.com/rs/zerolog/log"
)

const (
	defaultMaxExpansions = 5000
	defaultTimeout       = 10 * time.Second
)

// Options tune the planner
type Options struct {
	// MaxExpansions bounds how many stations one query may expand
	MaxExpansions int
	// Timeout bounds the wall time of one query
	Timeout time.Duration
	// Strategy is used when a query does not name one
	Strategy string
	// Location resolves "now" for queries without a departure time
	Location *time.Location
}

// Planner answers journey queries against a network registry and a schedule provider
type Planner struct {
	registry network.Registry
	provider schedule.Provider
	opts     Options
	now      func() time.Time
}

// NewPlanner creates a new planner instance
func NewPlanner(registry network.Registry, provider schedule.Provider, opts Options) *Planner {
	if opts.MaxExpansions <= 0 {
		opts.MaxExpansions = defaultMaxExpansions
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Strategy == "" {
		opts.Strategy = StrategyFirstVisit
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	return &Planner{
		registry: registry,
		provider: provider,
		opts:     opts,
		now:      time.Now,
	}
}

// Registry returns the network registry the planner reads
func (p *Planner) Registry() network.Registry {
	return p.registry
}

// StrategyFor resolves the strategy a query runs with
func (p *Planner) StrategyFor(name string) Strategy {
	if name == "" {
		name = p.opts.Strategy
	}
	return GetStrategy(name)
}

// Plan finds an itinerary from the query's origin to its destination leaving
// no earlier than the requested time. A single-ride connection is returned as
// soon as one exists; otherwise the network is searched.
func (p *Planner) Plan(ctx context.Context, q models.JourneyQuery) (models.Itinerary, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	started := time.Now()

	departure, err := p.departureOf(q.DepartureTime)
	if err != nil {
		return nil, err
	}
	if q.FromStationID == "" || q.ToStationID == "" {
		return nil, fmt.Errorf("%w: origin and destination are required", ErrInvalidQuery)
	}
	if q.FromStationID == q.ToStationID {
		return nil, fmt.Errorf("%w: origin and destination are the same station", ErrInvalidQuery)
	}

	fromMems, err := p.memberships(ctx, q.FromStationID)
	if err != nil {
		return nil, budget(err)
	}
	toMems, err := p.memberships(ctx, q.ToStationID)
	if err != nil {
		return nil, budget(err)
	}

	strategy := p.StrategyFor(q.Strategy)
	logger := log.With().
		Str("from", q.FromStationID).
		Str("to", q.ToStationID).
		Str("departure", departure.String()).
		Str("strategy", strategy.Name()).
		Logger()

	direct, err := earliestHop(ctx, p.provider, q.FromStationID, q.ToStationID, graph.Shared(fromMems, toMems), departure)
	if err == nil {
		logger.Debug().Dur("took", time.Since(started)).Msg("direct connection")
		return models.Itinerary{direct.Segment()}, nil
	}
	if !errors.Is(err, schedule.ErrNoDeparture) {
		return nil, budget(err)
	}

	adj, err := graph.Build(ctx, p.registry, q.FromStationID, q.ToStationID)
	if err != nil {
		return nil, budget(err)
	}

	tc := newTraversalContext(q.FromStationID, q.ToStationID, departure, adj, strategy)
	if err := tc.traverse(ctx, p.provider, p.opts.MaxExpansions); err != nil {
		logger.Debug().Err(err).Int("expansions", tc.Expansions()).Msg("search aborted")
		return nil, budget(err)
	}

	rides, err := tc.reconstruct()
	if err != nil {
		logger.Debug().Err(err).Int("expansions", tc.Expansions()).Msg("no journey")
		return nil, err
	}

	rides, err = tc.mergeRouteBoundary(ctx, p.provider, rides)
	if err != nil {
		return nil, budget(err)
	}

	itinerary := make(models.Itinerary, 0, len(rides))
	for _, r := range rides {
		itinerary = append(itinerary, r.Segment())
	}

	logger.Debug().
		Int("expansions", tc.Expansions()).
		Int("segments", len(itinerary)).
		Dur("took", time.Since(started)).
		Msg("journey planned")

	return itinerary, nil
}

// departureOf parses the requested departure, defaulting to the current time of day
func (p *Planner) departureOf(value string) (schedule.ServiceTime, error) {
	if value == "" {
		return schedule.ServiceTimeOf(p.now().In(p.opts.Location)), nil
	}
	t, err := schedule.ParseServiceTime(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	return t, nil
}

func (p *Planner) memberships(ctx context.Context, station string) ([]models.Membership, error) {
	mems, err := p.registry.SubRoutesOf(ctx, station)
	if errors.Is(err, network.ErrNotFound) {
		return nil, &StationError{StationID: station, Err: ErrStationNotSupported}
	}
	if err != nil {
		return nil, fmt.Errorf("sub-routes of %s: %w", station, err)
	}
	return mems, nil
}

// budget reports a hit deadline as an exhausted search budget
func budget(err error) error {
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrSearchBudgetExceeded) {
		return fmt.Errorf("%w: %v", ErrSearchBudgetExceeded, err)
	}
	return err
}
