package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/passbi/railplanner/internal/cache"
	"github.com/passbi/railplanner/internal/models"
	"github.com/passbi/railplanner/internal/network"
	"github.com/passbi/railplanner/internal/planner"
	"github.com/passbi/railplanner/internal/schedule"
	"github.com/rs/zerolog/log"
)

// HealthCheck reports the state of one dependency
type HealthCheck func(ctx context.Context) error

// Config tunes the handlers
type Config struct {
	// CacheTTL is how long journey answers stay in Redis
	CacheTTL time.Duration
	// LockTTL bounds how long one request may hold the computation lock
	LockTTL time.Duration
	// LockWait is how long a request waits for another one computing the same journey
	LockWait time.Duration
	// Checks are run by /health, keyed by dependency name
	Checks map[string]HealthCheck
	// Board serves station departures; nil disables the endpoint
	Board schedule.Board
	// Location resolves "now" for the departures board
	Location *time.Location
}

// Handler serves the journey API
type Handler struct {
	planner  *planner.Planner
	registry network.Registry
	store    *cache.Store // nil disables caching
	board    schedule.Board
	config   Config
	now      func() time.Time
}

// NewHandler creates the API handlers
func NewHandler(p *planner.Planner, store *cache.Store, config Config) *Handler {
	if config.CacheTTL <= 0 {
		config.CacheTTL = 10 * time.Minute
	}
	if config.LockTTL <= 0 {
		config.LockTTL = 5 * time.Second
	}
	if config.LockWait <= 0 {
		config.LockWait = 3 * time.Second
	}

	if config.Location == nil {
		config.Location = time.Local
	}

	h := &Handler{
		planner:  p,
		registry: p.Registry(),
		store:    store,
		board:    config.Board,
		config:   config,
	}
	h.now = func() time.Time { return time.Now().In(h.config.Location) }
	return h
}

// Register mounts the routes on app
func (h *Handler) Register(app *fiber.App) {
	app.Get("/health", h.Health)

	v1 := app.Group("/v1")
	v1.Get("/journey", h.Journey)
	v1.Get("/stations/:id", h.Station)
	v1.Get("/stations/:id/departures", h.StationDepartures)
	v1.Get("/strategies", h.Strategies)
}

// JourneyResponse is the API response structure
type JourneyResponse struct {
	Legs []models.JourneyLeg `json:"legs"`
}

// Journey handles the /v1/journey endpoint
func (h *Handler) Journey(c *fiber.Ctx) error {
	query := models.JourneyQuery{
		FromStationID: strings.TrimSpace(c.Query("from")),
		ToStationID:   strings.TrimSpace(c.Query("to")),
		DepartureTime: strings.TrimSpace(c.Query("time")),
		Strategy:      strings.TrimSpace(c.Query("strategy")),
	}

	if query.FromStationID == "" || query.ToStationID == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "missing required parameters: from and to",
		})
	}

	if query.Strategy != "" && !knownStrategy(query.Strategy) {
		return c.Status(400).JSON(fiber.Map{
			"error": fmt.Sprintf("unknown strategy %q", query.Strategy),
		})
	}

	legs, err := h.journey(c.Context(), query)
	if err != nil {
		return plannerError(c, err)
	}

	return c.JSON(JourneyResponse{Legs: legs})
}

// journey computes a journey with caching. Queries without an explicit
// departure time depend on the clock and are never cached.
func (h *Handler) journey(ctx context.Context, query models.JourneyQuery) ([]models.JourneyLeg, error) {
	if h.store == nil || query.DepartureTime == "" {
		return h.compute(ctx, query)
	}

	strategy := h.planner.StrategyFor(query.Strategy).Name()
	cacheKey := cache.JourneyKey(query.FromStationID, query.ToStationID, query.DepartureTime, strategy)
	lockKey := cache.LockKey(cacheKey)

	cached, err := h.store.GetJourney(ctx, cacheKey)
	if err != nil {
		log.Warn().Err(err).Str("key", cacheKey).Msg("journey cache read failed")
	} else if cached != nil {
		return cached, nil
	}

	acquired, err := h.store.AcquireLock(ctx, lockKey, h.config.LockTTL)
	if err != nil {
		log.Warn().Err(err).Msg("failed to acquire journey lock")
	} else if !acquired {
		// another request is computing this journey
		cached, err := h.store.WaitForLock(ctx, cacheKey, h.config.LockWait)
		if err == nil && cached != nil {
			return cached, nil
		}
	}

	defer func() {
		if acquired {
			if err := h.store.ReleaseLock(ctx, lockKey); err != nil {
				log.Warn().Err(err).Msg("failed to release journey lock")
			}
		}
	}()

	legs, err := h.compute(ctx, query)
	if err != nil {
		return nil, err
	}

	if err := h.store.SetJourney(ctx, cacheKey, legs, h.config.CacheTTL); err != nil {
		log.Warn().Err(err).Str("key", cacheKey).Msg("failed to cache journey")
	}

	return legs, nil
}

func (h *Handler) compute(ctx context.Context, query models.JourneyQuery) ([]models.JourneyLeg, error) {
	itinerary, err := h.planner.Plan(ctx, query)
	if err != nil {
		return nil, err
	}
	return planner.BuildLegs(ctx, h.registry, itinerary)
}

// plannerError maps planner failures to HTTP statuses
func plannerError(c *fiber.Ctx, err error) error {
	var stationErr *planner.StationError
	stationID := ""
	if errors.As(err, &stationErr) {
		stationID = stationErr.StationID
	}

	switch {
	case errors.Is(err, planner.ErrStationNotSupported):
		return c.Status(400).JSON(fiber.Map{
			"error":      "station not supported",
			"station_id": stationID,
		})
	case errors.Is(err, planner.ErrNotReachable):
		return c.Status(400).JSON(fiber.Map{
			"error":      "station not reachable",
			"station_id": stationID,
		})
	case errors.Is(err, planner.ErrInvalidQuery):
		return c.Status(400).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, planner.ErrSearchBudgetExceeded):
		log.Warn().Err(err).Msg("journey search budget exceeded")
		return c.Status(503).JSON(fiber.Map{
			"error": "journey search took too long, try again later",
		})
	default:
		log.Error().Err(err).Msg("journey computation failed")
		return c.Status(500).JSON(fiber.Map{
			"error": "internal server error",
		})
	}
}

func knownStrategy(name string) bool {
	for _, s := range planner.GetAllStrategies() {
		if s.Name() == name {
			return true
		}
	}
	return false
}

// StationResponse describes a station and the sub-routes serving it
type StationResponse struct {
	ID        string               `json:"id"`
	Name      models.LocalizedName `json:"name"`
	SubRoutes []StationSubRoute    `json:"sub_routes"`
}

// StationSubRoute is one sub-route membership of a station
type StationSubRoute struct {
	SubRouteID string `json:"sub_route_id"`
	RouteID    string `json:"route_id"`
	Sequence   int    `json:"sequence"`
}

// Station handles the /v1/stations/:id endpoint
func (h *Handler) Station(c *fiber.Ctx) error {
	id := c.Params("id")
	ctx := c.Context()

	station, err := h.registry.Station(ctx, id)
	if errors.Is(err, network.ErrNotFound) {
		return c.Status(404).JSON(fiber.Map{
			"error": fmt.Sprintf("station %s not found", id),
		})
	}
	if err != nil {
		log.Error().Err(err).Str("station", id).Msg("station lookup failed")
		return c.Status(500).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	mems, err := h.registry.SubRoutesOf(ctx, id)
	if err != nil && !errors.Is(err, network.ErrNotFound) {
		log.Error().Err(err).Str("station", id).Msg("sub-route lookup failed")
		return c.Status(500).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	subRoutes := make([]StationSubRoute, 0, len(mems))
	for _, m := range mems {
		subRoutes = append(subRoutes, StationSubRoute{
			SubRouteID: m.SubRouteID,
			RouteID:    m.RouteID,
			Sequence:   m.Sequence,
		})
	}

	return c.JSON(StationResponse{
		ID:        station.ID,
		Name:      station.Name,
		SubRoutes: subRoutes,
	})
}

// Strategies handles the /v1/strategies endpoint
func (h *Handler) Strategies(c *fiber.Ctx) error {
	names := []string{}
	for _, s := range planner.GetAllStrategies() {
		names = append(names, s.Name())
	}
	return c.JSON(fiber.Map{
		"strategies": names,
		"default":    h.planner.StrategyFor("").Name(),
	})
}

// Health handles the /health endpoint
func (h *Handler) Health(c *fiber.Ctx) error {
	ctx := c.Context()

	checks := fiber.Map{}
	healthy := true
	for name, check := range h.config.Checks {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			healthy = false
			continue
		}
		checks[name] = "ok"
	}

	status := "healthy"
	httpStatus := 200
	if !healthy {
		status = "unhealthy"
		httpStatus = 503
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checks": checks,
	})
}
