package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/passbi/railplanner/internal/cache"
	"github.com/passbi/railplanner/internal/models"
	"github.com/passbi/railplanner/internal/planner"
	"github.com/passbi/railplanner/internal/testnet"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	app   *fiber.App
	store *cache.Store
	mr    *miniredis.Miniredis
}

func newTestServer(t *testing.T, config Config) *testServer {
	t.Helper()
	snap, timetable := testnet.New()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	store := cache.NewStore(rdb)

	if config.Board == nil {
		config.Board = timetable
	}
	h := NewHandler(planner.NewPlanner(snap, timetable, planner.Options{}), store, config)

	app := fiber.New()
	h.Register(app)
	return &testServer{app: app, store: store, mr: mr}
}

func (s *testServer) get(t *testing.T, target string, out interface{}) int {
	t.Helper()
	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, target, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestJourney(t *testing.T) {
	s := newTestServer(t, Config{})

	var body JourneyResponse
	status := s.get(t, "/v1/journey?from=R11&to=C26&time=08:00:00", &body)
	require.Equal(t, 200, status)
	require.Len(t, body.Legs, 2)

	first := body.Legs[0]
	assert.Equal(t, "R", first.RouteID)
	assert.Equal(t, "East Rail Line", first.RouteName.EN)
	assert.Equal(t, "沙田", first.FromStationName.TC)
	assert.Equal(t, models.Schedule{DepartureTime: "08:03:00", ArrivalTime: "08:09:00", Duration: 360}, first.Schedule)

	second := body.Legs[1]
	assert.Equal(t, "C24", second.FromStationID)
	assert.Equal(t, "Wu Kai Sha", second.ToStationName.EN)
	assert.Equal(t, "08:15:00", second.Schedule.DepartureTime)

	t.Run("Result is cached", func(t *testing.T) {
		key := cache.JourneyKey("R11", "C26", "08:00:00", "first_visit")
		assert.True(t, s.mr.Exists(key))
		assert.False(t, s.mr.Exists(cache.LockKey(key)))
	})

	t.Run("Cached result is served", func(t *testing.T) {
		key := cache.JourneyKey("R11", "C26", "08:00:00", "first_visit")
		marker := []models.JourneyLeg{{RouteID: "CACHED"}}
		require.NoError(t, s.store.SetJourney(context.Background(), key, marker, time.Minute))

		var cached JourneyResponse
		require.Equal(t, 200, s.get(t, "/v1/journey?from=R11&to=C26&time=08:00:00", &cached))
		assert.Equal(t, marker, cached.Legs)
	})

	t.Run("Strategy is part of the cache key", func(t *testing.T) {
		var other JourneyResponse
		require.Equal(t, 200, s.get(t, "/v1/journey?from=R11&to=C26&time=08:00:00&strategy=earliest", &other))
		assert.Len(t, other.Legs, 2)
		assert.True(t, s.mr.Exists(cache.JourneyKey("R11", "C26", "08:00:00", "earliest")))
	})
}

func TestJourneyWaitsForLockThenComputes(t *testing.T) {
	s := newTestServer(t, Config{LockWait: 200 * time.Millisecond})
	key := cache.JourneyKey("R11", "R13", "08:00:00", "first_visit")
	require.NoError(t, s.mr.Set(cache.LockKey(key), "1"))

	var body JourneyResponse
	require.Equal(t, 200, s.get(t, "/v1/journey?from=R11&to=R13&time=08:00:00", &body))
	require.Len(t, body.Legs, 1)
	assert.Equal(t, "R13", body.Legs[0].ToStationID)
}

func TestJourneyErrors(t *testing.T) {
	s := newTestServer(t, Config{})

	tests := []struct {
		name      string
		target    string
		status    int
		stationID string
	}{
		{"Missing destination", "/v1/journey?from=R11", 400, ""},
		{"Unknown strategy", "/v1/journey?from=R11&to=C26&strategy=fastest", 400, ""},
		{"Bad time", "/v1/journey?from=R11&to=C26&time=8pm", 400, ""},
		{"Time past the service day", "/v1/journey?from=R11&to=C26&time=99:00:00", 400, ""},
		{"Same station", "/v1/journey?from=R11&to=R11&time=08:00", 400, ""},
		{"Station without sub-routes", "/v1/journey?from=R11&to=Z99&time=08:00", 400, "Z99"},
		{"After last service", "/v1/journey?from=R11&to=C26&time=23:00:00", 400, "C26"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]interface{}
			assert.Equal(t, tt.status, s.get(t, tt.target, &body))
			assert.NotEmpty(t, body["error"])
			if tt.stationID != "" {
				assert.Equal(t, tt.stationID, body["station_id"])
			}
		})
	}

	t.Run("Failures are not cached", func(t *testing.T) {
		assert.False(t, s.mr.Exists(cache.JourneyKey("R11", "C26", "23:00:00", "first_visit")))
	})
}

func TestStation(t *testing.T) {
	s := newTestServer(t, Config{})

	t.Run("Served station", func(t *testing.T) {
		var body StationResponse
		require.Equal(t, 200, s.get(t, "/v1/stations/R13", &body))
		assert.Equal(t, "University", body.Name.EN)
		assert.Equal(t, []StationSubRoute{{SubRouteID: "R-MAIN", RouteID: "R", Sequence: 4}}, body.SubRoutes)
	})

	t.Run("Station without sub-routes", func(t *testing.T) {
		var body StationResponse
		require.Equal(t, 200, s.get(t, "/v1/stations/Z99", &body))
		assert.Empty(t, body.SubRoutes)
	})

	t.Run("Unknown station", func(t *testing.T) {
		assert.Equal(t, 404, s.get(t, "/v1/stations/NOPE", nil))
	})
}

func TestStationDepartures(t *testing.T) {
	s := newTestServer(t, Config{})

	var body DeparturesResponse
	require.Equal(t, 200, s.get(t, "/v1/stations/R11/departures?time=08:00&limit=3", &body))
	assert.Equal(t, "Sha Tin", body.Station.Name.EN)
	assert.Equal(t, "08:00:00", body.CurrentTime)
	require.Equal(t, 3, body.Total)

	assert.Equal(t, "08:03:00", body.Departures[0].DepartureTime)
	assert.Equal(t, "R13", body.Departures[0].TerminusID)
	assert.Equal(t, 3, body.Departures[0].MinutesUntil)

	assert.Equal(t, "08:08:00", body.Departures[1].DepartureTime)
	assert.Equal(t, "R10", body.Departures[1].TerminusID)
	assert.Equal(t, 1, body.Departures[1].Direction)
	assert.Equal(t, "Tai Wai", body.Departures[1].TerminusName.EN)

	assert.Equal(t, "08:13:00", body.Departures[2].DepartureTime)
	assert.True(t, s.mr.Exists(cache.DeparturesKey("R11", 8*3600, 3)))

	t.Run("Bad time", func(t *testing.T) {
		assert.Equal(t, 400, s.get(t, "/v1/stations/R11/departures?time=noon", nil))
	})

	t.Run("Unknown station", func(t *testing.T) {
		assert.Equal(t, 404, s.get(t, "/v1/stations/NOPE/departures", nil))
	})
}

func TestStrategies(t *testing.T) {
	s := newTestServer(t, Config{})

	var body struct {
		Strategies []string `json:"strategies"`
		Default    string   `json:"default"`
	}
	require.Equal(t, 200, s.get(t, "/v1/strategies", &body))
	assert.ElementsMatch(t, []string{"first_visit", "earliest"}, body.Strategies)
	assert.Equal(t, "first_visit", body.Default)
}

func TestHealth(t *testing.T) {
	t.Run("Healthy", func(t *testing.T) {
		s := newTestServer(t, Config{Checks: map[string]HealthCheck{
			"redis": func(context.Context) error { return nil },
		}})
		var body map[string]interface{}
		assert.Equal(t, 200, s.get(t, "/health", &body))
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("Unhealthy", func(t *testing.T) {
		s := newTestServer(t, Config{Checks: map[string]HealthCheck{
			"redis":    func(context.Context) error { return nil },
			"database": func(context.Context) error { return errors.New("database ping failed") },
		}})
		var body map[string]interface{}
		assert.Equal(t, 503, s.get(t, "/health", &body))
		assert.Equal(t, "unhealthy", body["status"])
		checks := body["checks"].(map[string]interface{})
		assert.Equal(t, "ok", checks["redis"])
		assert.Equal(t, "database ping failed", checks["database"])
	})
}
