package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/passbi/railplanner/internal/api"
	"github.com/passbi/railplanner/internal/cache"
	"github.com/passbi/railplanner/internal/config"
	"github.com/passbi/railplanner/internal/db"
	"github.com/passbi/railplanner/internal/logging"
	"github.com/passbi/railplanner/internal/middleware"
	"github.com/passbi/railplanner/internal/network"
	"github.com/passbi/railplanner/internal/planner"
	"github.com/passbi/railplanner/internal/schedule"
	"github.com/rs/zerolog/log"
)

func main() {
	logging.Setup()
	log.Info().Msg("Starting rail planner API server...")

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid planner timezone")
	}

	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()
	log.Info().Msg("Database connection established")

	rdb, err := cache.Connect(ctx, cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	store := cache.NewStore(rdb)
	log.Info().Msg("Redis connection established")

	snap, err := network.LoadSnapshot(ctx, pool)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load rail network")
	}

	provider, board, err := scheduleProvider(ctx, cfg, pool, store)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up schedule provider")
	}

	p := planner.NewPlanner(snap, provider, planner.Options{
		MaxExpansions: cfg.Planner.MaxExpansions,
		Timeout:       cfg.Planner.Timeout,
		Strategy:      cfg.Planner.Strategy,
		Location:      loc,
	})

	var journeyStore *cache.Store
	if cfg.Cache.Enabled {
		journeyStore = store
	}
	handler := api.NewHandler(p, journeyStore, api.Config{
		CacheTTL: cfg.Cache.JourneyTTL,
		LockTTL:  cfg.Cache.LockTTL,
		LockWait: cfg.Cache.LockWait,
		Board:    board,
		Location: loc,
		Checks: map[string]api.HealthCheck{
			"database": func(ctx context.Context) error { return db.HealthCheck(ctx, pool) },
			"redis":    store.HealthCheck,
		},
	})

	app := fiber.New(fiber.Config{
		AppName:      "Rail Planner API",
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorHandler: customErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
	app.Use(middleware.NewRateLimiter(rdb, middleware.RateLimits{
		PerSecond: cfg.RateLimit.PerSecond,
		PerDay:    cfg.RateLimit.PerDay,
	}).Handler())

	handler.Register(app)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(404).JSON(fiber.Map{
			"error": "endpoint not found",
		})
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)

	go reloadNetworkOnHangup(pool, snap)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Info().Msg("Shutting down gracefully...")
		if err := app.Shutdown(); err != nil {
			log.Error().Err(err).Msg("Error during shutdown")
		}
	}()

	log.Info().
		Str("addr", addr).
		Str("strategy", cfg.Planner.Strategy).
		Str("schedule", cfg.Schedule.Source).
		Msgf("Journey search: http://localhost%s/v1/journey?from=ID&to=ID&time=HH:MM:SS", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatal().Err(err).Msg("Failed to start server")
	}
}

// scheduleProvider builds the configured provider; the in-memory timetable
// or the database also serve the departures board
func scheduleProvider(ctx context.Context, cfg config.AppConfig, pool *pgxpool.Pool, store *cache.Store) (schedule.Provider, schedule.Board, error) {
	var provider schedule.Provider
	var board schedule.Board

	switch cfg.Schedule.Source {
	case "memory":
		timetable, err := schedule.LoadTimetable(ctx, pool)
		if err != nil {
			return nil, nil, err
		}
		provider, board = timetable, timetable
	default:
		pg := schedule.NewPostgresProvider(pool)
		provider, board = pg, pg
	}

	if cfg.Schedule.CacheEnabled {
		provider = schedule.NewCachedProvider(provider, store, cfg.Schedule.CacheTTL)
	}
	return provider, board, nil
}

// reloadNetworkOnHangup swaps in a freshly loaded network on SIGHUP
func reloadNetworkOnHangup(pool *pgxpool.Pool, snap *network.Snapshot) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGHUP)

	for range sigChan {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		fresh, err := network.LoadSnapshot(ctx, pool)
		cancel()
		if err != nil {
			log.Error().Err(err).Msg("Network reload failed, keeping the current network")
			continue
		}
		snap.Replace(fresh)
		stations, subRoutes, transfers := snap.Counts()
		log.Info().
			Int("stations", stations).
			Int("sub_routes", subRoutes).
			Int("transfers", transfers).
			Msg("Network reloaded")
	}
}

// customErrorHandler handles errors returned from handlers
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	log.Error().Err(err).Int("status", code).Str("path", c.Path()).Msg("request failed")

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
