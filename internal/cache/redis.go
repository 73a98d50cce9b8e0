package cache

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/passbi/railplanner/internal/config"
	"github.com/passbi/railplanner/internal/models"
	"github.com/redis/go-redis/v9"
)

// Options maps cfg onto go-redis client options
func Options(cfg config.RedisConfig) *redis.Options {
	opts := &redis.Options{
		Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	}

	// managed Redis requires TLS
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
			ServerName: cfg.Host,
		}
	}

	return opts
}

// Connect creates a client for cfg and fails unless Redis answers
func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(Options(cfg))

	ctx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", client.Options().Addr, err)
	}
	return client, nil
}

// Store wraps a Redis client with the cache operations used by the planner and API
type Store struct {
	client *redis.Client
}

// NewStore creates a store on top of an existing client
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// Client returns the underlying Redis client
func (s *Store) Client() *redis.Client {
	return s.client
}

// JourneyKey generates a cache key for a journey query
func JourneyKey(from, to, departure, strategy string) string {
	data := fmt.Sprintf("%s|%s|%s", from, to, departure)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("journey:%x:%s", hash[:8], strategy)
}

// HopKey generates a cache key for a schedule hop lookup
func HopKey(requestKey string) string {
	hash := sha256.Sum256([]byte(requestKey))
	return fmt.Sprintf("hop:%x", hash[:12])
}

// DeparturesKey generates a cache key for a station departures board
func DeparturesKey(stationID string, fromSecs, limit int) string {
	return fmt.Sprintf("departures:%s:%d:%d", stationID, fromSecs, limit)
}

// LockKey generates a mutex lock key
func LockKey(key string) string {
	return fmt.Sprintf("lock:%s", key)
}

// GetJSON decodes a cached value into dest. It reports false on a cache miss.
func (s *Store) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached value %s: %w", key, err)
	}
	return true, nil
}

// SetJSON caches a value as JSON
func (s *Store) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

// GetJourney retrieves cached journey legs, nil on a cache miss
func (s *Store) GetJourney(ctx context.Context, key string) ([]models.JourneyLeg, error) {
	var legs []models.JourneyLeg
	found, err := s.GetJSON(ctx, key, &legs)
	if err != nil || !found {
		return nil, err
	}
	if legs == nil {
		legs = []models.JourneyLeg{}
	}
	return legs, nil
}

// SetJourney caches journey legs
func (s *Store) SetJourney(ctx context.Context, key string, legs []models.JourneyLeg, ttl time.Duration) error {
	return s.SetJSON(ctx, key, legs, ttl)
}

// AcquireLock attempts to acquire a distributed lock
// Returns true if lock was acquired, false if already locked
func (s *Store) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, "1", ttl).Result()
}

// ReleaseLock releases a distributed lock
func (s *Store) ReleaseLock(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// WaitForLock waits for a lock to be released and then retrieves the result
// This implements the "wait for result" pattern to avoid thundering herd
func (s *Store) WaitForLock(ctx context.Context, journeyKey string, maxWait time.Duration) ([]models.JourneyLeg, error) {
	lockKey := LockKey(journeyKey)
	deadline := time.Now().Add(maxWait)

	for time.Now().Before(deadline) {
		exists, err := s.client.Exists(ctx, lockKey).Result()
		if err != nil {
			return nil, err
		}

		if exists == 0 {
			return s.GetJourney(ctx, journeyKey)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}

	return nil, fmt.Errorf("timeout waiting for lock")
}

// HealthCheck performs a health check on the Redis connection
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("Redis ping failed: %w", err)
	}
	return nil
}
