package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	_ "time/tzdata"
)

// ServerConfig configures the HTTP server
type ServerConfig struct {
	Port         int           `yaml:"port" validate:"gt=0,lte=65535"`
	ReadTimeout  time.Duration `yaml:"readTimeout" validate:"gt=0"`
	WriteTimeout time.Duration `yaml:"writeTimeout" validate:"gt=0"`
	IdleTimeout  time.Duration `yaml:"idleTimeout" validate:"gt=0"`
}

// PlannerConfig configures the journey search
type PlannerConfig struct {
	Strategy      string        `yaml:"strategy" validate:"oneof=first_visit earliest"`
	MaxExpansions int           `yaml:"maxExpansions" validate:"gt=0"`
	Timeout       time.Duration `yaml:"timeout" validate:"gt=0"`
	Timezone      string        `yaml:"timezone" validate:"required"`
}

// ScheduleConfig selects and tunes the schedule provider
type ScheduleConfig struct {
	Source       string        `yaml:"source" validate:"oneof=postgres memory"`
	CacheEnabled bool          `yaml:"cacheEnabled"`
	CacheTTL     time.Duration `yaml:"cacheTTL" validate:"gt=0"`
}

// CacheConfig tunes the journey result cache
type CacheConfig struct {
	Enabled    bool          `yaml:"enabled"`
	JourneyTTL time.Duration `yaml:"journeyTTL" validate:"gt=0"`
	LockTTL    time.Duration `yaml:"lockTTL" validate:"gt=0"`
	LockWait   time.Duration `yaml:"lockWait" validate:"gt=0"`
}

// RateLimitConfig sets per-client request budgets; zero disables a window
type RateLimitConfig struct {
	PerSecond int `yaml:"perSecond" validate:"gte=0"`
	PerDay    int `yaml:"perDay" validate:"gte=0"`
}

// DatabaseConfig locates the rail network database and sizes its pool
type DatabaseConfig struct {
	Host            string        `yaml:"host" validate:"required"`
	Port            int           `yaml:"port" validate:"gt=0,lte=65535"`
	Name            string        `yaml:"name" validate:"required"`
	User            string        `yaml:"user" validate:"required"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode" validate:"oneof=disable allow prefer require verify-ca verify-full"`
	MinConns        int32         `yaml:"minConns" validate:"gte=0"`
	MaxConns        int32         `yaml:"maxConns" validate:"gt=0,gtefield=MinConns"`
	MaxConnLifetime time.Duration `yaml:"maxConnLifetime" validate:"gt=0"`
	MaxConnIdleTime time.Duration `yaml:"maxConnIdleTime" validate:"gt=0"`
	ConnectTimeout  time.Duration `yaml:"connectTimeout" validate:"gt=0"`
	// SimpleProtocol disables prepared statements, needed behind transaction-mode poolers
	SimpleProtocol bool `yaml:"simpleProtocol"`
}

// RedisConfig locates the cache and rate limit store
type RedisConfig struct {
	Host         string        `yaml:"host" validate:"required"`
	Port         int           `yaml:"port" validate:"gt=0,lte=65535"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db" validate:"gte=0"`
	TLS          bool          `yaml:"tls"`
	PoolSize     int           `yaml:"poolSize" validate:"gt=0"`
	MinIdleConns int           `yaml:"minIdleConns" validate:"gte=0"`
	DialTimeout  time.Duration `yaml:"dialTimeout" validate:"gt=0"`
	ReadTimeout  time.Duration `yaml:"readTimeout" validate:"gt=0"`
	WriteTimeout time.Duration `yaml:"writeTimeout" validate:"gt=0"`
}

// AppConfig is the application configuration
type AppConfig struct {
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Server    ServerConfig    `yaml:"server"`
	Planner   PlannerConfig   `yaml:"planner"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Cache     CacheConfig     `yaml:"cache"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
}

// Default returns the configuration used when no file is present
func Default() AppConfig {
	return AppConfig{
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Name:            "railplanner",
			User:            "postgres",
			SSLMode:         "disable",
			MinConns:        5,
			MaxConns:        20,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 30 * time.Minute,
			ConnectTimeout:  10 * time.Second,
		},
		Redis: RedisConfig{
			Host:         "localhost",
			Port:         6379,
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Planner: PlannerConfig{
			Strategy:      "first_visit",
			MaxExpansions: 5000,
			Timeout:       10 * time.Second,
			Timezone:      "Asia/Hong_Kong",
		},
		Schedule: ScheduleConfig{
			Source:       "memory",
			CacheEnabled: false,
			CacheTTL:     5 * time.Minute,
		},
		Cache: CacheConfig{
			Enabled:    true,
			JourneyTTL: 10 * time.Minute,
			LockTTL:    5 * time.Second,
			LockWait:   3 * time.Second,
		},
		RateLimit: RateLimitConfig{
			PerSecond: 10,
			PerDay:    10000,
		},
	}
}

// LoadFromEnv loads the file named by RAIL_CONFIG, or config.yml
func LoadFromEnv() (AppConfig, error) {
	path := os.Getenv("RAIL_CONFIG")
	if path == "" {
		path = "config.yml"
	}
	return Load(path)
}

// Load reads path over the defaults, applies environment overrides and validates.
// A missing file is not an error.
func Load(path string) (AppConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return AppConfig{}, fmt.Errorf("failed to read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return AppConfig{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return AppConfig{}, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return AppConfig{}, fmt.Errorf("invalid config: %w", err)
	}
	if _, err := cfg.Location(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

// Location resolves the planner timezone
func (c AppConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Planner.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Planner.Timezone, err)
	}
	return loc, nil
}

func applyEnv(cfg *AppConfig) error {
	texts := map[string]*string{
		"DB_HOST":          &cfg.Database.Host,
		"DB_NAME":          &cfg.Database.Name,
		"DB_USER":          &cfg.Database.User,
		"DB_PASSWORD":      &cfg.Database.Password,
		"DB_SSLMODE":       &cfg.Database.SSLMode,
		"REDIS_HOST":       &cfg.Redis.Host,
		"REDIS_PASSWORD":   &cfg.Redis.Password,
		"PLANNER_STRATEGY": &cfg.Planner.Strategy,
		"SCHEDULE_SOURCE":  &cfg.Schedule.Source,
	}
	for name, dst := range texts {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"API_PORT":   &cfg.Server.Port,
		"DB_PORT":    &cfg.Database.Port,
		"REDIS_PORT": &cfg.Redis.Port,
		"REDIS_DB":   &cfg.Redis.DB,
	}
	for name, dst := range ints {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", name, v, err)
			}
			*dst = n
		}
	}

	conns := map[string]*int32{
		"DB_MIN_CONNS": &cfg.Database.MinConns,
		"DB_MAX_CONNS": &cfg.Database.MaxConns,
	}
	for name, dst := range conns {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.ParseInt(v, 10, 32)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", name, v, err)
			}
			*dst = int32(n)
		}
	}

	flags := map[string]*bool{
		"REDIS_TLS_ENABLED":  &cfg.Redis.TLS,
		"DB_SIMPLE_PROTOCOL": &cfg.Database.SimpleProtocol,
	}
	for name, dst := range flags {
		if v := os.Getenv(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", name, v, err)
			}
			*dst = b
		}
	}

	return nil
}
