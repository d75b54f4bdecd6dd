package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/yeremiapane/periodic-tables/models"
)

// Config represents the overall application configuration. Values are layered:
// Default(), then the optional YAML file, then environment variables.
type Config struct {
	Env        string           `yaml:"env" envconfig:"APP_ENV"`
	Server     ServerConfig     `yaml:"server" envconfig:"SERVER"`
	Database   DatabaseConfig   `yaml:"database" envconfig:"DB"`
	Auth       AuthConfig       `yaml:"auth" envconfig:"AUTH"`
	Cache      CacheConfig      `yaml:"cache" envconfig:"CACHE"`
	Events     EventsConfig     `yaml:"events" envconfig:"EVENTS"`
	Restaurant RestaurantConfig `yaml:"restaurant" envconfig:"RESTAURANT"`
	Log        LogConfig        `yaml:"log" envconfig:"LOG"`
	Seed       SeedConfig       `yaml:"seed" envconfig:"SEED"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	AllowedOrigins  []string      `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	RateLimitPerSec float64       `yaml:"rate_limit_per_sec" envconfig:"RATE_LIMIT_PER_SEC"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST"`
	FrontendDir     string        `yaml:"frontend_dir" envconfig:"FRONTEND_DIR"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver" envconfig:"DRIVER"`
	DSN             string        `yaml:"dsn" envconfig:"DSN"`
	MaxOpenConns    int           `yaml:"max_open_conns" envconfig:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" envconfig:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" envconfig:"CONN_MAX_LIFETIME"`
	LogQueries      bool          `yaml:"log_queries" envconfig:"LOG_QUERIES"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" envconfig:"JWT_SECRET"`
	TokenTTL  time.Duration `yaml:"token_ttl" envconfig:"TOKEN_TTL"`
}

// CacheConfig selects the GET response cache. Backend is none, memory or redis.
type CacheConfig struct {
	Backend       string        `yaml:"backend" envconfig:"BACKEND"`
	TTL           time.Duration `yaml:"ttl" envconfig:"TTL"`
	Prefix        string        `yaml:"prefix" envconfig:"PREFIX"`
	RedisAddr     string        `yaml:"redis_addr" envconfig:"REDIS_ADDR"`
	RedisPassword string        `yaml:"redis_password" envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `yaml:"redis_db" envconfig:"REDIS_DB"`
}

// EventsConfig enables RabbitMQ publishing when RabbitMQURL is set.
type EventsConfig struct {
	RabbitMQURL  string        `yaml:"rabbitmq_url" envconfig:"RABBITMQ_URL"`
	Exchange     string        `yaml:"exchange" envconfig:"EXCHANGE"`
	PollInterval time.Duration `yaml:"poll_interval" envconfig:"POLL_INTERVAL"`
}

// RestaurantConfig holds the house rules reservations are validated against.
type RestaurantConfig struct {
	Name          string        `yaml:"name" envconfig:"NAME"`
	Timezone      string        `yaml:"timezone" envconfig:"TIMEZONE"`
	OpensAt       string        `yaml:"opens_at" envconfig:"OPENS_AT"`
	LastSeating   string        `yaml:"last_seating" envconfig:"LAST_SEATING"`
	ClosedWeekday string        `yaml:"closed_weekday" envconfig:"CLOSED_WEEKDAY"`
	NoShowGrace   time.Duration `yaml:"no_show_grace" envconfig:"NO_SHOW_GRACE"`
}

type LogConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL"`
	Format string `yaml:"format" envconfig:"FORMAT"`
}

// SeedConfig controls the idempotent startup seed.
type SeedConfig struct {
	Enabled       bool   `yaml:"enabled" envconfig:"ENABLED"`
	AdminEmail    string `yaml:"admin_email" envconfig:"ADMIN_EMAIL"`
	AdminPassword string `yaml:"admin_password" envconfig:"ADMIN_PASSWORD"`
}

// Default returns the configuration used when nothing overrides it.
// DefaultJWTSecret is only good for local development. Validate refuses it
// in production.
const DefaultJWTSecret = "change-me"

func Default() *Config {
	return &Config{
		Env: "development",
		Server: ServerConfig{
			Port:            8080,
			AllowedOrigins:  []string{"http://localhost:3000"},
			RateLimitPerSec: 10,
			RateLimitBurst:  20,
			ShutdownTimeout: 5 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          "sqlite",
			DSN:             "periodic_tables.db",
			MaxOpenConns:    25,
			MaxIdleConns:    25,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Auth: AuthConfig{
			JWTSecret: DefaultJWTSecret,
			TokenTTL:  24 * time.Hour,
		},
		Cache: CacheConfig{
			Backend:   "memory",
			TTL:       30 * time.Second,
			Prefix:    "cache",
			RedisAddr: "localhost:6379",
		},
		Events: EventsConfig{
			Exchange:     "front_of_house",
			PollInterval: time.Second,
		},
		Restaurant: RestaurantConfig{
			Name:          "Periodic Tables",
			Timezone:      "UTC",
			OpensAt:       "10:30",
			LastSeating:   "21:30",
			ClosedWeekday: "Tuesday",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration. path may be empty; a missing .env file is
// not an error.
func Load(path string) (*Config, error) {
	// Load .env file di awal sebelum apapun
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
		}
		defer f.Close()

		if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Database.Driver) {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database dsn is required")
	}

	switch strings.ToLower(c.Cache.Backend) {
	case "none", "memory", "redis":
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if !strings.EqualFold(c.Cache.Backend, "none") && c.Cache.TTL <= 0 {
		return errors.New("cache ttl must be positive")
	}

	if c.Server.Port <= 0 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}

	if strings.EqualFold(c.Env, "production") {
		if secret := strings.TrimSpace(c.Auth.JWTSecret); secret == "" || secret == DefaultJWTSecret {
			return errors.New("auth jwt secret must be set in production")
		}
	}

	if _, err := c.Restaurant.Rules(); err != nil {
		return err
	}
	return nil
}

// Rules converts the restaurant settings into models.HouseRules.
func (r RestaurantConfig) Rules() (models.HouseRules, error) {
	return models.NewHouseRules(r.Timezone, r.OpensAt, r.LastSeating, r.ClosedWeekday)
}
