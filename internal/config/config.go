package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	DatabaseURL string        `envconfig:"DATABASE_URL" required:"true"`
	RedisURL    string        `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	JWTSecret   string        `envconfig:"JWT_SECRET" required:"true"`
	ServerPort  string        `envconfig:"SERVER_PORT" default:":8080"`
	Environment string        `envconfig:"ENVIRONMENT" default:"development"`
	JWTExpiry   time.Duration `envconfig:"JWT_EXPIRY" default:"24h"`

	// Database pool
	DBMaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	DBMaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	DBConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"30m"`

	// Chat
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"5s"`
	DefaultPageSize int           `envconfig:"DEFAULT_PAGE_SIZE" default:"50"`

	// Scheduled content publisher
	PublisherInterval time.Duration `envconfig:"PUBLISHER_INTERVAL" default:"1m"`
	PublisherEnabled  bool          `envconfig:"PUBLISHER_ENABLED" default:"true"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:5173"`

	// Rate limiting
	RateLimitMaxRequests int           `envconfig:"RATE_LIMIT_MAX_REQUESTS" default:"100"`
	RateLimitWindow      time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
	RateLimitBlockTime   time.Duration `envconfig:"RATE_LIMIT_BLOCK_TIME" default:"5m"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// Docker containers use environment variables directly, so a missing
	// .env file is fine.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Ignoring unreadable .env file: %v", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" || c.JWTSecret == "" {
		return errors.New("DATABASE_URL and JWT_SECRET must not be empty")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("REQUEST_TIMEOUT must be positive")
	}
	if c.DefaultPageSize < 1 || c.DefaultPageSize > 100 {
		return fmt.Errorf("DEFAULT_PAGE_SIZE must be within [1, 100], got %d", c.DefaultPageSize)
	}
	if c.PublisherInterval <= 0 {
		return errors.New("PUBLISHER_INTERVAL must be positive")
	}
	return nil
}
