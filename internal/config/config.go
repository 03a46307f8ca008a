package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Port           string        `env:"PORT" envDefault:"8080"`
	Env            string        `env:"ENV" envDefault:"production"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	// ExportTimeout bounds the export and email routes, which fetch every creature.
	ExportTimeout time.Duration `env:"EXPORT_TIMEOUT" envDefault:"5m"`

	PokeAPI PokeAPIConfig
	Cache   CacheConfig
	Catalog CatalogConfig
	SMTP    SMTPConfig
}

type PokeAPIConfig struct {
	BaseURL           string        `env:"POKEAPI_BASE_URL" envDefault:"https://pokeapi.co/api/v2/"`
	Timeout           time.Duration `env:"POKEAPI_TIMEOUT" envDefault:"10s"`
	MaxRetries        int           `env:"POKEAPI_MAX_RETRIES" envDefault:"0"`
	RequestsPerSecond int           `env:"POKEAPI_RPS" envDefault:"0"`
}

type CacheConfig struct {
	Backend    string        `env:"CACHE_BACKEND" envDefault:"memory"` // "memory" or "redis"
	RedisAddr  string        `env:"REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	Prefix     string        `env:"CACHE_PREFIX" envDefault:"pokeapp"`
	SpeciesTTL time.Duration `env:"SPECIES_TTL" envDefault:"10m"`
}

type CatalogConfig struct {
	DetailConcurrency int `env:"CATALOG_DETAIL_CONCURRENCY" envDefault:"8"`
}

type SMTPConfig struct {
	Host     string `env:"SMTP_HOST" envDefault:"smtp.example.com"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"MAIL_FROM" envDefault:"noreply@example.com"`
	FromName string `env:"MAIL_FROM_NAME" envDefault:"Pokemon App"`
}

// Load parses Config from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the server cannot start with.
func (c Config) Validate() error {
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid CACHE_BACKEND %q: want memory or redis", c.Cache.Backend)
	}
	if c.PokeAPI.BaseURL == "" {
		return fmt.Errorf("POKEAPI_BASE_URL is required")
	}
	if c.Cache.SpeciesTTL <= 0 {
		return fmt.Errorf("SPECIES_TTL must be positive")
	}
	if c.RequestTimeout <= 0 || c.ExportTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT and EXPORT_TIMEOUT must be positive")
	}
	if c.PokeAPI.MaxRetries < 0 {
		return fmt.Errorf("POKEAPI_MAX_RETRIES must not be negative")
	}
	return nil
}
