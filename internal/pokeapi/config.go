package pokeapi

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/ratelimit"
	"go.uber.org/zap"

	"pokeapp/internal/cache"
)

const DefaultBaseURL = "https://pokeapi.co/api/v2"

type Config struct {
	BaseURL string

	UpstreamTimeout time.Duration // per-call timeout (default: 10s)
	MaxRetries      int           // extra attempts on transient failures (default: 0)
	BaseBackoff     time.Duration // initial backoff (default: 100ms)

	// RequestsPerSecond caps outgoing calls; 0 means unlimited.
	RequestsPerSecond int

	SpeciesTTL time.Duration // default: 10m

	MaxIdleConns        int // default: 100
	MaxIdleConnsPerHost int // default: 100

	// Custom HTTP client (for testing or special configs)
	HTTPClient *http.Client
}

// Validate checks required fields only.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("BaseURL is required")
	}
	if c.MaxRetries < 0 {
		return errors.New("MaxRetries must not be negative")
	}
	return nil
}

// WithDefaults returns a copy of Config with defaults applied.
func (c *Config) WithDefaults() Config {
	cfg := *c

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	// Trim trailing slashes so paths can be appended.
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if cfg.UpstreamTimeout <= 0 {
		cfg.UpstreamTimeout = 10 * time.Second
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 100 * time.Millisecond
	}
	if cfg.SpeciesTTL <= 0 {
		cfg.SpeciesTTL = 10 * time.Minute
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = 100
	}
	if cfg.MaxIdleConnsPerHost <= 0 {
		cfg.MaxIdleConnsPerHost = 100
	}

	return cfg
}

type client struct {
	cfg          Config
	httpClient   *http.Client
	limiter      ratelimit.Limiter
	speciesCache cache.Cache
	logger       *zap.Logger
}

// NewClient creates a PokeAPI client. speciesCache is required: it holds
// species lookups for cfg.SpeciesTTL.
func NewClient(cfg Config, speciesCache cache.Cache, logger *zap.Logger) (Client, error) {
	cfg = cfg.WithDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if speciesCache == nil {
		return nil, errors.New("invalid config: species cache is required")
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: defaultTransport(cfg),
		}
	}

	limiter := ratelimit.NewUnlimited()
	if cfg.RequestsPerSecond > 0 {
		limiter = ratelimit.New(cfg.RequestsPerSecond)
	}

	return &client{
		cfg:          cfg,
		httpClient:   httpClient,
		limiter:      limiter,
		speciesCache: speciesCache,
		logger:       logger.Named("pokeapi"),
	}, nil
}

func defaultTransport(cfg Config) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// Close releases idle connections.
func (c *client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
