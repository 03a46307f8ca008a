package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"pokeapp/internal/cache"
	"pokeapp/internal/catalog"
	"pokeapp/internal/config"
	"pokeapp/internal/handlers"
	"pokeapp/internal/httpserver"
	"pokeapp/internal/mail"
	"pokeapp/internal/metrics"
	"pokeapp/internal/pokeapi"
	"pokeapp/pkg/logging"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("pokeapp exited with error: %v", err)
	}
}

func run() error {
	// ----- Config -----
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// ----- Logger -----
	logger, err := logging.New(logging.Options{Env: cfg.Env, Level: cfg.LogLevel})
	if err != nil {
		return err
	}
	defer logger.Sync()
	logging.SetDefault(logger)

	// ----- Metrics -----
	metrics.Register()

	logger.Info("loaded config",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.Env),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.String("redis_addr", cfg.Cache.RedisAddr),
		zap.String("pokeapi_base_url", cfg.PokeAPI.BaseURL),
		zap.Int("pokeapi_max_retries", cfg.PokeAPI.MaxRetries),
		zap.Int("detail_concurrency", cfg.Catalog.DetailConcurrency),
		zap.Duration("request_timeout", cfg.RequestTimeout),
		zap.Duration("export_timeout", cfg.ExportTimeout),
		zap.String("smtp_host", cfg.SMTP.Host),
	)

	// ----- Redis client (only if needed) -----
	var redisClient *redis.Client
	if cfg.Cache.Backend == "redis" {
		redisClient = redis.NewClient(&redis.Options{
			Addr: cfg.Cache.RedisAddr,
		})
		defer redisClient.Close()

		// Fail fast if Redis is misconfigured
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Error("redis connection failed", zap.Error(err))
			return err
		}
		logger.Info("redis connection established",
			zap.String("addr", cfg.Cache.RedisAddr),
		)
	}

	// ----- Species cache -----
	speciesCache := cache.New(cache.Config{
		Backend:         cfg.Cache.Backend,
		Prefix:          cfg.Cache.Prefix,
		CleanupInterval: time.Minute,
	}, redisClient)
	if closer, ok := speciesCache.(interface{ Close() error }); ok {
		defer closer.Close()
	}
	speciesCache = cache.NewLoggingCache(speciesCache, "species")

	// ----- PokeAPI client -----
	pokeClient, err := pokeapi.NewClient(pokeapi.Config{
		BaseURL:           cfg.PokeAPI.BaseURL,
		UpstreamTimeout:   cfg.PokeAPI.Timeout,
		MaxRetries:        cfg.PokeAPI.MaxRetries,
		RequestsPerSecond: cfg.PokeAPI.RequestsPerSecond,
		SpeciesTTL:        cfg.Cache.SpeciesTTL,
	}, speciesCache, logger)
	if err != nil {
		return err
	}
	if closer, ok := pokeClient.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	// ----- Mail -----
	sender, err := mail.NewSMTPSender(mail.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		FromName: cfg.SMTP.FromName,
	}, logger)
	if err != nil {
		return err
	}

	// ----- Handlers -----
	service := catalog.NewService(pokeClient,
		catalog.WithDetailConcurrency(cfg.Catalog.DetailConcurrency),
	)
	pokemonHandler := handlers.NewPokemonHandler(service, sender)

	// ----- Router + middleware -----
	r := chi.NewRouter()
	httpserver.SetupRouter(r, logger, pokemonHandler, httpserver.Timeouts{
		Request: cfg.RequestTimeout,
		Export:  cfg.ExportTimeout,
	})

	// ----- HTTP server -----
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      max(cfg.RequestTimeout, cfg.ExportTimeout) + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("starting pokeapp",
		zap.String("addr", srv.Addr),
		zap.String("cache_backend", cfg.Cache.Backend),
	)

	// Start server in background
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
		}
	}()

	// ----- Graceful shutdown -----
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return err
	}

	logger.Info("server shutdown complete")
	return nil
}
