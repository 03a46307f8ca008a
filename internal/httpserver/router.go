package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"pokeapp/internal/handlers"
	"pokeapp/internal/metrics"
	"pokeapp/internal/middleware"
)

const maxFormBytes = 64 * 1024

// Timeouts bound request handling. Export covers the routes that walk the
// whole catalog.
type Timeouts struct {
	Request time.Duration
	Export  time.Duration
}

func SetupRouter(r *chi.Mux, baseLogger *zap.Logger, pokemonHandler *handlers.PokemonHandler, timeouts Timeouts) {

	r.Use(metrics.Middleware)

	// base middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)

	r.Use(middleware.LoggingContext(baseLogger))
	r.Use(middleware.Recoverer())
	r.Use(middleware.MaxBodySize(maxFormBytes))

	// page routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(timeouts.Request))
		r.Get("/", pokemonHandler.Index)
		r.Get("/pokemon", pokemonHandler.Index)
		r.Get("/pokemon/{name}", pokemonHandler.Details)
	})

	// export-backed routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(timeouts.Export))
		r.Post("/pokemon/export", pokemonHandler.Export)
		r.Post("/pokemon/email", pokemonHandler.SendEmail)
	})

	// health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Handle("/metrics", metrics.Handler())
}
