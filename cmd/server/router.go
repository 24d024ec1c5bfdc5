package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prepdeck/prepdeck-api/internal/api"
	apimiddleware "github.com/prepdeck/prepdeck-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apimiddleware.TraceMiddleware)
	r.Use(app.requestMetrics)

	authMiddleware := apimiddleware.NewAuthMiddleware(app.jwtService)
	practiceHandler := api.NewPracticeHandler(app.practiceService, app.logger)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Use(app.rateLimiter.Middleware)

			r.Route("/flashcards", func(r chi.Router) {
				r.Get("/", practiceHandler.ListCards)
				r.Get("/review", practiceHandler.GetDueCards)
				r.Get("/stats", practiceHandler.GetReviewStats)
				r.Post("/custom", practiceHandler.CreateCustomCard)

				r.Post("/sessions", practiceHandler.StartSession)
				r.Get("/sessions/{id}", practiceHandler.GetSession)
				r.Post("/sessions/{id}/responses/{cardID}", practiceHandler.RecordResponse)
				r.Post("/sessions/{id}/complete", practiceHandler.CompleteSession)
			})
		})
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	// Prometheus scrape endpoint, served from the application's own registry.
	r.Method(http.MethodGet, "/metrics",
		promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{}))

	return r
}

// requestMetrics records per-route request durations using the matched chi
// route pattern, so path parameters don't explode the label space.
func (app *application) requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		app.collector.RecordRequestDuration(route, time.Since(start))
	})
}
