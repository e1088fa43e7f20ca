/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/catalog           Card template catalog
  /api/cards/*           Card management
  /api/benefits/*        Benefit lifecycle operations
  /api/subscriptions/*   Subscription tracking
  /api/coupons/*         One-shot coupons
  /api/reminders/*       Pending reminders and reconciliation
  /api/summary           Roll-up window aggregation
  /api/insight           Single highest-signal insight
  /api/admin/rollover    Manual period rollover sweep
  /metrics               Prometheus scrape endpoint

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Catalog routes
		r.Get("/catalog", h.ListCatalog)

		// Card routes
		r.Route("/cards", func(r chi.Router) {
			r.Get("/", h.ListCards)
			r.Post("/", h.CreateCard)
			r.Get("/{id}", h.GetCard)
			r.Delete("/{id}", h.DeleteCard)
		})

		// Benefit routes
		r.Route("/benefits", func(r chi.Router) {
			r.Get("/", h.ListBenefits)
			r.Post("/{id}/use", h.MarkBenefitUsed)
			r.Post("/{id}/undo", h.UndoBenefitUsed)
			r.Post("/{id}/snooze", h.SnoozeBenefit)
		})

		// Subscription routes
		r.Route("/subscriptions", func(r chi.Router) {
			r.Get("/", h.ListSubscriptions)
			r.Post("/", h.CreateSubscription)
			r.Post("/{id}/advance", h.AdvanceSubscription)
			r.Get("/{id}/payments", h.ListPayments)
		})

		// Coupon routes
		r.Route("/coupons", func(r chi.Router) {
			r.Get("/", h.ListCoupons)
			r.Post("/", h.CreateCoupon)
			r.Post("/{id}/use", h.UseCoupon)
			r.Delete("/{id}", h.DeleteCoupon)
		})

		// Reminder routes
		r.Route("/reminders", func(r chi.Router) {
			r.Get("/", h.ListReminders)
			r.Post("/reconcile", h.ReconcileReminders)
		})

		// Aggregation routes
		r.Get("/summary", h.GetSummary)
		r.Get("/insight", h.GetInsight)

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/rollover", h.TriggerRollover)
		})
	})

	// Operational endpoints
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}
