/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. requestLogger: zerolog structured request log
  4. CORS:       Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/itineraries/*    Bookings, calendar conflicts, services
  /api/expenses/*       Accounts payable
  /api/reports/*        Payables aging and profit-loss
  /api/commissions/*    Commission tracking
  /api/invoices/*       Invoicing and payments
  /api/rates/*          Rate-sheet management
  /api/reconciliation/* Totals reconciler runs
  /api/scenarios/*      Demo scenarios

SECURITY NOTE:
  No authentication middleware. This is an internal back-office tool;
  all endpoints are public on the bound interface.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(h.Log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Booking routes
		r.Route("/itineraries", func(r chi.Router) {
			r.Get("/", h.ListItineraries)
			r.Post("/", h.CreateItinerary)
			r.Get("/{id}", h.GetItinerary)
			r.Put("/{id}", h.RescheduleItinerary)
			r.Get("/{id}/services", h.ListServices)
			r.Post("/{id}/services", h.CreateService)
			r.Put("/{id}/services/{serviceID}", h.UpdateServiceCost)
			r.Get("/{id}/invoices", h.ListItineraryInvoices)
		})

		// Service routes (flat alias for the nested cost update)
		r.Route("/services", func(r chi.Router) {
			r.Put("/{serviceID}/cost", h.UpdateServiceCost)
		})

		// Accounts-payable routes
		r.Route("/expenses", func(r chi.Router) {
			r.Get("/", h.ListExpenses)
			r.Post("/", h.CreateExpense)
			r.Put("/{id}", h.UpdateExpense)
		})

		// Report routes
		r.Get("/accounts-payable", h.AccountsPayableReport)
		r.Get("/profit-loss", h.ProfitLossReport)
		r.Route("/reports", func(r chi.Router) {
			r.Get("/accounts-payable", h.AccountsPayableReport)
			r.Get("/profit-loss", h.ProfitLossReport)
		})

		// Commission routes
		r.Route("/commissions", func(r chi.Router) {
			r.Get("/", h.ListCommissions)
			r.Post("/", h.CreateCommission)
			r.Put("/{id}", h.UpdateCommission)
		})

		// Invoice routes
		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", h.ListInvoices)
			r.Post("/", h.CreateInvoice)
			r.Get("/{id}", h.GetInvoice)
			r.Post("/{id}/send", h.SendInvoice)
			r.Post("/{id}/cancel", h.CancelInvoice)
			r.Post("/{id}/payments", h.RecordPayment)
		})

		// Rate-sheet routes
		r.Route("/rates", func(r chi.Router) {
			r.Get("/", h.ListRates)
			r.Post("/", h.CreateRate)
			r.Get("/{id}", h.GetRate)
			r.Put("/{id}", h.UpdateRate)
			r.Delete("/{id}", h.DeleteRate)
		})

		// Reconciliation routes
		r.Route("/reconciliation", func(r chi.Router) {
			r.Get("/runs", h.ListReconciliationRuns)
			r.Post("/run", h.TriggerReconciliation)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}

// requestLogger logs one line per request with method, path, status, and
// duration. Status is captured through chi's WrapResponseWriter.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}
