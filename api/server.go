/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the browser front end

ROUTE GROUPS:
  /api/employees/*      Employee management and request creation
  /api/requests/*       Request listing and lifecycle
  /api/calendar         Booked leave by date window
  /api/dashboard        Statistics
  /api/business-days    Day counting helper
  /api/audit            Audit trail
  /api/admin/*          Reset, ledger rebuild/verify, scheduler trigger, export

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
// allowedOrigins feeds the CORS middleware; empty means "*".
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.CreateEmployee)
			r.Post("/import", h.ImportEmployees)
			r.Get("/{id}", h.GetEmployee)
			r.Put("/{id}", h.UpdateEmployee)
			r.Delete("/{id}", h.DeleteEmployee)
			r.Get("/{id}/balance", h.GetBalance)
			r.Post("/{id}/requests", h.CreateRequest)
		})

		r.Route("/requests", func(r chi.Router) {
			r.Get("/", h.ListRequests)
			r.Get("/{id}", h.GetRequest)
			r.Put("/{id}", h.EditRequest)
			r.Post("/{id}/status", h.SetStatus)
			r.Delete("/{id}", h.DeleteRequest)
		})

		r.Get("/calendar", h.Calendar)
		r.Get("/dashboard", h.Dashboard)
		r.Get("/business-days", h.BusinessDays)
		r.Get("/audit", h.Audit)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/reset", h.Reset)
			r.Post("/rebuild", h.Rebuild)
			r.Get("/verify", h.Verify)
			r.Post("/advance", h.Advance)
			r.Get("/export", h.Export)
		})
	})

	return r
}
