package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/auth"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/model"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/service"
)

// RouterDeps are the collaborators of the HTTP router.
type RouterDeps struct {
	Events   *service.EventService
	Tickets  *service.TicketService
	Verifier auth.TokenValidator
	Metrics  http.Handler // served at /metrics when set
	Log      *slog.Logger
}

// NewRouter builds the API router.
func NewRouter(d RouterDeps) http.Handler {
	events := NewEventHandler(d.Events, d.Log)
	tickets := NewTicketHandler(d.Tickets, d.Log)

	requireAuth := auth.RequireAuth(d.Verifier, d.Log)
	staffOnly := auth.RequireRole(d.Log, model.RoleAdmin, model.RoleOrganizer)

	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Timeout(30 * time.Second))
	r.Use(Logger(d.Log))
	r.Use(CORS)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/health", HealthCheck)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.Route("/events", func(r chi.Router) {
		r.Get("/", events.ListEvents)
		r.Get("/{id}", events.GetEvent)
		r.Group(func(r chi.Router) {
			r.Use(requireAuth, staffOnly)
			r.Post("/", events.CreateEvent)
			r.Get("/{id}/tickets", events.ListEventTickets)
		})
	})

	r.Route("/tickets", func(r chi.Router) {
		r.With(auth.OptionalAuth(d.Verifier, d.Log)).Post("/", tickets.Register)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", tickets.List)
			r.Get("/{id}", tickets.Get)
			r.Get("/{id}/qr.png", tickets.QRCode)
			r.Patch("/{id}", tickets.Update)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth, staffOnly)
			r.Get("/verify/{ticketCode}", tickets.Verify)
			r.Get("/code/{ticketCode}", tickets.GetByCode)
			r.Delete("/{id}", tickets.Delete)
		})
	})

	return r
}
