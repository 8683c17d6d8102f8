package handler

import (
	"net/http"

	"github.com/Shivanand-hulikatti/campus-events/internal/metrics"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// RouterOptions carries the pieces of configuration the router needs.
type RouterOptions struct {
	Logger         zerolog.Logger
	LoginPerMinute int
}

// NewRouter builds the full API router.
func NewRouter(h *EventHandler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(CorrelationID(opts.Logger))
	r.Use(Logger)
	r.Use(CORS)

	r.Get("/health", h.HealthCheck)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(RateLimit(opts.LoginPerMinute))
		r.Post("/auth/register", h.Signup)
		r.Post("/auth/login", h.Login)
	})

	r.Group(func(r chi.Router) {
		r.Use(Authenticate(h.accounts))

		// Public reads
		r.Get("/events", h.ListEvents)
		r.Get("/events/{id}", h.GetEvent)
		r.Route("/reports", func(r chi.Router) {
			r.Get("/event_popularity", h.EventPopularity())
			r.Get("/top_active_students", h.TopActiveStudents())
			r.Get("/average_feedback", h.AverageFeedback())
			r.Get("/top_events_feedback", h.TopEventsFeedback())
			r.Get("/inactive_students", h.InactiveStudents())
			r.Get("/dashboard", h.Dashboard())
		})

		// Ledger writes
		r.Group(func(r chi.Router) {
			r.Use(RequireAuth)
			r.Post("/events", h.CreateEvent)
			r.Post("/events/{id}/register", h.Register)
			r.Post("/events/{id}/cancel", h.CancelEvent)
			r.Get("/events/{id}/registrations", h.ListRegistrations)
			r.Post("/attendance", h.MarkAttendance)
			r.Post("/feedback", h.SubmitFeedback)
		})
	})

	return r
}
