package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/clanhub/notifyd/internal/auth"
	"github.com/clanhub/notifyd/internal/middleware"
)

// Router holds all handlers and creates the chi router
type Router struct {
	notificationHandler *NotificationHandler
	sectionHandler      *SectionHandler
	sessionHandler      *SessionHandler
	healthHandler       *HealthHandler
	hub                 *Hub
	manager             *auth.Manager
	logger              *zap.Logger
}

// NewRouter creates a new router
func NewRouter(
	notificationHandler *NotificationHandler,
	sectionHandler *SectionHandler,
	sessionHandler *SessionHandler,
	healthHandler *HealthHandler,
	hub *Hub,
	manager *auth.Manager,
	logger *zap.Logger,
) *Router {
	return &Router{
		notificationHandler: notificationHandler,
		sectionHandler:      sectionHandler,
		sessionHandler:      sessionHandler,
		healthHandler:       healthHandler,
		hub:                 hub,
		manager:             manager,
		logger:              logger,
	}
}

// Setup configures and returns the chi router
func (rt *Router) Setup() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RecoveryMiddleware(rt.logger))
	r.Use(middleware.LoggingMiddleware(rt.logger))
	r.Use(middleware.CORSMiddleware())

	r.Get("/health", rt.healthHandler.Health)
	r.Get("/ws", rt.hub.ServeWS)

	r.Route("/api/v1", func(r chi.Router) {
		// Session bootstrap does not require an installed session.
		r.Post("/session", rt.sessionHandler.Open)
		r.Delete("/session", rt.sessionHandler.Close)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(rt.manager))

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", rt.notificationHandler.List)
				r.Get("/unread-count", rt.notificationHandler.UnreadCount)
				r.Post("/read-all", rt.notificationHandler.MarkAllRead)
				r.Post("/reset", rt.notificationHandler.Reset)
				r.Post("/{id}/read", rt.notificationHandler.MarkRead)
			})

			r.Get("/sections/{section}/unread-count", rt.notificationHandler.SectionUnreadCount)
			r.Post("/sections/{section}/visit", rt.sectionHandler.Visit)
		})
	})

	return r
}
