package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/HollandReese/bulwark/internal/auth"
	"github.com/HollandReese/bulwark/internal/handlers"
	"github.com/HollandReese/bulwark/internal/middleware"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	adminHandler *handlers.AdminHandler,
	reportHandler *handlers.ReportHandler,
	loginOutcomeHandler *handlers.LoginOutcomeHandler,
	tokenManager *auth.TokenManager,
	internalToken string,
) {
	// Admin login is the only public admin route; keep it tightly limited
	rateLimitConfig := middleware.DefaultAdminLoginRateLimit()
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/admin/login", authHandler.Login)

	// Service-to-service hook for the authentication flow
	router.Group(func(r chi.Router) {
		r.Use(auth.InternalTokenMiddleware(internalToken))
		r.Post("/internal/login-outcome", loginOutcomeHandler.Handle)
	})

	// Admin-only surface
	router.Group(func(r chi.Router) {
		r.Use(auth.AdminMiddleware(tokenManager))

		r.Get("/admin/blocks", adminHandler.ListBlocks)
		r.Post("/admin/blocks", adminHandler.CreateBlock)
		r.Delete("/admin/blocks/{address}", adminHandler.DeleteBlock)

		r.Put("/admin/events/{id}/status", adminHandler.UpdateEventStatus)

		r.Get("/admin/reports/events", reportHandler.EventReport)
		r.Get("/admin/reports/summary", reportHandler.Summary)
		r.Get("/admin/reports/top-offenders", reportHandler.TopOffenders)
	})
}
