package routes

import (
	"github.com/go-chi/chi/v5"

	"gatehouse/internal/auth"
	"gatehouse/internal/handlers"
	"gatehouse/internal/middleware"
	"gatehouse/internal/models"
	"gatehouse/internal/repositories"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	roleHandler *handlers.RoleHandler,
	lockoutHandler *handlers.LockoutHandler,
	passwordResetHandler *handlers.PasswordResetHandler,
	verificationHandler *handlers.VerificationHandler,
	tokenManager *auth.TokenManager,
	userRepo *repositories.UserRepository,
	revokeRepo *repositories.TokenRevocationRepository,
) {
	rateLimitConfig := middleware.DefaultAuthRateLimit()

	// Public routes
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/login", authHandler.Login)
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/refresh", authHandler.Refresh)
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/password/email", passwordResetHandler.ForgotPassword)
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/password/reset", passwordResetHandler.ResetPassword)
	router.Get("/verify-email", verificationHandler.Verify)

	// Authenticated routes
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(tokenManager, revokeRepo))

		r.Post("/logout", authHandler.Logout)
		r.Post("/change-password", authHandler.ChangePassword)

		r.Get("/profile", userHandler.GetProfile)
		r.Put("/profile", userHandler.UpdateProfile)

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(userRepo, models.RoleAdmin))

			r.Get("/users", userHandler.List)
			r.Post("/users", userHandler.Create)
			r.Get("/users/{id}", userHandler.Get)
			r.Put("/users/{id}", userHandler.Update)
			r.Delete("/users/{id}", userHandler.Delete)

			r.Get("/locked-users", lockoutHandler.ListLockedUsers)
			r.Post("/users/{id}/unlock", lockoutHandler.UnlockUser)
			r.Post("/users/{id}/resend-verification", verificationHandler.Resend)

			r.Get("/roles", roleHandler.List)
			r.Get("/roles/{id}", roleHandler.Get)
		})

		// Superadmin-only routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(userRepo, models.RoleSuperadmin))

			r.Post("/roles", roleHandler.Create)
			r.Put("/roles/{id}", roleHandler.Update)
			r.Delete("/roles/{id}", roleHandler.Delete)
		})
	})
}
