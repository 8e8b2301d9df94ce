package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"gatehouse/internal/auth"
	"gatehouse/internal/background"
	"gatehouse/internal/config"
	"gatehouse/internal/database"
	"gatehouse/internal/handlers"
	middlewareCustom "gatehouse/internal/middleware"
	"gatehouse/internal/models"
	"gatehouse/internal/repositories"
	"gatehouse/internal/routes"
	"gatehouse/internal/services"
	pkgauth "gatehouse/pkg/auth"
	pkglogger "gatehouse/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Repositories
	userRepo := repositories.NewUserRepository(db)
	roleRepo := repositories.NewRoleRepository(db)
	revokeRepo := repositories.NewTokenRevocationRepository(db)

	tokenManager := auth.NewTokenManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
	)

	auditLogger := pkglogger.NewAuditLogger(logger)

	mailer, err := services.NewAWSSESMailer(
		cfg.Email.AWSRegion,
		cfg.Email.FromAddress,
		cfg.Email.BaseURL,
		cfg.Email.VerificationURL,
		logger,
	)
	if err != nil {
		logger.Error("failed to initialize email service", slog.Any("error", err))
		os.Exit(1)
	}

	passwordPolicy := pkgauth.Policy{
		MinLength:    cfg.Password.MinLength,
		SpecialChars: cfg.Password.SpecialChars,
	}

	// Services
	authService := services.NewAuthService(userRepo, revokeRepo, tokenManager, mailer, cfg.Lockout, passwordPolicy, logger, auditLogger)
	lockoutService := services.NewLockoutService(userRepo, cfg.Lockout.PermanentLockThreshold, logger, auditLogger)
	userService := services.NewUserService(userRepo, roleRepo, mailer, passwordPolicy, logger, auditLogger)
	roleService := services.NewRoleService(roleRepo, logger)
	passwordResetService := services.NewPasswordResetService(userRepo, mailer, passwordPolicy, cfg.Password.ResetTokenExpiry, logger, auditLogger)
	verificationService := services.NewEmailVerificationService(userRepo, mailer, logger, auditLogger)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	roleHandler := handlers.NewRoleHandler(roleService)
	lockoutHandler := handlers.NewLockoutHandler(lockoutService)
	passwordResetHandler := handlers.NewPasswordResetHandler(passwordResetService)
	verificationHandler := handlers.NewVerificationHandler(verificationService)

	// Bootstrap the first superadmin if configured
	bootstrapCtx, cancelBootstrap := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureSuperadmin(bootstrapCtx, userRepo, roleRepo, logger); err != nil {
		logger.Error("failed to ensure superadmin user", slog.Any("error", err))
	}
	cancelBootstrap()

	corsConfig := middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(
		router,
		authHandler,
		userHandler,
		roleHandler,
		lockoutHandler,
		passwordResetHandler,
		verificationHandler,
		tokenManager,
		userRepo,
		revokeRepo,
	)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Periodic cleanup of expired revoked tokens
	cleanupManager := background.NewCleanupManager(revokeRepo, logger, 1*time.Hour)
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go cleanupManager.Start(cleanupCtx)

	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// ensureSuperadmin creates the first superadmin user if ADMIN_EMAIL and
// ADMIN_PASSWORD are set. Roles themselves are seeded by migrations.
func ensureSuperadmin(ctx context.Context, userRepo *repositories.UserRepository, roleRepo *repositories.RoleRepository, logger *slog.Logger) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminEmail == "" || adminPassword == "" {
		logger.Info("no ADMIN_EMAIL or ADMIN_PASSWORD set, skipping superadmin creation")
		return nil
	}

	_, err := userRepo.GetByEmail(ctx, adminEmail)
	if err == nil {
		logger.Info("superadmin user already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check if superadmin exists: %w", err)
	}

	role, err := roleRepo.GetByName(ctx, models.RoleSuperadmin)
	if err != nil {
		return fmt.Errorf("failed to look up superadmin role: %w", err)
	}

	hashedPassword, err := pkgauth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash superadmin password: %w", err)
	}

	now := time.Now()
	admin := &models.User{
		Name:            "Admin",
		LastName:        "User",
		Email:           adminEmail,
		PasswordHash:    hashedPassword,
		RoleID:          role.ID,
		EmailVerifiedAt: &now,
	}

	if _, err := userRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create superadmin user: %w", err)
	}

	logger.Info("superadmin user created successfully")
	return nil
}
