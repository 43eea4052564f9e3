package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scriptsentries/clearance-engine/pkg/analysis"
	"github.com/scriptsentries/clearance-engine/pkg/auth"
	"github.com/scriptsentries/clearance-engine/pkg/cache"
	"github.com/scriptsentries/clearance-engine/pkg/config"
	"github.com/scriptsentries/clearance-engine/pkg/database"
	"github.com/scriptsentries/clearance-engine/pkg/events"
	"github.com/scriptsentries/clearance-engine/pkg/handlers"
	"github.com/scriptsentries/clearance-engine/pkg/llm"
	"github.com/scriptsentries/clearance-engine/pkg/logging"
	"github.com/scriptsentries/clearance-engine/pkg/metrics"
	"github.com/scriptsentries/clearance-engine/pkg/middleware"
	"github.com/scriptsentries/clearance-engine/pkg/repositories"
	"github.com/scriptsentries/clearance-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

var rollbackSteps int

var rootCmd = &cobra.Command{
	Use:           "clearance-engine",
	Short:         "Script clearance review service",
	Long:          `Analyzes screenplay PDFs for legal clearance risks and serves the review workflow API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run migrations and start the HTTP server (default)",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrations(func(cfg *config.Config, logger *zap.Logger) error {
			db, err := database.OpenSQL(cfg.Database.URL())
			if err != nil {
				return err
			}
			defer db.Close()
			return database.RunMigrations(db, cfg.MigrationsPath, logger)
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrations(func(cfg *config.Config, logger *zap.Logger) error {
			db, err := database.OpenSQL(cfg.Database.URL())
			if err != nil {
				return err
			}
			defer db.Close()
			return database.RollbackMigrations(db, cfg.MigrationsPath, rollbackSteps, logger)
		})
	},
}

func init() {
	migrateDownCmd.Flags().IntVar(&rollbackSteps, "steps", 1, "Number of migrations to roll back")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" || env == "dev" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func withMigrations(fn func(cfg *config.Config, logger *zap.Logger) error) error {
	cfg, err := config.Load(Version)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := newLogger(cfg.Env)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	return fn(cfg, logger)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(Version)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())),
		zap.String("redis_host", cfg.Redis.Host),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("ai_model", cfg.AI.Model),
		zap.Bool("events_enabled", cfg.RabbitMQ.URI != ""),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Schema first, so a fresh database is usable on first boot.
	sqlDB, err := database.OpenSQL(cfg.Database.URL())
	if err != nil {
		return err
	}
	if err := database.RunMigrations(sqlDB, cfg.MigrationsPath, logger); err != nil {
		_ = sqlDB.Close()
		return err
	}
	_ = sqlDB.Close()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.URL(),
		MaxConnections: cfg.Database.MaxConnections,
	}, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient, err := database.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}
	roleCache := cache.NewRoleCache(redisClient, cfg.Redis.RoleTTL, logger)

	publisher, err := events.NewEventPublisher(cfg.RabbitMQ.URI, cfg.RabbitMQ.Exchange, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("Failed to close event publisher", zap.Error(err))
		}
	}()

	llmClient, err := llm.NewClient(&cfg.AI, logger)
	if err != nil {
		return err
	}
	pool := llm.NewWorkerPool(cfg.AI.MaxConcurrent, logger)
	detector := analysis.NewDetector(llmClient, pool, cfg.AI.Temperature, logger)

	m := metrics.New()

	tokens, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}
	var jwks *auth.JWKSClient
	if len(cfg.Auth.JWKSEndpoints) > 0 {
		jwks, err = auth.NewJWKSClient(ctx, cfg.Auth.JWKSEndpoints)
		if err != nil {
			return err
		}
	}
	authMiddleware := auth.NewMiddleware(auth.NewAuthService(tokens, jwks, logger), logger)

	// Repositories
	userRepo := repositories.NewUserRepository()
	projectRepo := repositories.NewProjectRepository()
	memberRepo := repositories.NewMemberRepository()
	scriptRepo := repositories.NewScriptRepository()
	riskRepo := repositories.NewRiskFlagRepository()
	commentRepo := repositories.NewCommentRepository()
	notificationRepo := repositories.NewNotificationRepository()

	// Services
	accessService := services.NewAccessService(memberRepo, roleCache, logger)
	accountService := services.NewAccountService(userRepo, tokens, logger)
	userService := services.NewUserService(userRepo, logger)
	projectService := services.NewProjectService(projectRepo, memberRepo, userRepo, scriptRepo, accessService, m, logger)
	memberService := services.NewMemberService(projectRepo, memberRepo, userRepo, accessService, m, logger)
	scriptService := services.NewScriptService(scriptRepo, riskRepo, analysis.PDFExtractor{}, detector, publisher, m, cfg.Uploads.TempDir, logger)
	riskService := services.NewRiskService(riskRepo, publisher, m, logger)
	commentService := services.NewCommentService(commentRepo, riskRepo, userRepo, notificationRepo, publisher, m, logger)
	notificationService := services.NewNotificationService(notificationRepo, logger)

	// Routes
	mux := http.NewServeMux()
	scope := handlers.Middleware(database.WithScope(db, logger))
	membership := handlers.NewMembershipMiddleware(accessService, logger)
	limiter := middleware.NewIPRateLimiter(cfg.RateLimit.AuthRPS, cfg.RateLimit.AuthBurst)

	handlers.NewHealthHandler(cfg, db, logger).RegisterRoutes(mux)
	handlers.NewAuthHandler(accountService, userService, logger).RegisterRoutes(mux, authMiddleware, limiter.Limit, scope)
	handlers.NewProjectsHandler(projectService, accessService, logger).RegisterRoutes(mux, authMiddleware, scope, membership)
	handlers.NewMembersHandler(memberService, logger).RegisterRoutes(mux, authMiddleware, scope, membership)
	handlers.NewScriptsHandler(scriptService, cfg.Uploads.MaxBytes(), logger).RegisterRoutes(mux, authMiddleware, scope, membership)
	handlers.NewRisksHandler(riskService, commentService, logger).RegisterRoutes(mux, authMiddleware, scope, membership)
	handlers.NewNotificationsHandler(notificationService, logger).RegisterRoutes(mux, authMiddleware, scope)
	mux.Handle("GET /metrics", m.Handler())

	handler := middleware.RequestID(middleware.RequestLogger(logger)(m.Instrument(mux)))

	server := &http.Server{
		Addr:              cfg.BindAddr + ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// Uploads are analyzed synchronously, so writes may take minutes.
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		useTLS := cfg.TLSCertPath != "" && cfg.TLSKeyPath != ""
		logger.Info("Starting clearance-engine",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version),
			zap.Bool("tls", useTLS))
		var err error
		if useTLS {
			err = server.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}
