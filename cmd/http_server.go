package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/frahmantamala/habilitation-management/internal"
	"github.com/frahmantamala/habilitation-management/internal/activity"
	activitypg "github.com/frahmantamala/habilitation-management/internal/activity/postgres"
	"github.com/frahmantamala/habilitation-management/internal/auth"
	authpg "github.com/frahmantamala/habilitation-management/internal/auth/postgres"
	"github.com/frahmantamala/habilitation-management/internal/core/events"
	"github.com/frahmantamala/habilitation-management/internal/ratelimit"
	"github.com/frahmantamala/habilitation-management/internal/transport"
	"github.com/frahmantamala/habilitation-management/internal/transport/rest"
	"github.com/frahmantamala/habilitation-management/internal/user"
	userpg "github.com/frahmantamala/habilitation-management/internal/user/postgres"
	"github.com/frahmantamala/habilitation-management/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

func startHTTPServer() {
	cfg, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Server.Environment, cfg.Observability.Logging.Level)
	lg := logger.L()

	sqlDB, gormDB, err := initDB(cfg.Database)
	if err != nil {
		lg.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}

	bus := events.NewEventBus(lg)

	activityRepo := activitypg.NewActivityRepository(gormDB, sqlDB)
	activityService := activity.NewService(activityRepo, lg)
	activity.NewEventHandler(activityService, lg).Register(bus)

	issuer := auth.NewTokenIssuer(
		cfg.Security.JWTSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)
	credRepo := authpg.NewCredentialRepository(gormDB)
	refreshRepo := authpg.NewRefreshTokenRepository(gormDB)
	authService := auth.NewService(credRepo, refreshRepo, issuer, bus, lg, cfg.Security.BCryptCost)

	userRepo := userpg.NewUserRepository(sqlDB)
	userService := user.NewService(userRepo)

	base := transport.NewBaseHandler(lg)
	base.Development = cfg.Server.IsDevelopment()

	sensitive := ratelimit.NewSensitiveLimiter(
		ratelimit.NewMemoryStore(),
		cfg.RateLimit.SensitiveWindow,
		cfg.RateLimit.SensitiveMaxAttempts,
	)

	handlers := rest.Handlers{
		Base:      base,
		Auth:      auth.NewHandler(base, authService),
		Gate:      auth.NewGate(base, bus),
		User:      user.NewHandler(base, userService),
		Activity:  activity.NewHandler(base, activityService),
		Health:    rest.NewHealthHandler(sqlDB.DB),
		Sensitive: sensitive,
	}

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, handlers, cfg, lg)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	lg.Info("starting HTTP server", "address", addr, "environment", cfg.Server.Environment)

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		lg.Info("received signal, shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			lg.Error("server shutdown error", "error", err)
		}
		if err := sqlDB.Close(); err != nil {
			lg.Error("database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			lg.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	lg.Info("server stopped")
}

// initDB opens one pgx stdlib pool shared by both sqlx and gorm.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, *gorm.DB, error) {
	const driver = "pgx"

	sqlDB, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{
		Conn: sqlDB.DB,
	}), &gorm.Config{})
	if err != nil {
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("failed to open gorm connection: %w", err)
	}

	return sqlDB, gormDB, nil
}
