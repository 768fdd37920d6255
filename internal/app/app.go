package app

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

	"school-admin/internal/config"
	"school-admin/internal/crypto"
	"school-admin/internal/database"
	"school-admin/internal/event"
	"school-admin/internal/handler"
	"school-admin/internal/metrics"
	"school-admin/internal/middleware"
	"school-admin/internal/rbac"
	"school-admin/internal/repository"
	"school-admin/internal/router"
	"school-admin/internal/service"
	"school-admin/internal/token"
)

type App struct {
	server       *http.Server
	db           *database.DB
	cleanupFuncs []func()
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(context.Background(), database.PoolConfig{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}

	pool := db.Pool
	userRepo := repository.NewUserRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	resetRepo := repository.NewResetTokenRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	slog.Info("database ready")

	registry := metrics.New()
	bus := event.NewBus()

	hasher := crypto.NewPasswordHasher()
	codec := token.NewCodec(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)

	lockPolicy := service.LockPolicy{
		Threshold:    cfg.LockoutThreshold,
		LockDuration: cfg.LockoutDuration,
	}

	authService := service.NewAuthService(
		userRepo, sessionRepo, resetRepo, auditRepo,
		hasher, codec, lockPolicy,
		cfg.ResetTokenTTL, cfg.MaxSessionsPerUser, bus,
	)

	engine := rbac.NewDefaultEngine(func(path string, method string, allowed bool) {
		registry.PolicyDecision(allowed)
	})
	gate := middleware.NewGate(codec, engine, cfg.LoginPath, cfg.ForbiddenPath)

	authHandler := handler.NewAuthHandler(authService, handler.CookieSettings{
		AccessMaxAge:  cfg.AccessCookieMaxAge,
		RefreshMaxAge: cfg.RefreshCookieMaxAge,
		Secure:        cfg.CookieSecure,
	})
	auditHandler := handler.NewAuditHandler(auditRepo)
	usersHandler := handler.NewUsersHandler(userRepo)
	pagesHandler := handler.NewPagesHandler()

	appRouter := router.New(cfg, gate, router.Handlers{
		Auth:  authHandler,
		Audit: auditHandler,
		Users: usersHandler,
		Pages: pagesHandler,
	}, db, registry.Handler())

	backgroundCtx, backgroundCancel := context.WithCancel(context.Background())
	events, unsubscribe := bus.Subscribe()
	go consumeAuthEvents(events, registry)
	go housekeep(backgroundCtx, cfg.HousekeepInterval, sessionRepo, resetRepo)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server: server,
		db:     db,
		cleanupFuncs: []func(){
			func() {
				backgroundCancel()
			},
			// Closes the subscriber channel, which ends the consumer
			// goroutine's range loop.
			unsubscribe,
			func() {
				db.Close()
			},
		},
	}, nil
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	slog.Info("server stopped")
	return nil
}

// consumeAuthEvents drains the bus into logs and counters until the
// subscription channel is closed. Losing an event here costs a metric
// tick, never an auth decision.
func consumeAuthEvents(events <-chan event.Event, registry *metrics.Registry) {
	for e := range events {
		slog.Info("auth event", "type", string(e.Type), "actor_id", e.ActorID)

		switch e.Type {
		case event.TypeLoginSucceeded:
			registry.LoginAttempt(true)
		case event.TypeLoginFailed:
			registry.LoginAttempt(false)
		case event.TypeAccountLocked:
			registry.AccountLocked()
		case event.TypeTokenRefreshed:
			registry.TokenRefresh(true)
		}
	}
}

type expiredCleaner interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// housekeep purges expired sessions and reset tokens on a fixed ticker.
func housekeep(ctx context.Context, interval time.Duration, cleaners ...expiredCleaner) {
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, cleaner := range cleaners {
				removed, err := cleaner.DeleteExpired(ctx)
				if err != nil {
					slog.Warn("housekeeping failed", "error", err)
					continue
				}
				if removed > 0 {
					slog.Info("housekeeping removed expired rows", "count", removed)
				}
			}
		}
	}
}
