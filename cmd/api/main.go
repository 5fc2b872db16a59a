package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/josh-kwaku/obras-ledger/internal/config"
	"github.com/josh-kwaku/obras-ledger/internal/events"
	"github.com/josh-kwaku/obras-ledger/internal/handler"
	"github.com/josh-kwaku/obras-ledger/internal/logging"
	"github.com/josh-kwaku/obras-ledger/internal/metrics"
	"github.com/josh-kwaku/obras-ledger/internal/middleware"
	"github.com/josh-kwaku/obras-ledger/internal/report"
	"github.com/josh-kwaku/obras-ledger/internal/repository"
	"github.com/josh-kwaku/obras-ledger/internal/service"
)

const sweepInterval = time.Hour

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Init("obras-ledger", cfg.LogLevel, cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := connectDB(ctx, cfg)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.AutoMigrate {
		if err := repository.RunMigrations(cfg.DatabaseURL); err != nil {
			slog.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		slog.Info("migrations applied")
	}

	checks := map[string]handler.Check{"database": db.PingContext}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.NATSURL != "" {
		nats, err := events.ConnectNATS(ctx, cfg.NATSURL)
		if err != nil {
			slog.Error("failed to connect to nats", "error", err)
			os.Exit(1)
		}
		publisher = nats
		checks["events"] = nats.Ping
		slog.Info("event publishing enabled", "stream", events.StreamName)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			slog.Warn("event publisher close failed", "error", err)
		}
	}()

	m := metrics.New()

	contractRepo := repository.NewContractRepository(db)
	movementRepo := repository.NewMovementRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	overheadRepo := repository.NewOverheadRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)

	contractSvc := service.NewContractService(contractRepo, movementRepo, publisher, m, db)
	expenseSvc := service.NewExpenseService(contractRepo, paymentRepo, overheadRepo, m)
	dashboardSvc := service.NewDashboardService(contractRepo, movementRepo, paymentRepo, m)

	healthH := handler.NewHealthHandler(checks)
	authH := handler.NewAuthHandler(cfg.AccessPINHash, cfg.JWTSecret, cfg.TokenTTL)
	contractH := handler.NewContractHandler(contractSvc)
	expenseH := handler.NewExpenseHandler(expenseSvc)
	dashboardH := handler.NewDashboardHandler(dashboardSvc)

	authMW := middleware.Auth(cfg.JWTSecret)
	idemMW := middleware.Idempotency(idempotencyRepo)
	read := func(h http.HandlerFunc) http.Handler { return authMW(h) }
	write := func(h http.HandlerFunc) http.Handler { return authMW(idemMW(h)) }

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthH.Liveness)
	mux.HandleFunc("GET /health/ready", healthH.Readiness)
	mux.Handle("GET /metrics", m.Handler())

	mux.HandleFunc("POST /api/v1/auth/pin", authH.Login)

	mux.Handle("POST /api/v1/contracts", write(contractH.Create))
	mux.Handle("GET /api/v1/contracts", read(contractH.List))
	mux.Handle("GET /api/v1/contracts/{id}", read(contractH.Get))
	mux.Handle("POST /api/v1/contracts/{id}/movements", write(contractH.AppendMovement))
	mux.Handle("GET /api/v1/contracts/{id}/ledger", read(contractH.Ledger))
	mux.Handle("POST /api/v1/contracts/{id}/payments", write(expenseH.RecordPayment))
	mux.Handle("GET /api/v1/contracts/{id}/weekly-expenses", read(expenseH.WeeklyExpenses))
	mux.Handle("POST /api/v1/overhead", write(expenseH.RecordOverhead))
	mux.Handle("GET /api/v1/indirect-distribution", read(expenseH.Distribution))
	mux.Handle("GET /api/v1/dashboard/summary", read(dashboardH.Summary))

	var h http.Handler = mux
	h = middleware.Recovery(h)
	h = middleware.Metrics(m)(h)
	h = middleware.Logging(h)
	h = middleware.Tracing(h)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	sweeper := service.NewIdempotencySweeper(idempotencyRepo, logger, sweepInterval)
	go sweeper.Start(ctx)

	var scheduler *report.Scheduler
	if cfg.ReportEnabled {
		scheduler = report.NewScheduler(ctx, cfg.ReportCron, expenseSvc, publisher, m, logger)
		if err := scheduler.Register(); err != nil {
			slog.Error("failed to register report job", "error", err)
			os.Exit(1)
		}
		scheduler.Start()
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if scheduler != nil {
		scheduler.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func connectDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	pool := repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	}

	var err error
	for i := range 30 {
		var db *sql.DB
		if db, err = repository.NewPostgresDB(ctx, cfg.DatabaseURL, pool); err == nil {
			return db, nil
		}
		slog.Info("waiting for database", "attempt", i+1)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("connectDB: %w", ctx.Err())
		case <-time.After(time.Second):
		}
	}
	return nil, fmt.Errorf("connectDB: gave up after 30 attempts: %w", err)
}
