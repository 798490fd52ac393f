package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/quizwise/backend/internal/api"
	"github.com/quizwise/backend/internal/infrastructure/config"
	"github.com/quizwise/backend/internal/service"
	"github.com/quizwise/backend/internal/store"

	_ "github.com/quizwise/backend/docs" // swagger docs
)

// @title           Quizwise API
// @version         1.0
// @description     Quiz and exam sessions over a question bank, with scoring, progress and a leaderboard.

// @host      localhost:8080
// @BasePath  /

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	// ── Dependencies ────────────────────────────────────────────────
	db, err := store.Open(cfg.DatabaseDriver, cfg.DatabasePath, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "driver", cfg.DatabaseDriver, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	recorder := service.NewRecorder(db, logger, cfg.PersistRetries, cfg.PersistRetryDelay)
	sessions := service.NewSessionService(db, recorder, logger, service.SessionOptions{
		PoolLimit:      cfg.PoolLimit,
		PersistWorkers: cfg.PersistWorkers,
		Retention:      cfg.SessionRetention,
		IdleTimeout:    cfg.SessionIdleTimeout,
		SweepInterval:  cfg.SessionSweepInterval,
	})
	progress := service.NewProgressService(db, db)
	handler := api.NewHandler(sessions, progress, db, logger)

	// ── Routes ──────────────────────────────────────────────────────
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "ok"}`))
	})

	api.RegisterRoutes(mux, handler)

	// Swagger UI served at /swagger/
	mux.Handle("GET /swagger/", httpSwagger.WrapHandler)

	// ── Middleware chain: Logging → CORS → mux ──────────────────────
	logged := api.Logging(logger)(api.CORS(mux))

	// ── Server ──────────────────────────────────────────────────────
	server := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           logged,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		logger.Info("shutting down server")
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("server forced to shutdown", "error", err)
		}
	}()

	logger.Info("starting server", "address", cfg.ServerAddress, "driver", cfg.DatabaseDriver)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed to start", "error", err)
		os.Exit(1)
	}

	<-stopped
	// flush results of sessions finalized before shutdown
	sessions.Close()
	logger.Info("server stopped")
}
