package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yoshi22/bookkeeping3rd/backend/internal/api"
	"github.com/yoshi22/bookkeeping3rd/backend/internal/content"
	"github.com/yoshi22/bookkeeping3rd/backend/internal/domain/review"
	"github.com/yoshi22/bookkeeping3rd/backend/internal/export"
	"github.com/yoshi22/bookkeeping3rd/backend/internal/infrastructure/config"
	"github.com/yoshi22/bookkeeping3rd/backend/internal/maintenance"
	"github.com/yoshi22/bookkeeping3rd/backend/internal/service"
	"github.com/yoshi22/bookkeeping3rd/backend/internal/store"
)

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// ── Dependencies ────────────────────────────────────────────────
	db, err := store.NewSQLite(cfg.DatabasePath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	loader := content.NewLoader(db, logger)
	if err := loader.Load(context.Background(), cfg.ContentDir); err != nil {
		logger.Error("failed to load content", "error", err)
		os.Exit(1)
	}

	strategy := review.DefaultStrategy()
	statsSvc := service.NewStatisticsService(db, cfg.StatsCacheTTL, logger)
	learningSvc := service.NewLearningService(db, statsSvc, strategy, logger)
	reviewSvc := service.NewReviewService(db, logger)
	examSvc := service.NewExamService(db, statsSvc, strategy, logger)
	reporter := export.NewReporter(db, statsSvc, logger)

	upkeep := maintenance.New(db, cfg.AttemptRetention, logger)
	upkeep.Start()
	defer upkeep.Stop()

	handler := api.NewHandler(learningSvc, reviewSvc, examSvc, statsSvc, reporter, logger)

	// ── Routes ──────────────────────────────────────────────────────
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

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

	go func() {
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

	logger.Info("starting server", "address", cfg.ServerAddress)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed to start", "error", err)
		os.Exit(1)
	}
}
