package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/murrayju/jira-workflow-gitbot/internal/api/rest"
	"github.com/murrayju/jira-workflow-gitbot/internal/app"
	"github.com/murrayju/jira-workflow-gitbot/internal/config"
	"github.com/murrayju/jira-workflow-gitbot/internal/dispatch"
	"github.com/murrayju/jira-workflow-gitbot/internal/temporal"
	"github.com/murrayju/jira-workflow-gitbot/internal/webhook"
)

func main() {
	envFile := pflag.String("env-file", ".env", "optional dotenv file loaded before reading the environment")
	pflag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := app.NewLogger(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to create logger: %v", err))
	}
	defer logger.Sync()

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}
	defer application.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Pick the dispatcher
	var dispatcher webhook.Dispatcher
	var inline *dispatch.Inline
	switch cfg.DispatchMode {
	case config.DispatchTemporal:
		temporalClient, err := temporal.NewClient(cfg.TemporalAddress, cfg.TemporalNamespace, cfg.TaskQueue, logger)
		if err != nil {
			logger.Fatal("failed to create temporal client", zap.Error(err))
		}
		defer temporalClient.Close()
		dispatcher = temporalClient
	default:
		inline = dispatch.NewInline(ctx, application.Engine, logger)
		dispatcher = inline
	}

	restHandler := rest.NewHandler(application.Store, application.GitHub, dispatcher, logger)
	webhookHandler := webhook.NewHandler(cfg.WebhookSecret, dispatcher, logger)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Method(http.MethodPost, "/webhook", webhookHandler)
	router.Route("/api/v1", func(r chi.Router) {
		restHandler.RegisterRoutes(r)
	})
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting HTTP server",
			zap.String("address", cfg.ListenAddr),
			zap.String("dispatch_mode", cfg.DispatchMode),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start HTTP server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("failed to shut down HTTP server", zap.Error(err))
	}
	if inline != nil {
		if err := inline.Shutdown(shutdownCtx); err != nil {
			logger.Warn("in-flight events did not finish", zap.Error(err))
		}
	}
	cancel()

	logger.Info("shutdown complete")
}
