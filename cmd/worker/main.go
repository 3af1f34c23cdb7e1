package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/murrayju/jira-workflow-gitbot/internal/activities"
	"github.com/murrayju/jira-workflow-gitbot/internal/app"
	"github.com/murrayju/jira-workflow-gitbot/internal/config"
	"github.com/murrayju/jira-workflow-gitbot/internal/temporal/workflows"
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

	// Create Temporal client
	c, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
	})
	if err != nil {
		logger.Fatal("failed to create temporal client", zap.Error(err))
	}
	defer c.Close()

	// Create worker
	w := worker.New(c, cfg.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.PullRequestSyncWorkflow)
	w.RegisterActivity(activities.NewSyncActivities(application.Engine, logger))

	logger.Info("starting worker",
		zap.String("task_queue", cfg.TaskQueue),
		zap.String("namespace", cfg.TemporalNamespace),
	)

	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Fatal("worker failed", zap.Error(err))
	}

	logger.Info("worker stopped")
}
