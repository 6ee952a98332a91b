package main

import (
	"context"
	"log"

	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/geoanchor/internal/core/usecases"
	"github.com/samirrijal/geoanchor/internal/pkg/config"
	"github.com/samirrijal/geoanchor/internal/pkg/logging"
	"github.com/samirrijal/geoanchor/internal/workflows"
)

const retentionWorkflowID = "geoanchor-history-retention"

func main() {
	cfg, err := config.Load("geoanchor-retention")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()
	store, closeStore, err := openStorage(ctx, cfg)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer closeStore()

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    tlog.NewStructuredLogger(logger),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	w.RegisterWorkflow(workflows.HistoryRetentionWorkflow)
	w.RegisterActivity(&workflows.RetentionActivities{
		Store: store,
		Clock: usecases.SystemClock{},
		History: usecases.HistoryConfig{
			Limit:    cfg.History.Limit,
			Eviction: usecases.EvictionPolicy(cfg.History.Eviction),
			MaxAge:   cfg.History.MaxAge,
			Timeout:  cfg.Storage.Timeout,
		},
		Logger: logger,
	})

	// An existing run with the same ID is reused, so restarts keep one schedule.
	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:           retentionWorkflowID,
		TaskQueue:    cfg.Temporal.TaskQueue,
		CronSchedule: cfg.Temporal.Cron,
	}, workflows.HistoryRetentionWorkflow, workflows.RetentionInput{Keys: cfg.Temporal.Keys})
	if err != nil {
		log.Fatalf("schedule retention: %v", err)
	}
	logger.Info("retention scheduled", "workflow_id", run.GetID(), "run_id", run.GetRunID(), "cron", cfg.Temporal.Cron)

	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
