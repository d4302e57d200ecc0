package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nimbusworks/workspace-assistant/internal/bootstrap"
	"github.com/nimbusworks/workspace-assistant/internal/config"
	"github.com/nimbusworks/workspace-assistant/internal/core/domain"
	"github.com/nimbusworks/workspace-assistant/internal/observability/logging"
	"github.com/nimbusworks/workspace-assistant/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("worker", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, nil)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", workerMetrics.Handler())
		slog.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := http.ListenAndServe(":"+cfg.WorkerMetricsPort, mux); err != nil && err != http.ErrServerClosed {
			slog.Error("worker_metrics_server_error", "error", err)
		}
	}()

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeSnapshots(ctx, func(handlerCtx context.Context, doc domain.StoredDocument) error {
		indexCtx, cancel := context.WithTimeout(handlerCtx, time.Minute)
		defer cancel()

		start := time.Now()
		workerMetrics.StartSnapshot()
		indexErr := app.Indexer.IndexSnapshot(indexCtx, doc)
		status := "ok"
		if indexErr != nil {
			status = "error"
		}
		workerMetrics.FinishSnapshot(string(doc.SourceType), status, time.Since(start))
		return indexErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
