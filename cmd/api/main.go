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

	httpadapter "github.com/nimbusworks/workspace-assistant/internal/adapters/http"
	"github.com/nimbusworks/workspace-assistant/internal/bootstrap"
	"github.com/nimbusworks/workspace-assistant/internal/config"
	"github.com/nimbusworks/workspace-assistant/internal/observability/logging"
	"github.com/nimbusworks/workspace-assistant/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("api", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := metrics.NewHTTPServerMetrics("api")
	app, err := bootstrap.New(ctx, cfg, httpMetrics.AssistantObserver("api"))
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	router := httpadapter.NewRouter(app.Assistant, app.Catalog, httpMetrics, "api").Handler()
	server := &http.Server{
		Addr:        ":" + cfg.APIPort,
		Handler:     router,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		slog.Info("api_listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api_shutdown_error", "error", err)
	}
}
