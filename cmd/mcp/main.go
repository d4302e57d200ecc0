package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mcpadapter "github.com/nimbusworks/workspace-assistant/internal/adapters/mcp"
	"github.com/nimbusworks/workspace-assistant/internal/bootstrap"
	"github.com/nimbusworks/workspace-assistant/internal/config"
	"github.com/nimbusworks/workspace-assistant/internal/observability/logging"
)

const version = "0.1.0"

func main() {
	cfg := config.Load()
	// The MCP protocol owns stdout, so logs go to stderr.
	slog.SetDefault(slog.New(logging.NewJSONHandler(os.Stderr, cfg.LogLevel)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, nil)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	server := mcpadapter.NewServer(app.Search, version)
	if err := server.ServeStdio(); err != nil {
		log.Fatalf("mcp server error: %v", err)
	}
}
