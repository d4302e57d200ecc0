// Package bootstrap assembles the application graph shared by the api and
// worker binaries.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/nimbusworks/workspace-assistant/internal/config"
	"github.com/nimbusworks/workspace-assistant/internal/connectors"
	"github.com/nimbusworks/workspace-assistant/internal/core/ports"
	"github.com/nimbusworks/workspace-assistant/internal/core/usecase"
	"github.com/nimbusworks/workspace-assistant/internal/infrastructure/llm/openaichat"
	"github.com/nimbusworks/workspace-assistant/internal/infrastructure/pages"
	"github.com/nimbusworks/workspace-assistant/internal/infrastructure/queue/nats"
	"github.com/nimbusworks/workspace-assistant/internal/infrastructure/rerank/tei"
	"github.com/nimbusworks/workspace-assistant/internal/infrastructure/resilience"
	"github.com/nimbusworks/workspace-assistant/internal/infrastructure/store/postgres"
	"github.com/nimbusworks/workspace-assistant/internal/tools"
)

type App struct {
	Config config.Config

	Queue   *nats.Queue
	Catalog *tools.Catalog

	Assistant ports.QueryService
	Search    ports.SearchService
	Indexer   ports.SnapshotIndexer

	closeFn func()
}

// New assembles the graph. observer may be nil; only the api binary wires
// a metrics sink into the query pipeline.
func New(ctx context.Context, cfg config.Config, observer ports.QueryObserver) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	store := postgres.NewDocumentStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.Config{})

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init snapshot queue: %w", err)
	}

	model := openaichat.New(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMChatModel, cfg.LLMEmbedModel, executor)
	reranker := tei.New(cfg.RerankerURL, cfg.RerankerModel)
	pageSource := pages.New(cfg.PagesAPIURL, cfg.PagesAPIToken, float64(cfg.PagesCallsPerSecond))

	search := usecase.NewHybridSearchUseCase(model, store, pageSource, reranker, observer, usecase.SearchConfig{
		CandidateLimit: cfg.SearchCandidateLimit,
		RRFK:           cfg.SearchRRFK,
		DefaultTopK:    cfg.SearchTopK,
		PageFetchLimit: cfg.PagesFetchLimit,
	})

	catalog, err := tools.NewCatalogFromManifest()
	if err != nil {
		return nil, fmt.Errorf("load tool manifest: %w", err)
	}

	workspaceAPI := connectors.NewHTTPWorkspaceAPI(cfg.WorkspaceAPIURL, cfg.WorkspaceAPIToken)
	invoker := connectors.NewInvoker(connectors.InvokerConfig{
		CallsPerSecond: float64(cfg.ConnectorCallsPerSec),
		Burst:          cfg.ConnectorBurst,
		MaxAttempts:    cfg.ConnectorMaxAttempts,
	})
	if err := connectors.Bind(catalog, workspaceAPI, invoker, search); err != nil {
		return nil, fmt.Errorf("bind connectors: %w", err)
	}

	orchestrator := usecase.NewToolOrchestratorUseCase(model, catalog, usecase.NewGuardrail(), observer, usecase.OrchestratorLimits{
		MaxIterations: cfg.OrchestratorMaxIterations,
		TurnTimeout:   time.Duration(cfg.OrchestratorTurnSeconds) * time.Second,
		ToolTimeout:   time.Duration(cfg.OrchestratorToolSeconds) * time.Second,
	})

	classifier := usecase.NewIntentClassifierUseCase(model)
	assistant := usecase.NewAssistantUseCase(classifier, search, orchestrator, model, observer, usecase.AssistantConfig{
		TopK: cfg.SearchTopK,
	})

	indexer := usecase.NewIndexerUseCase(model, store)

	return &App{
		Config: cfg,

		Queue:   queue,
		Catalog: catalog,

		Assistant: assistant,
		Search:    search,
		Indexer:   indexer,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
