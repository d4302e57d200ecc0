package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nimbusworks/workspace-assistant/internal/core/domain"
	"github.com/nimbusworks/workspace-assistant/internal/core/ports"
)

// AssistantConfig bounds the per-query lifecycle.
type AssistantConfig struct {
	TopK        int
	EventBuffer int
}

func (c AssistantConfig) normalize() AssistantConfig {
	out := c
	if out.TopK <= 0 {
		out.TopK = 5
	}
	if out.EventBuffer <= 0 {
		out.EventBuffer = 16
	}
	return out
}

// AssistantUseCase is the per-query lifecycle: classify intent, run the
// retrieval pipeline, assemble the conversation, and either stream a plain
// answer or drive the tool orchestrator. Both the streaming and the staged
// surface share this one lifecycle.
type AssistantUseCase struct {
	classifier   *IntentClassifierUseCase
	search       *HybridSearchUseCase
	orchestrator *ToolOrchestratorUseCase
	model        ports.ChatModel
	observer     ports.QueryObserver
	cfg          AssistantConfig
}

func NewAssistantUseCase(
	classifier *IntentClassifierUseCase,
	search *HybridSearchUseCase,
	orchestrator *ToolOrchestratorUseCase,
	model ports.ChatModel,
	observer ports.QueryObserver,
	cfg AssistantConfig,
) *AssistantUseCase {
	return &AssistantUseCase{
		classifier:   classifier,
		search:       search,
		orchestrator: orchestrator,
		model:        model,
		observer:     observerOrNop(observer),
		cfg:          cfg.normalize(),
	}
}

// StreamQuery runs one query and returns its event stream. The channel is
// closed after the terminal event. Cancelling ctx makes the producer stop
// at its next suspension point.
func (uc *AssistantUseCase) StreamQuery(ctx context.Context, req domain.QueryRequest) <-chan domain.QueryEvent {
	ch := make(chan domain.QueryEvent, uc.cfg.EventBuffer)
	go func() {
		defer close(ch)
		uc.process(ctx, req, newEventEmitter(ctx, ch), &runInfo{})
	}()
	return ch
}

// Ask runs the same lifecycle and aggregates the event stream into a staged
// answer.
func (uc *AssistantUseCase) Ask(ctx context.Context, req domain.QueryRequest) (*domain.QueryAnswer, error) {
	info := &runInfo{}
	ch := make(chan domain.QueryEvent, uc.cfg.EventBuffer)
	go func() {
		defer close(ch)
		uc.process(ctx, req, newEventEmitter(ctx, ch), info)
	}()

	var text strings.Builder
	var sources []domain.CandidateDocument
	var failure string
	for event := range ch {
		switch event.Type {
		case domain.EventToken:
			text.WriteString(event.Content)
		case domain.EventSources:
			sources = event.Sources
		case domain.EventError:
			failure = event.Content
		}
	}
	if failure != "" {
		return nil, fmt.Errorf("query failed: %s", failure)
	}

	return &domain.QueryAnswer{
		Intent:  info.intent,
		Text:    strings.TrimSpace(text.String()),
		Sources: sources,
		Tools:   info.tools,
	}, nil
}

// runInfo carries lifecycle facts that are not events.
type runInfo struct {
	intent  domain.QueryIntent
	tools   []string
	sources int
	failed  bool
}

func (uc *AssistantUseCase) process(ctx context.Context, req domain.QueryRequest, emitter *eventEmitter, info *runInfo) {
	start := time.Now()
	defer func() {
		status := "ok"
		if info.failed {
			status = "error"
		}
		uc.observer.RecordQuery(string(info.intent), status, info.sources, time.Since(start))
	}()

	query := strings.TrimSpace(req.Query)
	if query == "" {
		info.failed = true
		emitter.emit(domain.ErrorEvent("query is required"))
		return
	}
	topK := req.TopK
	if topK <= 0 {
		topK = uc.cfg.TopK
	}

	intent := uc.classifier.Classify(ctx, query)
	info.intent = intent

	var sources []domain.CandidateDocument
	if intent.NeedsRetrieval() {
		docs, err := uc.search.Search(ctx, query, topK, req.Filter)
		if err != nil {
			info.failed = true
			emitter.emit(domain.ErrorEvent(err.Error()))
			return
		}
		sources = docs
		info.sources = len(docs)
		if len(sources) > 0 {
			if !emitter.emit(domain.SourcesEvent(sources)) {
				return
			}
		}
	}

	conversation := domain.NewConversation(buildSystemPrompt(sources), req.History, query)

	if intent.NeedsTools() {
		_, invoked, err := uc.orchestrator.Run(ctx, conversation, emitter.emit)
		info.tools = invoked
		if err != nil {
			info.failed = true
			emitter.emit(domain.ErrorEvent(err.Error()))
			return
		}
		emitter.emit(domain.DoneEvent())
		return
	}

	if err := uc.streamPlainAnswer(ctx, conversation, emitter); err != nil {
		info.failed = true
		emitter.emit(domain.ErrorEvent(err.Error()))
		return
	}
	emitter.emit(domain.DoneEvent())
}

// streamPlainAnswer streams one model turn with no tools offered.
func (uc *AssistantUseCase) streamPlainAnswer(ctx context.Context, conversation []domain.ChatMessage, emitter *eventEmitter) error {
	deltas, err := uc.model.StreamChat(ctx, ports.ChatRequest{Messages: conversation})
	if err != nil {
		return domain.WrapError(domain.ErrStreamInterrupted, "start chat stream", err)
	}
	for delta := range deltas {
		if delta.Err != nil {
			return domain.WrapError(domain.ErrStreamInterrupted, "chat stream", delta.Err)
		}
		if delta.Content == "" {
			continue
		}
		if !emitter.emit(domain.TokenEvent(delta.Content)) {
			return ctx.Err()
		}
	}
	return nil
}

// buildSystemPrompt grounds the model in retrieved workspace context. With
// zero context the model is told to say so rather than fabricate.
func buildSystemPrompt(sources []domain.CandidateDocument) string {
	var b strings.Builder
	b.WriteString("You are a workspace assistant. Answer questions about the user's chat messages, email, and pages, and carry out actions when asked.\n")

	if len(sources) == 0 {
		b.WriteString("No workspace context was found for this request. If the user asked a question about their workspace, say that nothing relevant was found instead of inventing an answer.")
		return b.String()
	}

	b.WriteString("Use the following workspace context. Cite sources by their source type and title where helpful.\n\n")
	for i, doc := range sources {
		title := doc.Metadata["title"]
		if title != "" {
			fmt.Fprintf(&b, "[%d] (%s) %s\n%s\n\n", i+1, doc.SourceType, title, doc.Text)
		} else {
			fmt.Fprintf(&b, "[%d] (%s)\n%s\n\n", i+1, doc.SourceType, doc.Text)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
