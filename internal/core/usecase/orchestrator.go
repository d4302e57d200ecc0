package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nimbusworks/workspace-assistant/internal/core/domain"
	"github.com/nimbusworks/workspace-assistant/internal/core/ports"
)

// OrchestratorLimits bounds the multi-turn tool loop.
type OrchestratorLimits struct {
	MaxIterations int
	TurnTimeout   time.Duration
	ToolTimeout   time.Duration
}

func (l OrchestratorLimits) normalize() OrchestratorLimits {
	out := l
	if out.MaxIterations <= 0 {
		out.MaxIterations = 5
	}
	if out.TurnTimeout <= 0 {
		out.TurnTimeout = 60 * time.Second
	}
	if out.ToolTimeout <= 0 {
		out.ToolTimeout = 30 * time.Second
	}
	return out
}

// ToolOrchestratorUseCase drives the bounded multi-turn loop: it streams a
// chat completion, dispatches tool calls through the guardrail and the
// catalog, and folds each result back into the conversation. The loop shape
// is independent of which tools exist; adding a tool means adding a catalog
// entry and a connector binding.
type ToolOrchestratorUseCase struct {
	model     ports.ChatModel
	catalog   ports.ToolCatalog
	guardrail *Guardrail
	observer  ports.QueryObserver
	limits    OrchestratorLimits
}

func NewToolOrchestratorUseCase(
	model ports.ChatModel,
	catalog ports.ToolCatalog,
	guardrail *Guardrail,
	observer ports.QueryObserver,
	limits OrchestratorLimits,
) *ToolOrchestratorUseCase {
	return &ToolOrchestratorUseCase{
		model:     model,
		catalog:   catalog,
		guardrail: guardrail,
		observer:  observerOrNop(observer),
		limits:    limits.normalize(),
	}
}

// Run executes the loop until the model stops requesting tools or the
// iteration bound is reached. It returns the grown conversation and the
// names of the tools invoked. Content tokens are emitted as they stream; a
// status event always precedes the tool execution it describes.
func (uc *ToolOrchestratorUseCase) Run(
	ctx context.Context,
	conversation []domain.ChatMessage,
	emit func(domain.QueryEvent) bool,
) ([]domain.ChatMessage, []string, error) {
	invoked := make([]string, 0, uc.limits.MaxIterations)
	iterations := 0

	for {
		content, accumulator, err := uc.streamTurn(ctx, conversation, emit)
		if err != nil {
			return conversation, invoked, err
		}

		if !accumulator.pending() {
			if content != "" {
				conversation = append(conversation, domain.ChatMessage{
					Role:    domain.RoleAssistant,
					Content: content,
				})
			}
			break
		}

		call, args := accumulator.finalize()
		if !emit(domain.StatusEvent(describeToolCall(call.Name, args))) {
			return conversation, invoked, ctx.Err()
		}

		result := uc.executeCall(ctx, call.Name, args)

		conversation = append(conversation, domain.ChatMessage{
			Role:      domain.RoleAssistant,
			Content:   content,
			ToolCalls: []domain.ToolCall{call},
		})
		conversation = append(conversation, domain.ChatMessage{
			Role:       domain.RoleTool,
			Content:    result,
			ToolCallID: call.ID,
			Name:       call.Name,
		})
		invoked = append(invoked, call.Name)

		iterations++
		if iterations >= uc.limits.MaxIterations {
			slog.Info("orchestrator_iteration_bound_reached", "iterations", iterations)
			break
		}
	}

	uc.observer.RecordOrchestratorRun(iterations)
	if iterations > 0 {
		uc.emitStepSummary(ctx, conversation, emit)
	}
	return conversation, invoked, nil
}

// streamTurn sends the full conversation plus the tool catalog to the
// model, emitting content tokens immediately and accumulating tool-call
// deltas.
func (uc *ToolOrchestratorUseCase) streamTurn(
	ctx context.Context,
	conversation []domain.ChatMessage,
	emit func(domain.QueryEvent) bool,
) (string, *toolCallAccumulator, error) {
	turnCtx, cancel := context.WithTimeout(ctx, uc.limits.TurnTimeout)
	defer cancel()

	deltas, err := uc.model.StreamChat(turnCtx, ports.ChatRequest{
		Messages:   conversation,
		Tools:      uc.catalog.Schemas(),
		ToolChoice: "auto",
	})
	if err != nil {
		return "", nil, domain.WrapError(domain.ErrStreamInterrupted, "start chat stream", err)
	}

	var content strings.Builder
	accumulator := newToolCallAccumulator()
	for delta := range deltas {
		if delta.Err != nil {
			return "", nil, domain.WrapError(domain.ErrStreamInterrupted, "chat stream", delta.Err)
		}
		if delta.Content != "" {
			content.WriteString(delta.Content)
			if !emit(domain.TokenEvent(delta.Content)) {
				return "", nil, ctx.Err()
			}
		}
		accumulator.appendDelta(delta)
	}
	return content.String(), accumulator, nil
}

// executeCall applies the guardrail, then invokes the bound connector. Any
// connector failure is captured and converted into a textual result; it
// never escapes the loop.
func (uc *ToolOrchestratorUseCase) executeCall(ctx context.Context, name string, args domain.ToolArguments) string {
	descriptor, ok := uc.catalog.Descriptor(name)
	if !ok {
		uc.observer.RecordToolCall(name, "error")
		return fmt.Sprintf("Tool execution error: unknown tool %q", name)
	}

	if refusal, refused := uc.guardrail.Check(descriptor, args); refused {
		slog.Info("guardrail_refusal", "tool", name)
		uc.observer.RecordGuardrailRefusal(name)
		uc.observer.RecordToolCall(name, "refused")
		return refusal
	}

	handler, ok := uc.catalog.Handler(name)
	if !ok {
		uc.observer.RecordToolCall(name, "error")
		return fmt.Sprintf("Tool execution error: no connector bound for %q", name)
	}

	toolCtx, cancel := context.WithTimeout(ctx, uc.limits.ToolTimeout)
	defer cancel()

	result, err := safeExecute(toolCtx, handler, args)
	if err != nil {
		slog.Warn("tool_execution_failed", "tool", name, "error", err)
		uc.observer.RecordToolCall(name, "error")
		return "Tool execution error: " + err.Error()
	}
	uc.observer.RecordToolCall(name, "ok")
	return result
}

// safeExecute also contains connector panics; a panicking connector must
// not take the query down with it.
func safeExecute(ctx context.Context, handler ports.ToolHandler, args domain.ToolArguments) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("connector panic: %v", r)
		}
	}()
	return handler.Execute(ctx, args)
}

// emitStepSummary asks for a short recap of the steps taken. Best effort:
// failures are logged and swallowed, never surfaced to the caller.
func (uc *ToolOrchestratorUseCase) emitStepSummary(
	ctx context.Context,
	conversation []domain.ChatMessage,
	emit func(domain.QueryEvent) bool,
) {
	lines := make([]string, 0, len(conversation))
	for _, msg := range conversation {
		switch {
		case len(msg.ToolCalls) > 0:
			for _, call := range msg.ToolCalls {
				lines = append(lines, fmt.Sprintf("called %s(%s)", call.Name, call.Arguments))
			}
		case msg.Role == domain.RoleTool:
			lines = append(lines, fmt.Sprintf("%s returned: %s", msg.Name, msg.Content))
		}
	}

	prompt := fmt.Sprintf(`Summarize in one or two sentences what was just done on the user's behalf.
Plain language, past tense, no preamble.

Steps:
%s`, strings.Join(lines, "\n"))

	summary, err := uc.model.Complete(ctx, ports.ChatRequest{
		Messages: []domain.ChatMessage{{Role: domain.RoleUser, Content: prompt}},
	})
	if err != nil {
		slog.Warn("step_summary_failed", "error", err)
		return
	}
	summary = strings.TrimSpace(summary)
	if summary != "" {
		emit(domain.TokenEvent("\n\n" + summary))
	}
}

func describeToolCall(name string, args domain.ToolArguments) string {
	target := args.String("channel", args.String("to", args.String("title", "")))
	if target != "" {
		return fmt.Sprintf("Running %s on %q...", name, target)
	}
	return fmt.Sprintf("Running %s...", name)
}
