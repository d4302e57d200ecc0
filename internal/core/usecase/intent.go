package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nimbusworks/workspace-assistant/internal/core/domain"
	"github.com/nimbusworks/workspace-assistant/internal/core/ports"
)

// IntentClassifierUseCase labels a query as search, action, or hybrid with
// a single model call. Anything it cannot parse falls back to search, which
// never skips retrieval context for a real question.
type IntentClassifierUseCase struct {
	model ports.ChatModel
}

func NewIntentClassifierUseCase(model ports.ChatModel) *IntentClassifierUseCase {
	return &IntentClassifierUseCase{model: model}
}

func (uc *IntentClassifierUseCase) Classify(ctx context.Context, query string) domain.QueryIntent {
	raw, err := uc.model.GenerateJSON(ctx, buildIntentPrompt(query))
	if err != nil {
		slog.Warn("intent_classification_fallback", "error", err)
		return domain.IntentSearch
	}

	var parsed struct {
		Intent string `json:"intent"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		// Some models answer with the bare label despite the instruction.
		return domain.ParseIntent(raw)
	}
	return domain.ParseIntent(parsed.Intent)
}

func buildIntentPrompt(query string) string {
	return fmt.Sprintf(`Classify the user request into exactly one category.
Categories:
- "search": the user asks a question answerable from workspace content
- "action": the user asks to perform an action on the workspace (send, create, archive, delete)
- "hybrid": the request needs both looking things up and performing an action

Return ONLY a JSON object: {"intent":"search"} or {"intent":"action"} or {"intent":"hybrid"}.

User request:
%s`, strings.TrimSpace(query))
}
