package usecase

import (
	"context"
	"testing"

	"github.com/nimbusworks/workspace-assistant/internal/core/domain"
)

func TestClassifyParsesJSONLabel(t *testing.T) {
	model := &scriptedChatModel{jsonOut: `{"intent":"action"}`}
	uc := NewIntentClassifierUseCase(model)

	if got := uc.Classify(context.Background(), "archive the old channel"); got != domain.IntentAction {
		t.Fatalf("expected action, got %s", got)
	}
}

func TestClassifyAcceptsBareLabel(t *testing.T) {
	model := &scriptedChatModel{jsonOut: "hybrid"}
	uc := NewIntentClassifierUseCase(model)

	if got := uc.Classify(context.Background(), "find the thread and reply to it"); got != domain.IntentHybrid {
		t.Fatalf("expected hybrid, got %s", got)
	}
}

func TestClassifyFallsBackToSearchOnUnknownLabel(t *testing.T) {
	model := &scriptedChatModel{jsonOut: `{"intent":"browse"}`}
	uc := NewIntentClassifierUseCase(model)

	if got := uc.Classify(context.Background(), "what happened yesterday"); got != domain.IntentSearch {
		t.Fatalf("expected search fallback, got %s", got)
	}
}

func TestClassifyFallsBackToSearchOnModelFailure(t *testing.T) {
	model := &scriptedChatModel{jsonErr: errBoom}
	uc := NewIntentClassifierUseCase(model)

	if got := uc.Classify(context.Background(), "what happened yesterday"); got != domain.IntentSearch {
		t.Fatalf("expected search fallback on failure, got %s", got)
	}
}
