package ports

import (
	"context"

	"github.com/nimbusworks/workspace-assistant/internal/core/domain"
)

// ToolHandler executes one workspace action with parsed arguments and
// returns a human-readable result. Errors are never propagated past the
// orchestrator; they become textual tool results.
type ToolHandler interface {
	Execute(ctx context.Context, args domain.ToolArguments) (string, error)
}

// ToolHandlerFunc adapts a plain function into a ToolHandler.
type ToolHandlerFunc func(ctx context.Context, args domain.ToolArguments) (string, error)

func (f ToolHandlerFunc) Execute(ctx context.Context, args domain.ToolArguments) (string, error) {
	return f(ctx, args)
}

// ToolCatalog is the static registry of callable actions. It is immutable
// after startup and shared read-only by all queries.
type ToolCatalog interface {
	Schemas() []map[string]any
	Descriptor(name string) (domain.ToolDescriptor, bool)
	Handler(name string) (ToolHandler, bool)
}
