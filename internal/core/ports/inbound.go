package ports

import (
	"context"

	"github.com/nimbusworks/workspace-assistant/internal/core/domain"
)

// QueryService is the inbound contract for assistant queries.
type QueryService interface {
	// Ask runs the staged (non-streaming) query path: classify, retrieve,
	// and/or orchestrate tools depending on intent.
	Ask(ctx context.Context, req domain.QueryRequest) (*domain.QueryAnswer, error)
	// StreamQuery runs the same lifecycle and returns the query's event
	// stream. The channel is closed after the terminal event; if the caller
	// cancels ctx, the producer stops at its next send.
	StreamQuery(ctx context.Context, req domain.QueryRequest) <-chan domain.QueryEvent
}

// SearchService is the inbound contract for hybrid retrieval on its own,
// used by the search tool and the MCP adapter.
type SearchService interface {
	Search(ctx context.Context, query string, topK int, filter domain.SearchFilter) ([]domain.CandidateDocument, error)
}

// SnapshotIndexer consumes workspace snapshot events and keeps the document
// store fresh.
type SnapshotIndexer interface {
	IndexSnapshot(ctx context.Context, doc domain.StoredDocument) error
}
