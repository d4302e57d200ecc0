package ports

import (
	"context"

	"github.com/nimbusworks/workspace-assistant/internal/core/domain"
)

// Embedder maps text onto fixed-length normalized vectors. Query and
// document text are encoded differently by some models, so the two flavors
// are separate operations. Implementations must be safe for concurrent use.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// Reranker scores (query, text) pairs for relevance. Implementations load
// their model lazily on first use; a failed load surfaces as
// domain.ErrRerankerUnavailable and may be retried on a later call.
type Reranker interface {
	Score(ctx context.Context, query string, texts []string) ([]float64, error)
}

// DocumentStore holds workspace document snapshots with optional
// precomputed vectors.
type DocumentStore interface {
	// KeywordSearch performs case-insensitive substring matching over
	// message text and email subject+body.
	KeywordSearch(ctx context.Context, query string, limit int, filter domain.SearchFilter) ([]domain.StoredDocument, error)
	// LoadVectors returns stored snapshots whose vector has the given
	// dimensionality. Snapshots without a vector are skipped.
	LoadVectors(ctx context.Context, dim int, filter domain.SearchFilter) ([]domain.StoredDocument, error)
	// Upsert writes snapshots, replacing earlier versions by id.
	Upsert(ctx context.Context, docs []domain.StoredDocument) error
}

// PageSource fetches pages from a remote workspace API at query time. Its
// content is not persisted; the vector retriever embeds it on the fly.
type PageSource interface {
	FetchPages(ctx context.Context, limit int) ([]domain.StoredDocument, error)
}

// ChatRequest is one call to the chat-completion protocol.
type ChatRequest struct {
	Messages   []domain.ChatMessage
	Tools      []map[string]any
	ToolChoice string
}

// ChatDelta is one streamed increment of a chat completion: content tokens
// and/or tool-call fragments. The tool-call name arrives as soon as the
// model produces it; argument text arrives fragment by fragment and must be
// concatenated in arrival order, per ToolCallIndex when the model streams
// several calls in parallel.
type ChatDelta struct {
	Content           string
	ToolCallIndex     int
	ToolCallID        string
	ToolCallName      string
	ArgumentsFragment string
	Err               error
}

// ChatModel is the streaming chat-completion interface. The delta channel
// is closed when the stream ends; a transport failure is delivered as a
// final delta carrying Err.
type ChatModel interface {
	StreamChat(ctx context.Context, req ChatRequest) (<-chan ChatDelta, error)
	Complete(ctx context.Context, req ChatRequest) (string, error)
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// SyncQueue transports workspace snapshot events between the connectors
// that observe a workspace and the indexing worker. The publishing side
// runs in the platform connectors that watch each workspace service; the
// worker binary only subscribes.
type SyncQueue interface {
	PublishSnapshot(ctx context.Context, doc domain.StoredDocument) error
	SubscribeSnapshots(ctx context.Context, handler func(context.Context, domain.StoredDocument) error) error
}
