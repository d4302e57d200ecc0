package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nimbusworks/workspace-assistant/internal/core/domain"
	"github.com/nimbusworks/workspace-assistant/internal/core/ports"
)

// IndexerUseCase consumes workspace snapshot events and keeps the document
// store fresh. A snapshot that cannot be embedded is still stored: without
// a vector it stays reachable through keyword search.
type IndexerUseCase struct {
	embedder ports.Embedder
	store    ports.DocumentStore
}

func NewIndexerUseCase(embedder ports.Embedder, store ports.DocumentStore) *IndexerUseCase {
	return &IndexerUseCase{embedder: embedder, store: store}
}

func (uc *IndexerUseCase) IndexSnapshot(ctx context.Context, doc domain.StoredDocument) error {
	if strings.TrimSpace(doc.ID) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "index snapshot", fmt.Errorf("snapshot id is required"))
	}
	if strings.TrimSpace(doc.Text) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "index snapshot", fmt.Errorf("snapshot text is required"))
	}

	vectors, err := uc.embedder.EmbedDocuments(ctx, []string{doc.Text})
	switch {
	case err != nil:
		slog.Warn("snapshot_embedding_skipped", "id", doc.ID, "error", err)
		doc.Vector = nil
	case len(vectors) == 1:
		doc.Vector = vectors[0]
	}

	if err := uc.store.Upsert(ctx, []domain.StoredDocument{doc}); err != nil {
		return fmt.Errorf("upsert snapshot %s: %w", doc.ID, err)
	}
	return nil
}
