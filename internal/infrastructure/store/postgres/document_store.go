// Package postgres persists workspace document snapshots.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/nimbusworks/workspace-assistant/internal/core/domain"
)

type DocumentStore struct {
	db *sql.DB
}

func NewDocumentStore(db *sql.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (s *DocumentStore) EnsureSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026090101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS workspace_documents (
	id TEXT PRIMARY KEY,
	source_type TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	body TEXT NOT NULL,
	metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
	embedding JSONB,
	embedding_dim INT NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_workspace_documents_source_type ON workspace_documents(source_type);
CREATE INDEX IF NOT EXISTS idx_workspace_documents_embedding_dim ON workspace_documents(embedding_dim);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

const documentColumns = `id, source_type, title, body, metadata, embedding`

// KeywordSearch matches query text case-insensitively against document
// bodies; email subjects are searched too because users quote them verbatim.
func (s *DocumentStore) KeywordSearch(ctx context.Context, query string, limit int, filter domain.SearchFilter) ([]domain.StoredDocument, error) {
	if limit <= 0 {
		return nil, nil
	}
	pattern := "%" + escapeLikePattern(query) + "%"

	var (
		rows *sql.Rows
		err  error
	)
	if len(filter.SourceTypes) == 0 {
		rows, err = s.db.QueryContext(ctx, `
SELECT `+documentColumns+`
FROM workspace_documents
WHERE body ILIKE $1 ESCAPE '\' OR (source_type = 'email' AND title ILIKE $1 ESCAPE '\')
ORDER BY updated_at DESC
LIMIT $2
`, pattern, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `
SELECT `+documentColumns+`
FROM workspace_documents
WHERE (body ILIKE $1 ESCAPE '\' OR (source_type = 'email' AND title ILIKE $1 ESCAPE '\'))
  AND source_type = ANY($2)
ORDER BY updated_at DESC
LIMIT $3
`, pattern, sourceTypeStrings(filter), limit)
	}
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// LoadVectors returns snapshots whose stored embedding has the requested
// dimensionality. Snapshots without an embedding are skipped.
func (s *DocumentStore) LoadVectors(ctx context.Context, dim int, filter domain.SearchFilter) ([]domain.StoredDocument, error) {
	if dim <= 0 {
		return nil, nil
	}

	var (
		rows *sql.Rows
		err  error
	)
	if len(filter.SourceTypes) == 0 {
		rows, err = s.db.QueryContext(ctx, `
SELECT `+documentColumns+`
FROM workspace_documents
WHERE embedding_dim = $1
`, dim)
	} else {
		rows, err = s.db.QueryContext(ctx, `
SELECT `+documentColumns+`
FROM workspace_documents
WHERE embedding_dim = $1 AND source_type = ANY($2)
`, dim, sourceTypeStrings(filter))
	}
	if err != nil {
		return nil, fmt.Errorf("load vectors: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

func (s *DocumentStore) Upsert(ctx context.Context, docs []domain.StoredDocument) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	for _, doc := range docs {
		metadataJSON, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		var embeddingJSON any
		if len(doc.Vector) > 0 {
			raw, err := json.Marshal(doc.Vector)
			if err != nil {
				return fmt.Errorf("marshal embedding: %w", err)
			}
			embeddingJSON = raw
		}

		_, err = tx.ExecContext(ctx, `
INSERT INTO workspace_documents (id, source_type, title, body, metadata, embedding, embedding_dim, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
	source_type = EXCLUDED.source_type,
	title = EXCLUDED.title,
	body = EXCLUDED.body,
	metadata = EXCLUDED.metadata,
	embedding = EXCLUDED.embedding,
	embedding_dim = EXCLUDED.embedding_dim,
	updated_at = EXCLUDED.updated_at
`, doc.ID, string(doc.SourceType), doc.Title, doc.Text, metadataJSON, embeddingJSON, len(doc.Vector), now)
		if err != nil {
			return fmt.Errorf("upsert document %s: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert tx: %w", err)
	}
	return nil
}

func scanDocuments(rows *sql.Rows) ([]domain.StoredDocument, error) {
	var out []domain.StoredDocument
	for rows.Next() {
		var (
			doc          domain.StoredDocument
			sourceType   string
			metadataRaw  []byte
			embeddingRaw []byte
		)
		if err := rows.Scan(&doc.ID, &sourceType, &doc.Title, &doc.Text, &metadataRaw, &embeddingRaw); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc.SourceType = domain.SourceType(sourceType)
		if len(metadataRaw) > 0 {
			if err := json.Unmarshal(metadataRaw, &doc.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata: %w", err)
			}
		}
		if len(embeddingRaw) > 0 {
			if err := json.Unmarshal(embeddingRaw, &doc.Vector); err != nil {
				return nil, fmt.Errorf("unmarshal embedding: %w", err)
			}
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

// escapeLikePattern neutralizes LIKE metacharacters so user text is matched
// as a literal substring.
func escapeLikePattern(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

func sourceTypeStrings(filter domain.SearchFilter) []string {
	out := make([]string, 0, len(filter.SourceTypes))
	for _, st := range filter.SourceTypes {
		out = append(out, string(st))
	}
	return out
}
