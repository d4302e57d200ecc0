package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/nimbusworks/workspace-assistant/internal/core/domain"
	"github.com/nimbusworks/workspace-assistant/internal/core/ports"
)

// SearchConfig bounds the hybrid retrieval pipeline.
type SearchConfig struct {
	// CandidateLimit is how many candidates each retriever may contribute.
	CandidateLimit int
	// RRFK is the reciprocal-rank-fusion constant.
	RRFK int
	// DefaultTopK is used when a query does not request a result size.
	DefaultTopK int
	// PageFetchLimit caps how many live pages are pulled per query.
	PageFetchLimit int
}

func (c SearchConfig) normalize() SearchConfig {
	out := c
	if out.CandidateLimit <= 0 {
		out.CandidateLimit = 30
	}
	if out.RRFK <= 0 {
		out.RRFK = 60
	}
	if out.DefaultTopK <= 0 {
		out.DefaultTopK = 5
	}
	if out.PageFetchLimit <= 0 {
		out.PageFetchLimit = out.CandidateLimit
	}
	return out
}

// HybridSearchUseCase runs the retrieval-and-ranking engine: vector and
// keyword retrieval, RRF fusion, and the reranker stage.
type HybridSearchUseCase struct {
	embedder ports.Embedder
	store    ports.DocumentStore
	pages    ports.PageSource
	reranker ports.Reranker
	observer ports.QueryObserver
	cfg      SearchConfig
}

func NewHybridSearchUseCase(
	embedder ports.Embedder,
	store ports.DocumentStore,
	pages ports.PageSource,
	reranker ports.Reranker,
	observer ports.QueryObserver,
	cfg SearchConfig,
) *HybridSearchUseCase {
	return &HybridSearchUseCase{
		embedder: embedder,
		store:    store,
		pages:    pages,
		reranker: reranker,
		observer: observerOrNop(observer),
		cfg:      cfg.normalize(),
	}
}

// Search returns the final top-k candidates for a query. Retriever failures
// degrade to empty partial results; only the reranker stage is fatal for
// the query, because without it there is no principled way to pick the
// final top-k.
func (uc *HybridSearchUseCase) Search(ctx context.Context, query string, topK int, filter domain.SearchFilter) ([]domain.CandidateDocument, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "hybrid search", fmt.Errorf("query is required"))
	}
	if topK <= 0 {
		topK = uc.cfg.DefaultTopK
	}

	vector := uc.vectorCandidates(ctx, query, filter)
	keyword := uc.keywordCandidates(ctx, query, filter)

	fused := fuseRRF(vector, keyword, uc.cfg.RRFK)
	if len(fused) == 0 {
		return nil, nil
	}

	return uc.rerankCandidates(ctx, query, fused, topK)
}

// vectorCandidates embeds the query and scores stored vectors of matching
// dimensionality by dot product (vectors are pre-normalized, so dot product
// equals cosine). Pages are fetched live and embedded on the fly; they are
// not written back to the store here.
func (uc *HybridSearchUseCase) vectorCandidates(ctx context.Context, query string, filter domain.SearchFilter) []domain.CandidateDocument {
	queryVector, err := uc.embedder.EmbedQuery(ctx, query)
	if err != nil {
		slog.Warn("vector_retrieval_degraded", "stage", "embed_query", "error", err)
		return nil
	}
	if len(queryVector) == 0 {
		return nil
	}

	out := make([]domain.CandidateDocument, 0, uc.cfg.CandidateLimit)

	stored, err := uc.store.LoadVectors(ctx, len(queryVector), filter)
	if err != nil {
		slog.Warn("vector_retrieval_degraded", "stage", "load_vectors", "error", err)
	}
	for _, doc := range stored {
		candidate := doc.Candidate()
		candidate.VectorScore = dotProduct(queryVector, doc.Vector)
		out = append(out, candidate)
	}

	out = append(out, uc.livePageCandidates(ctx, queryVector, filter)...)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].VectorScore > out[j].VectorScore
	})
	return trimCandidates(out, uc.cfg.CandidateLimit)
}

func (uc *HybridSearchUseCase) livePageCandidates(ctx context.Context, queryVector []float32, filter domain.SearchFilter) []domain.CandidateDocument {
	if uc.pages == nil || !filter.Matches(domain.SourcePage) {
		return nil
	}

	pages, err := uc.pages.FetchPages(ctx, uc.cfg.PageFetchLimit)
	if err != nil {
		slog.Warn("vector_retrieval_degraded", "stage", "fetch_pages", "error", err)
		return nil
	}
	if len(pages) == 0 {
		return nil
	}

	texts := make([]string, 0, len(pages))
	for _, page := range pages {
		texts = append(texts, page.Text)
	}
	vectors, err := uc.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		slog.Warn("vector_retrieval_degraded", "stage", "embed_pages", "error", err)
		return nil
	}

	out := make([]domain.CandidateDocument, 0, len(pages))
	for i, page := range pages {
		if i >= len(vectors) || len(vectors[i]) != len(queryVector) {
			continue
		}
		candidate := page.Candidate()
		candidate.VectorScore = dotProduct(queryVector, vectors[i])
		out = append(out, candidate)
	}
	return out
}

// keywordCandidates performs case-insensitive substring retrieval. Keyword
// search carries no intrinsic ranking signal, so every match scores 1.0.
func (uc *HybridSearchUseCase) keywordCandidates(ctx context.Context, query string, filter domain.SearchFilter) []domain.CandidateDocument {
	matches, err := uc.store.KeywordSearch(ctx, query, uc.cfg.CandidateLimit, filter)
	if err != nil {
		slog.Warn("keyword_retrieval_degraded", "error", err)
		return nil
	}

	out := make([]domain.CandidateDocument, 0, len(matches))
	for _, doc := range matches {
		candidate := doc.Candidate()
		candidate.KeywordScore = 1.0
		out = append(out, candidate)
	}
	return out
}

func dotProduct(a []float32, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
