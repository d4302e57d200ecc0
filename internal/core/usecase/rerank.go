package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/nimbusworks/workspace-assistant/internal/core/domain"
)

const (
	// rerankCeiling bounds reranking cost: only the first fused candidates
	// up to this ceiling are scored.
	rerankCeiling = 30
	// rerankBatchSize is how many (query, text) pairs go to the reranking
	// service per call.
	rerankBatchSize = 16
)

type rerankedText struct {
	text  string
	score float64
}

// rerankCandidates re-scores the fused head with the reranking service and
// keeps the first topK. Returned texts map back to their candidate by exact
// text equality, first match wins. A reranker failure is fatal for the
// current query only.
func (uc *HybridSearchUseCase) rerankCandidates(ctx context.Context, query string, fused []domain.CandidateDocument, topK int) ([]domain.CandidateDocument, error) {
	if len(fused) == 0 {
		return nil, nil
	}

	head := fused
	if len(head) > rerankCeiling {
		head = head[:rerankCeiling]
	}

	texts := make([]string, 0, len(head))
	for _, doc := range head {
		texts = append(texts, doc.Text)
	}

	began := time.Now()
	defer func() {
		uc.observer.RecordRerank(time.Since(began))
	}()

	scored := make([]rerankedText, 0, len(texts))
	for start := 0; start < len(texts); start += rerankBatchSize {
		end := start + rerankBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]
		scores, err := uc.reranker.Score(ctx, query, batch)
		if err != nil {
			return nil, fmt.Errorf("rerank candidates: %w", err)
		}
		if len(scores) != len(batch) {
			return nil, fmt.Errorf("rerank candidates: got %d scores for %d texts", len(scores), len(batch))
		}
		for i, score := range scores {
			scored = append(scored, rerankedText{text: batch[i], score: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})
	if topK < len(scored) {
		scored = scored[:topK]
	}

	out := make([]domain.CandidateDocument, 0, len(scored))
	for _, entry := range scored {
		for _, doc := range head {
			if doc.Text == entry.text {
				doc.RerankScore = entry.score
				out = append(out, doc)
				break
			}
		}
	}
	return out, nil
}
