package usecase

import (
	"sort"

	"github.com/nimbusworks/workspace-assistant/internal/core/domain"
)

type fusedCandidate struct {
	doc   domain.CandidateDocument
	score float64
	// order is the index of first appearance across [vector list, keyword
	// list]; it breaks score ties deterministically.
	order int
}

// fuseRRF merges two already-ranked candidate lists with Reciprocal Rank
// Fusion: a document at rank r contributes 1/(k+r) from each list it
// appears in. Candidates are registered by dedup key; the first-seen list
// wins the stored payload. Pure and deterministic given its inputs.
func fuseRRF(vector, keyword []domain.CandidateDocument, rrfK int) []domain.CandidateDocument {
	if rrfK <= 0 {
		rrfK = 60
	}

	acc := make(map[string]*fusedCandidate, len(vector)+len(keyword))
	next := 0
	addList := func(docs []domain.CandidateDocument) {
		for rank, doc := range docs {
			key := doc.DedupKey()
			entry, ok := acc[key]
			if !ok {
				entry = &fusedCandidate{doc: doc, order: next}
				next++
				acc[key] = entry
			} else {
				mergeStageScores(&entry.doc, doc)
			}
			entry.score += 1.0 / float64(rrfK+rank+1)
		}
	}

	addList(vector)
	addList(keyword)

	entries := make([]*fusedCandidate, 0, len(acc))
	for _, entry := range acc {
		entries = append(entries, entry)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		return entries[i].order < entries[j].order
	})

	out := make([]domain.CandidateDocument, 0, len(entries))
	for _, entry := range entries {
		doc := entry.doc
		doc.FusedScore = entry.score
		out = append(out, doc)
	}
	return out
}

// mergeStageScores carries per-stage score annotations from a later
// appearance onto the registered payload without replacing it.
func mergeStageScores(current *domain.CandidateDocument, other domain.CandidateDocument) {
	if current.VectorScore == 0 && other.VectorScore != 0 {
		current.VectorScore = other.VectorScore
	}
	if current.KeywordScore == 0 && other.KeywordScore != 0 {
		current.KeywordScore = other.KeywordScore
	}
}

func trimCandidates(docs []domain.CandidateDocument, limit int) []domain.CandidateDocument {
	if limit <= 0 || len(docs) <= limit {
		return docs
	}
	return docs[:limit]
}
