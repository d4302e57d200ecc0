package domain

// SourceType identifies which workspace surface a document came from.
type SourceType string

const (
	SourceChat  SourceType = "chat"
	SourceEmail SourceType = "email"
	SourcePage  SourceType = "page"
)

// dedupKeyRunes is the prefix length used to decide whether two candidates
// are the same document during fusion. The key is deliberately lossy.
const dedupKeyRunes = 100

// CandidateDocument is one retrieval candidate. It is constructed fresh per
// query and only annotated with additional scores as it moves through the
// pipeline stages.
type CandidateDocument struct {
	SourceType SourceType        `json:"source_type"`
	Text       string            `json:"text"`
	Metadata   map[string]string `json:"metadata,omitempty"`

	VectorScore  float64 `json:"vector_score,omitempty"`
	KeywordScore float64 `json:"keyword_score,omitempty"`
	FusedScore   float64 `json:"fused_score,omitempty"`
	RerankScore  float64 `json:"rerank_score,omitempty"`
}

// DedupKey returns the fusion identity of the document: the first 100 runes
// of its text. Distinct documents sharing a long common prefix collapse into
// one candidate; that granularity is intentional.
func (d CandidateDocument) DedupKey() string {
	runes := []rune(d.Text)
	if len(runes) <= dedupKeyRunes {
		return d.Text
	}
	return string(runes[:dedupKeyRunes])
}

// StoredDocument is a document snapshot held by the document store. The
// vector is optional: documents without one are only reachable through
// keyword search.
type StoredDocument struct {
	ID         string            `json:"id"`
	SourceType SourceType        `json:"source_type"`
	Title      string            `json:"title,omitempty"`
	Text       string            `json:"text"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Vector     []float32         `json:"vector,omitempty"`
}

// Candidate converts a stored snapshot into a retrieval candidate. Email
// subjects travel in the metadata so the model can cite them.
func (s StoredDocument) Candidate() CandidateDocument {
	meta := make(map[string]string, len(s.Metadata)+2)
	for k, v := range s.Metadata {
		meta[k] = v
	}
	if s.Title != "" {
		meta["title"] = s.Title
	}
	if s.ID != "" {
		meta["document_id"] = s.ID
	}
	return CandidateDocument{
		SourceType: s.SourceType,
		Text:       s.Text,
		Metadata:   meta,
	}
}

// SearchFilter narrows retrieval to a subset of workspace sources. An empty
// filter matches everything.
type SearchFilter struct {
	SourceTypes []SourceType
}

// Matches reports whether the given source passes the filter.
func (f SearchFilter) Matches(source SourceType) bool {
	if len(f.SourceTypes) == 0 {
		return true
	}
	for _, st := range f.SourceTypes {
		if st == source {
			return true
		}
	}
	return false
}
