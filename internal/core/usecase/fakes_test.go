package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nimbusworks/workspace-assistant/internal/core/domain"
	"github.com/nimbusworks/workspace-assistant/internal/core/ports"
)

type fakeEmbedder struct {
	queryVector []float32
	docVectors  [][]float32
	queryErr    error
	docsErr     error

	queryCalls int
	docCalls   int
}

func (f *fakeEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	f.queryCalls++
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.queryVector, nil
}

func (f *fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	f.docCalls++
	if f.docsErr != nil {
		return nil, f.docsErr
	}
	if f.docVectors != nil {
		return f.docVectors, nil
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = f.queryVector
	}
	return out, nil
}

type fakeStore struct {
	vectorDocs  []domain.StoredDocument
	keywordDocs []domain.StoredDocument
	vectorsErr  error
	keywordErr  error
	upsertErr   error

	keywordCalls int
	upserted     [][]domain.StoredDocument
}

func (f *fakeStore) KeywordSearch(_ context.Context, _ string, _ int, _ domain.SearchFilter) ([]domain.StoredDocument, error) {
	f.keywordCalls++
	if f.keywordErr != nil {
		return nil, f.keywordErr
	}
	return f.keywordDocs, nil
}

func (f *fakeStore) LoadVectors(_ context.Context, dim int, _ domain.SearchFilter) ([]domain.StoredDocument, error) {
	if f.vectorsErr != nil {
		return nil, f.vectorsErr
	}
	out := make([]domain.StoredDocument, 0, len(f.vectorDocs))
	for _, doc := range f.vectorDocs {
		if len(doc.Vector) == dim {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (f *fakeStore) Upsert(_ context.Context, docs []domain.StoredDocument) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, docs)
	return nil
}

type fakePages struct {
	pages []domain.StoredDocument
	err   error
}

func (f *fakePages) FetchPages(context.Context, int) ([]domain.StoredDocument, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.pages, nil
}

// fakeReranker scores texts by a lookup table; texts not in the table score
// zero. It records every batch it receives.
type fakeReranker struct {
	scores  map[string]float64
	err     error
	batches [][]string
}

func (f *fakeReranker) Score(_ context.Context, _ string, texts []string) ([]float64, error) {
	batch := make([]string, len(texts))
	copy(batch, texts)
	f.batches = append(f.batches, batch)
	if f.err != nil {
		return nil, f.err
	}
	out := make([]float64, len(texts))
	for i, text := range texts {
		out[i] = f.scores[text]
	}
	return out, nil
}

// scriptedChatModel plays back one scripted delta sequence per StreamChat
// call. When the script runs out it streams nothing, which ends any loop.
type scriptedChatModel struct {
	mu    sync.Mutex
	turns [][]ports.ChatDelta

	streamErr   error
	completeOut string
	completeErr error
	jsonOut     string
	jsonErr     error

	streamCalls   int
	completeCalls int
}

func (m *scriptedChatModel) StreamChat(ctx context.Context, _ ports.ChatRequest) (<-chan ports.ChatDelta, error) {
	m.mu.Lock()
	m.streamCalls++
	if m.streamErr != nil {
		m.mu.Unlock()
		return nil, m.streamErr
	}
	var turn []ports.ChatDelta
	if len(m.turns) > 0 {
		turn = m.turns[0]
		m.turns = m.turns[1:]
	}
	m.mu.Unlock()

	out := make(chan ports.ChatDelta)
	go func() {
		defer close(out)
		for _, delta := range turn {
			select {
			case out <- delta:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (m *scriptedChatModel) Complete(context.Context, ports.ChatRequest) (string, error) {
	m.mu.Lock()
	m.completeCalls++
	m.mu.Unlock()
	return m.completeOut, m.completeErr
}

func (m *scriptedChatModel) GenerateJSON(context.Context, string) (string, error) {
	return m.jsonOut, m.jsonErr
}

type fakeCatalog struct {
	descriptors map[string]domain.ToolDescriptor
	handlers    map[string]ports.ToolHandler
}

func (f *fakeCatalog) Schemas() []map[string]any {
	out := make([]map[string]any, 0, len(f.descriptors))
	for _, descriptor := range f.descriptors {
		out = append(out, descriptor.ToolSchema())
	}
	return out
}

func (f *fakeCatalog) Descriptor(name string) (domain.ToolDescriptor, bool) {
	descriptor, ok := f.descriptors[name]
	return descriptor, ok
}

func (f *fakeCatalog) Handler(name string) (ports.ToolHandler, bool) {
	handler, ok := f.handlers[name]
	return handler, ok
}

// spyHandler records every argument set it executes.
type spyHandler struct {
	result string
	err    error
	panics bool

	calls []domain.ToolArguments
}

func (s *spyHandler) Execute(_ context.Context, args domain.ToolArguments) (string, error) {
	s.calls = append(s.calls, args)
	if s.panics {
		panic("connector exploded")
	}
	return s.result, s.err
}

var errBoom = errors.New("boom")

func storedDoc(id, text string, vector []float32) domain.StoredDocument {
	return domain.StoredDocument{
		ID:         id,
		SourceType: domain.SourceChat,
		Text:       text,
		Metadata:   map[string]string{},
		Vector:     vector,
	}
}

func candidate(text string) domain.CandidateDocument {
	return domain.CandidateDocument{
		SourceType: domain.SourceChat,
		Text:       text,
		Metadata:   map[string]string{},
	}
}

func collectEvents(ch <-chan domain.QueryEvent) []domain.QueryEvent {
	var out []domain.QueryEvent
	for event := range ch {
		out = append(out, event)
	}
	return out
}

type recordedQuery struct {
	intent  string
	status  string
	sources int
}

type fakeObserver struct {
	mu sync.Mutex

	queries       []recordedQuery
	rerankCalls   int
	toolCalls     map[string][]string
	refusals      []string
	runIterations []int
}

func newFakeObserver() *fakeObserver {
	return &fakeObserver{toolCalls: map[string][]string{}}
}

func (o *fakeObserver) RecordQuery(intent, status string, sourceCount int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.queries = append(o.queries, recordedQuery{intent: intent, status: status, sources: sourceCount})
}

func (o *fakeObserver) RecordRerank(time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rerankCalls++
}

func (o *fakeObserver) RecordToolCall(tool, status string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.toolCalls[tool] = append(o.toolCalls[tool], status)
}

func (o *fakeObserver) RecordGuardrailRefusal(tool string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.refusals = append(o.refusals, tool)
}

func (o *fakeObserver) RecordOrchestratorRun(iterations int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.runIterations = append(o.runIterations, iterations)
}
