package rag

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/askdoc-io/askdoc/internal/domain"
)

// --- Mocks ---

type mockIndex struct {
	docs         []domain.Document
	searchResult []domain.Document
	searchErr    error
	addErr       error
	searchCalled bool
	lastK        int
	savedPrefix  string
	loadedPrefix string
}

func (m *mockIndex) Add(_ context.Context, docs []domain.Document) error {
	if m.addErr != nil {
		return m.addErr
	}
	m.docs = append(m.docs, docs...)
	return nil
}

func (m *mockIndex) Search(_ context.Context, _ string, k int) ([]domain.Document, error) {
	m.searchCalled = true
	m.lastK = k
	return m.searchResult, m.searchErr
}

func (m *mockIndex) Save(prefix string) error { m.savedPrefix = prefix; return nil }
func (m *mockIndex) Load(prefix string) error { m.loadedPrefix = prefix; return nil }
func (m *mockIndex) Clear()                   { m.docs = nil }
func (m *mockIndex) Count() int               { return len(m.docs) }
func (m *mockIndex) All() []domain.Document   { return m.docs }

type mockReranker struct {
	result []domain.Document
	err    error
	lastK  int
	called bool
}

func (m *mockReranker) Rerank(
	_ context.Context, _ string, candidates []domain.Document, topK int,
) ([]domain.Document, error) {
	m.called = true
	m.lastK = topK
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	if topK < len(candidates) {
		return candidates[:topK], nil
	}
	return candidates, nil
}

type mockGenerator struct {
	answer     string
	err        error
	lastPrompt string
	called     bool
}

func (m *mockGenerator) Generate(_ context.Context, prompt string) (string, error) {
	m.called = true
	m.lastPrompt = prompt
	return m.answer, m.err
}

func d(id, content string) domain.Document {
	return domain.Document{ID: id, Content: content}
}

func newService(t *testing.T, idx *mockIndex, rr *mockReranker, gen *mockGenerator) *Service {
	t.Helper()
	svc, err := New(idx, rr, gen, Config{TopK: 5, RerankTopK: 2}, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return svc
}

// --- Tests ---

func TestNew_RejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero topK", Config{TopK: 0, RerankTopK: 1}},
		{"zero rerankTopK", Config{TopK: 5, RerankTopK: 0}},
		{"rerankTopK above topK", Config{TopK: 3, RerankTopK: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(&mockIndex{}, &mockReranker{}, &mockGenerator{}, tt.cfg, zap.NewNop())
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestIndex_EmptySequence(t *testing.T) {
	idx := &mockIndex{}
	svc := newService(t, idx, &mockReranker{}, &mockGenerator{})
	if err := svc.Index(context.Background(), nil); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestQuery_EmptyStoreFailsBeforeSearch(t *testing.T) {
	idx := &mockIndex{}
	svc := newService(t, idx, &mockReranker{}, &mockGenerator{})

	_, err := svc.Query(context.Background(), "anything?")
	if !errors.Is(err, domain.ErrEmptyStore) {
		t.Fatalf("expected ErrEmptyStore, got %v", err)
	}
	if idx.searchCalled {
		t.Error("search must not run against an empty store")
	}
}

func TestQuery_NoResults(t *testing.T) {
	idx := &mockIndex{docs: []domain.Document{d("a", "text")}, searchResult: nil}
	svc := newService(t, idx, &mockReranker{}, &mockGenerator{})

	_, err := svc.Query(context.Background(), "question?")
	if !errors.Is(err, domain.ErrNoResults) {
		t.Fatalf("expected ErrNoResults, got %v", err)
	}
}

func TestQuery_FullPipeline(t *testing.T) {
	retrieved := []domain.Document{d("sky", "The sky is blue."), d("grass", "Grass is green.")}
	idx := &mockIndex{docs: retrieved, searchResult: retrieved}
	rr := &mockReranker{result: []domain.Document{retrieved[0]}}
	gen := &mockGenerator{answer: "The sky is blue, per Document 1."}
	svc := newService(t, idx, rr, gen)
	svc.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	resp, err := svc.Query(context.Background(), "What color is the sky?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if idx.lastK != 5 {
		t.Errorf("expected topK 5 passed to search, got %d", idx.lastK)
	}
	if rr.lastK != 2 {
		t.Errorf("expected rerankTopK 2 passed to reranker, got %d", rr.lastK)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].ID != "sky" {
		t.Errorf("expected the sky document as sole source, got %v", resp.Sources)
	}
	if resp.Answer != gen.answer {
		t.Errorf("answer not carried: %q", resp.Answer)
	}
	if resp.Question != "What color is the sky?" {
		t.Errorf("question not carried: %q", resp.Question)
	}
	if resp.Timestamp != svc.now() {
		t.Errorf("timestamp not stamped: %v", resp.Timestamp)
	}

	// Prompt must label candidates by rank and embed question + content.
	for _, want := range []string{"[Document 1]", "The sky is blue.", "What color is the sky?"} {
		if !strings.Contains(gen.lastPrompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, gen.lastPrompt)
		}
	}
	if strings.Contains(gen.lastPrompt, "[Document 2]") {
		t.Error("prompt must only contain reranked sources")
	}
}

func TestQuery_StageErrorsPropagate(t *testing.T) {
	docs := []domain.Document{d("a", "text")}
	boom := errors.New("provider down")

	t.Run("retrieve stage", func(t *testing.T) {
		idx := &mockIndex{docs: docs, searchErr: boom}
		svc := newService(t, idx, &mockReranker{}, &mockGenerator{})
		_, err := svc.Query(context.Background(), "q?")
		if !errors.Is(err, boom) || !strings.Contains(err.Error(), "retrieve stage") {
			t.Errorf("expected boom wrapped with retrieve stage, got %v", err)
		}
	})

	t.Run("rerank stage", func(t *testing.T) {
		idx := &mockIndex{docs: docs, searchResult: docs}
		svc := newService(t, idx, &mockReranker{err: boom}, &mockGenerator{})
		_, err := svc.Query(context.Background(), "q?")
		if !errors.Is(err, boom) || !strings.Contains(err.Error(), "rerank stage") {
			t.Errorf("expected boom wrapped with rerank stage, got %v", err)
		}
	})

	t.Run("generate stage", func(t *testing.T) {
		idx := &mockIndex{docs: docs, searchResult: docs}
		svc := newService(t, idx, &mockReranker{}, &mockGenerator{err: boom})
		_, err := svc.Query(context.Background(), "q?")
		if !errors.Is(err, boom) || !strings.Contains(err.Error(), "generate stage") {
			t.Errorf("expected boom wrapped with generate stage, got %v", err)
		}
	})
}

func TestLifecycleDelegation(t *testing.T) {
	idx := &mockIndex{docs: []domain.Document{d("a", "text")}}
	svc := newService(t, idx, &mockReranker{}, &mockGenerator{})

	if svc.DocumentCount() != 1 {
		t.Errorf("expected count 1, got %d", svc.DocumentCount())
	}
	if err := svc.SaveIndex("/tmp/prefix"); err != nil || idx.savedPrefix != "/tmp/prefix" {
		t.Errorf("save not delegated: %v %q", err, idx.savedPrefix)
	}
	if err := svc.LoadIndex("/tmp/other"); err != nil || idx.loadedPrefix != "/tmp/other" {
		t.Errorf("load not delegated: %v %q", err, idx.loadedPrefix)
	}
	svc.Clear()
	if svc.DocumentCount() != 0 {
		t.Errorf("expected empty store after clear, got %d", svc.DocumentCount())
	}
}
