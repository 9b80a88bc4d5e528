package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/askdoc-io/askdoc/internal/chunker"
	"github.com/askdoc-io/askdoc/internal/domain"
	"github.com/askdoc-io/askdoc/internal/metrics"
	ingestuc "github.com/askdoc-io/askdoc/internal/usecase/ingest"
	raguc "github.com/askdoc-io/askdoc/internal/usecase/rag"
)

func TestMain(m *testing.M) {
	metrics.RegisterProviderMetrics()
	os.Exit(m.Run())
}

type fakeIndex struct {
	docs      []domain.Document
	addErr    error
	searchErr error
	saveErr   error
	loadErr   error
}

func (f *fakeIndex) Add(_ context.Context, docs []domain.Document) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.docs = append(f.docs, docs...)
	return nil
}

func (f *fakeIndex) Search(_ context.Context, _ string, k int) ([]domain.Document, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if k > len(f.docs) {
		k = len(f.docs)
	}
	return f.docs[:k], nil
}

func (f *fakeIndex) Save(string) error { return f.saveErr }
func (f *fakeIndex) Load(string) error { return f.loadErr }
func (f *fakeIndex) Clear()            { f.docs = nil }
func (f *fakeIndex) Count() int        { return len(f.docs) }
func (f *fakeIndex) All() []domain.Document {
	return append([]domain.Document(nil), f.docs...)
}

type fakeReranker struct{ err error }

func (f *fakeReranker) Rerank(_ context.Context, _ string, cands []domain.Document, topK int) ([]domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	if topK > len(cands) {
		topK = len(cands)
	}
	return cands[:topK], nil
}

type fakeGenerator struct {
	answer string
	err    error
}

func (f *fakeGenerator) Generate(context.Context, string) (string, error) {
	return f.answer, f.err
}

type harness struct {
	index  *fakeIndex
	router http.Handler
}

func newHarness(t *testing.T, idx *fakeIndex, rr *fakeReranker, gen *fakeGenerator) *harness {
	t.Helper()
	svc, err := raguc.New(idx, rr, gen, raguc.Config{TopK: 3, RerankTopK: 2}, zap.NewNop())
	if err != nil {
		t.Fatalf("rag service: %v", err)
	}
	ing := ingestuc.New(svc, chunker.Options{ChunkSize: 1000, Overlap: 0}, zap.NewNop())
	srv := NewServer(svc, ing, t.TempDir()+"/index", zap.NewNop())
	return &harness{index: idx, router: srv.Router(nil)}
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestIngestDocument_CreatesChunks(t *testing.T) {
	h := newHarness(t, &fakeIndex{}, &fakeReranker{}, &fakeGenerator{answer: "ok"})

	rec := doJSON(t, h.router, "POST", "/documents", IngestRequest{
		Source:    "paper.pdf",
		Text:      "First paragraph.\n\nSecond paragraph.",
		PageCount: 2,
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d (body %s)", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var resp struct {
		Source         string `json:"source"`
		ChunksIndexed  int    `json:"chunksIndexed"`
		TotalDocuments int    `json:"totalDocuments"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Source != "paper.pdf" {
		t.Errorf("source: got %q", resp.Source)
	}
	if resp.ChunksIndexed == 0 || resp.TotalDocuments != resp.ChunksIndexed {
		t.Errorf("chunks: got %d indexed, %d total", resp.ChunksIndexed, resp.TotalDocuments)
	}
	if len(h.index.docs) != resp.ChunksIndexed {
		t.Errorf("index received %d docs, response says %d", len(h.index.docs), resp.ChunksIndexed)
	}
}

func TestIngestDocument_BlankText_400(t *testing.T) {
	h := newHarness(t, &fakeIndex{}, &fakeReranker{}, &fakeGenerator{})

	rec := doJSON(t, h.router, "POST", "/documents", IngestRequest{Source: "x.pdf", Text: "   "})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
	var errResp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if errResp.Code != CodeValidationFailed {
		t.Errorf("code: got %s, want %s", errResp.Code, CodeValidationFailed)
	}
}

func TestIngestDocument_MalformedBody_400(t *testing.T) {
	h := newHarness(t, &fakeIndex{}, &fakeReranker{}, &fakeGenerator{})

	req := httptest.NewRequest("POST", "/documents", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestIngestDocument_DimMismatch_ReportsIndex(t *testing.T) {
	idx := &fakeIndex{addErr: domain.NewDimMismatch(1, 3, 768)}
	h := newHarness(t, idx, &fakeReranker{}, &fakeGenerator{})

	rec := doJSON(t, h.router, "POST", "/documents", IngestRequest{Source: "x.pdf", Text: "hello world"})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
	var resp struct {
		Code  string `json:"code"`
		Index int    `json:"index"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != CodeDimMismatch {
		t.Errorf("code: got %s, want %s", resp.Code, CodeDimMismatch)
	}
	if resp.Index != 1 {
		t.Errorf("index: got %d, want 1", resp.Index)
	}
}

func TestQuery_FullPipeline(t *testing.T) {
	idx := &fakeIndex{docs: []domain.Document{
		{ID: "a-chunk-0", Content: "alpha"},
		{ID: "b-chunk-0", Content: "beta"},
	}}
	h := newHarness(t, idx, &fakeReranker{}, &fakeGenerator{answer: "alpha wins"})

	rec := doJSON(t, h.router, "POST", "/query", QueryRequest{Question: "which one?"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	var resp domain.Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Answer != "alpha wins" {
		t.Errorf("answer: got %q", resp.Answer)
	}
	if resp.Question != "which one?" {
		t.Errorf("question: got %q", resp.Question)
	}
	if len(resp.Sources) != 2 || resp.Sources[0].ID != "a-chunk-0" {
		t.Errorf("sources: got %v", resp.Sources)
	}
}

func TestQuery_EmptyQuestion_400(t *testing.T) {
	h := newHarness(t, &fakeIndex{}, &fakeReranker{}, &fakeGenerator{})

	rec := doJSON(t, h.router, "POST", "/query", QueryRequest{Question: ""})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestQuery_EmptyIndex_409(t *testing.T) {
	h := newHarness(t, &fakeIndex{}, &fakeReranker{}, &fakeGenerator{})

	rec := doJSON(t, h.router, "POST", "/query", QueryRequest{Question: "anything?"})

	if rec.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want %d (body %s)", rec.Code, http.StatusConflict, rec.Body.String())
	}
	var errResp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if errResp.Code != CodeEmptyIndex {
		t.Errorf("code: got %s, want %s", errResp.Code, CodeEmptyIndex)
	}
}

func TestQuery_UpstreamFailure_502(t *testing.T) {
	idx := &fakeIndex{docs: []domain.Document{{ID: "a-chunk-0", Content: "alpha"}}}
	gen := &fakeGenerator{err: fmt.Errorf("%w: model overloaded", domain.ErrUpstream)}
	h := newHarness(t, idx, &fakeReranker{}, gen)

	rec := doJSON(t, h.router, "POST", "/query", QueryRequest{Question: "q?"})

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusBadGateway)
	}
}

func TestQuery_UnknownError_500_Opaque(t *testing.T) {
	idx := &fakeIndex{docs: []domain.Document{{ID: "a-chunk-0", Content: "alpha"}}}
	gen := &fakeGenerator{err: fmt.Errorf("disk exploded at /var/secret")}
	h := newHarness(t, idx, &fakeReranker{}, gen)

	rec := doJSON(t, h.router, "POST", "/query", QueryRequest{Question: "q?"})

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	if strings.Contains(rec.Body.String(), "/var/secret") {
		t.Error("internal error detail leaked to client")
	}
}

func TestStatus_ReportsDocumentCount(t *testing.T) {
	idx := &fakeIndex{docs: []domain.Document{{ID: "a-chunk-0", Content: "alpha"}}}
	h := newHarness(t, idx, &fakeReranker{}, &fakeGenerator{})

	rec := doJSON(t, h.router, "GET", "/status", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	var resp struct {
		Documents int `json:"documents"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Documents != 1 {
		t.Errorf("documents: got %d, want 1", resp.Documents)
	}
}

func TestReset_ClearsIndex(t *testing.T) {
	idx := &fakeIndex{docs: []domain.Document{{ID: "a-chunk-0", Content: "alpha"}}}
	h := newHarness(t, idx, &fakeReranker{}, &fakeGenerator{})

	rec := doJSON(t, h.router, "DELETE", "/documents", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	if idx.Count() != 0 {
		t.Errorf("index count after reset: got %d, want 0", idx.Count())
	}
}

func TestLoadSnapshot_Corrupt_422(t *testing.T) {
	idx := &fakeIndex{loadErr: fmt.Errorf("%w: document count mismatch", domain.ErrCorruptSnapshot)}
	h := newHarness(t, idx, &fakeReranker{}, &fakeGenerator{})

	rec := doJSON(t, h.router, "POST", "/snapshot/load", nil)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}

func TestSaveSnapshot_OK(t *testing.T) {
	idx := &fakeIndex{docs: []domain.Document{{ID: "a-chunk-0", Content: "alpha"}}}
	h := newHarness(t, idx, &fakeReranker{}, &fakeGenerator{})

	rec := doJSON(t, h.router, "POST", "/snapshot/save", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d (body %s)", rec.Code, rec.Body.String())
	}
}

func TestHealth_NoAuthRequired(t *testing.T) {
	svcIdx := &fakeIndex{}
	svc, err := raguc.New(svcIdx, &fakeReranker{}, &fakeGenerator{}, raguc.Config{TopK: 3, RerankTopK: 2}, zap.NewNop())
	if err != nil {
		t.Fatalf("rag service: %v", err)
	}
	ing := ingestuc.New(svc, chunker.Options{ChunkSize: 1000}, zap.NewNop())
	srv := NewServer(svc, ing, t.TempDir()+"/index", zap.NewNop())
	router := srv.Router([]string{"secret"})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/health", http.NoBody))
	if rec.Code != http.StatusOK {
		t.Errorf("/health without token: got %d, want %d", rec.Code, http.StatusOK)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/status", http.NoBody))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("/status without token: got %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
