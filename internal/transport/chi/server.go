// Package chi is the HTTP transport for the retrieval service.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/askdoc-io/askdoc/internal/domain"
	"github.com/askdoc-io/askdoc/internal/metrics"
	ingestuc "github.com/askdoc-io/askdoc/internal/usecase/ingest"
	raguc "github.com/askdoc-io/askdoc/internal/usecase/rag"
	"github.com/askdoc-io/askdoc/internal/version"
)

// Error codes in API responses.
const (
	CodeBadRequest       = "bad_request"
	CodeValidationFailed = "validation_failed"
	CodeEmptyIndex       = "empty_index"
	CodeNoResults        = "no_results"
	CodeDimMismatch      = "vector_dim_mismatch"
	CodeUpstreamError    = "upstream_error"
	CodeSnapshotError    = "snapshot_error"
	CodeInternalError    = "internal_error"
)

// ErrorResponse is the API error envelope.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server hosts the upload/query/status/reset/persist/restore endpoints.
type Server struct {
	rag           *raguc.Service
	ingest        *ingestuc.Service
	snapshotPfx   string
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates the HTTP API server.
func NewServer(rag *raguc.Service, ingest *ingestuc.Service, snapshotPrefix string, logger *zap.Logger) *Server {
	s := &Server{
		rag:         rag,
		ingest:      ingest,
		snapshotPfx: snapshotPrefix,
		logger:      logger,
	}
	s.errorHandlers = []errorHandler{
		dimMismatchHandler,
		sentinelHandler(domain.ErrEmptyStore, http.StatusConflict, CodeEmptyIndex),
		sentinelHandler(domain.ErrNoResults, http.StatusNotFound, CodeNoResults),
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrUpstream, http.StatusBadGateway, CodeUpstreamError),
		sentinelHandler(domain.ErrCorruptSnapshot, http.StatusUnprocessableEntity, CodeSnapshotError),
	}
	return s
}

// Router assembles the chi router with middleware and routes.
func (s *Server) Router(apiKeys []string) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.Recoverer)
	r.Use(RequestLogger(s.logger))
	r.Use(metrics.Middleware())
	r.Use(BearerAuthMiddleware(apiKeys))

	r.Get("/health", s.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Post("/documents", s.IngestDocument)
	r.Delete("/documents", s.Reset)
	r.Post("/query", s.Query)
	r.Get("/status", s.Status)
	r.Post("/snapshot/save", s.SaveSnapshot)
	r.Post("/snapshot/load", s.LoadSnapshot)

	return r
}

// IngestRequest carries one extracted file from the PDF-extraction collaborator.
type IngestRequest struct {
	Source    string          `json:"source"`
	Text      string          `json:"text"`
	PageCount int             `json:"pageCount"`
	Metadata  domain.Metadata `json:"metadata,omitempty"`
}

// IngestDocument handles POST /documents.
func (s *Server) IngestDocument(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	n, err := s.ingest.Ingest(r.Context(), ingestuc.ExtractedFile{
		Source:    req.Source,
		Text:      req.Text,
		PageCount: req.PageCount,
		Metadata:  req.Metadata,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	metrics.IndexedDocuments.Set(float64(s.rag.DocumentCount()))
	writeJSON(w, http.StatusCreated, map[string]any{
		"source":         req.Source,
		"chunksIndexed":  n,
		"totalDocuments": s.rag.DocumentCount(),
	})
}

// QueryRequest is the question envelope.
type QueryRequest struct {
	Question string `json:"question"`
}

// Query handles POST /query.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "Question is required")
		return
	}

	resp, err := s.rag.Query(r.Context(), req.Question)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Status handles GET /status.
func (s *Server) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": s.rag.DocumentCount(),
		"version":   version.Version,
	})
}

// Reset handles DELETE /documents.
func (s *Server) Reset(w http.ResponseWriter, r *http.Request) {
	s.rag.Clear()
	metrics.IndexedDocuments.Set(0)
	writeJSON(w, http.StatusOK, map[string]any{"documents": 0})
}

// SaveSnapshot handles POST /snapshot/save.
func (s *Server) SaveSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := s.rag.SaveIndex(s.snapshotPfx); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"prefix":    s.snapshotPfx,
		"documents": s.rag.DocumentCount(),
	})
}

// LoadSnapshot handles POST /snapshot/load.
func (s *Server) LoadSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := s.rag.LoadIndex(s.snapshotPfx); err != nil {
		s.handleDomainError(w, err)
		return
	}
	metrics.IndexedDocuments.Set(float64(s.rag.DocumentCount()))
	writeJSON(w, http.StatusOK, map[string]any{
		"prefix":    s.snapshotPfx,
		"documents": s.rag.DocumentCount(),
	})
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "version": version.Version})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidInput,
		domain.ErrVectorDimMismatch,
		domain.ErrEmptyStore,
		domain.ErrNoResults,
		domain.ErrUpstream,
		domain.ErrCorruptSnapshot,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// dimMismatchHandler handles ErrVectorDimMismatch with the offending position.
func dimMismatchHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		return false
	}
	var dme *domain.DimMismatchError
	if errors.As(err, &dme) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"code":    CodeDimMismatch,
			"message": msg,
			"index":   dme.Index,
		})
		return true
	}
	writeError(w, http.StatusBadRequest, CodeDimMismatch, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
