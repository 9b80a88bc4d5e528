package ingest

import (
	"context"

	"github.com/askdoc-io/askdoc/internal/domain"
)

// Indexer receives the chunked documents. Satisfied by the rag orchestrator.
type Indexer interface {
	Index(ctx context.Context, docs []domain.Document) error
}
