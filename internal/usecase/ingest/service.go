// Package ingest turns extracted file text into chunked, metadata-stamped
// documents and hands them to the indexer.
package ingest

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/askdoc-io/askdoc/internal/chunker"
	"github.com/askdoc-io/askdoc/internal/domain"
)

// ExtractedFile is the PDF-extraction collaborator's output tuple.
// Byte parsing and OCR happen outside this service.
type ExtractedFile struct {
	Source    string
	Text      string
	PageCount int
	Metadata  domain.Metadata
}

// Service chunks extracted files and indexes the result.
type Service struct {
	indexer Indexer
	opts    chunker.Options
	logger  *zap.Logger
}

// New creates an ingestion service.
func New(indexer Indexer, opts chunker.Options, logger *zap.Logger) *Service {
	return &Service{indexer: indexer, opts: opts, logger: logger}
}

// Ingest chunks one extracted file and adds the documents to the index.
// Returns the number of documents produced.
func (s *Service) Ingest(ctx context.Context, file ExtractedFile) (int, error) {
	if file.Source == "" {
		return 0, fmt.Errorf("%w: source filename is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(file.Text) == "" {
		return 0, fmt.Errorf("%w: extracted text is empty", domain.ErrInvalidInput)
	}

	base := file.Metadata.Clone()
	if base == nil {
		base = domain.Metadata{}
	}
	base[domain.MetaSource] = file.Source
	if file.PageCount > 0 {
		base[domain.MetaPages] = file.PageCount
	}

	chunks, err := chunker.WithMetadata(file.Text, base, s.opts)
	if err != nil {
		return 0, fmt.Errorf("chunk %s: %w", file.Source, err)
	}
	if len(chunks) == 0 {
		return 0, fmt.Errorf("%w: no chunks produced from %s", domain.ErrInvalidInput, file.Source)
	}

	docs := make([]domain.Document, len(chunks))
	for i, c := range chunks {
		doc, err := domain.NewDocument(domain.ChunkID(file.Source, i), c.Text, c.Metadata)
		if err != nil {
			return 0, fmt.Errorf("chunk %d of %s: %w", i, file.Source, err)
		}
		docs[i] = doc
	}

	if err := s.indexer.Index(ctx, docs); err != nil {
		return 0, fmt.Errorf("index %s: %w", file.Source, err)
	}

	s.logger.Info("File ingested",
		zap.String("source", file.Source),
		zap.Int("pages", file.PageCount),
		zap.Int("chunks", len(docs)),
	)
	return len(docs), nil
}
