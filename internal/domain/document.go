package domain

import (
	"fmt"
	"time"
)

// Well-known metadata keys. Producers and consumers agree on these;
// unknown extra keys are carried through untouched.
const (
	MetaSource       = "source"
	MetaPages        = "pages"
	MetaChunkIndex   = "chunkIndex"
	MetaTotalChunks  = "totalChunks"
	MetaTitle        = "title"
	MetaCreator      = "creator"
	MetaProducer     = "producer"
	MetaCreationDate = "creationDate"
)

// Metadata is an open string-keyed mapping of scalar or nested values
// attached to a document at creation time.
type Metadata map[string]any

// Clone returns a shallow copy. Nested maps are copied one level deep,
// which covers every shape the ingestion path produces.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			inner := make(map[string]any, len(nested))
			for nk, nv := range nested {
				inner[nk] = nv
			}
			out[k] = inner
			continue
		}
		out[k] = v
	}
	return out
}

// Document is an indexed unit of retrievable text. Immutable once created.
type Document struct {
	ID       string   `json:"id"`
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata,omitempty"`
}

// NewDocument validates and creates a Document.
func NewDocument(id, content string, meta Metadata) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("%w: document ID is required", ErrInvalidInput)
	}
	if content == "" {
		return Document{}, fmt.Errorf("%w: document content is required", ErrInvalidInput)
	}
	return Document{ID: id, Content: content, Metadata: meta.Clone()}, nil
}

// ChunkID builds the conventional document ID for the nth chunk of a source.
func ChunkID(source string, ordinal int) string {
	return fmt.Sprintf("%s-chunk-%d", source, ordinal)
}

// Candidate pairs a document with a stage-specific score.
// Index stage scores are L2 distances (lower is better); rerank stage
// scores are cosine similarities (higher is better).
type Candidate struct {
	Document Document
	Score    float64
}

// Response is the answer to one question, produced once per query.
type Response struct {
	Question  string     `json:"question"`
	Answer    string     `json:"answer"`
	Sources   []Document `json:"sources"`
	Timestamp time.Time  `json:"timestamp"`
}
