package askdoc

import "time"

// IngestRequest carries one extracted file to be chunked and indexed.
type IngestRequest struct {
	Source    string         `json:"source"`
	Text      string         `json:"text"`
	PageCount int            `json:"pageCount,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// IngestResult reports what indexing one file produced.
type IngestResult struct {
	Source         string `json:"source"`
	ChunksIndexed  int    `json:"chunksIndexed"`
	TotalDocuments int    `json:"totalDocuments"`
}

// SourceDocument is a chunk the answer was grounded on.
type SourceDocument struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// QueryResponse is the answer to one question.
type QueryResponse struct {
	Question  string           `json:"question"`
	Answer    string           `json:"answer"`
	Sources   []SourceDocument `json:"sources"`
	Timestamp time.Time        `json:"timestamp"`
}

// Status is the service state summary.
type Status struct {
	Documents int    `json:"documents"`
	Version   string `json:"version"`
}

// SnapshotResult reports a persisted or restored index.
type SnapshotResult struct {
	Prefix    string `json:"prefix"`
	Documents int    `json:"documents"`
}
