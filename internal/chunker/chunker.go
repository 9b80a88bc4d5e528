// Package chunker splits raw document text into segments suitable for
// independent embedding and retrieval.
package chunker

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/askdoc-io/askdoc/internal/domain"
)

var (
	sentenceRe  = regexp.MustCompile(`[^.!?]+[.!?]+(?:\s+|$)`)
	paragraphRe = regexp.MustCompile(`\n\s*\n`)
)

// Chunk is one text segment with its stamped metadata.
type Chunk struct {
	Text     string
	Metadata domain.Metadata
}

// Options controls chunk sizing. Overlap applies to the fixed strategy only;
// the sentence and paragraph strategies accept it for interface symmetry but
// never duplicate text across chunk boundaries.
type Options struct {
	ChunkSize int
	Overlap   int
}

// DefaultOptions are the sizes used by ingestion.
func DefaultOptions() Options {
	return Options{ChunkSize: 1000, Overlap: 200}
}

func (o Options) validate() error {
	if o.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidInput, o.ChunkSize)
	}
	if o.Overlap < 0 {
		return fmt.Errorf("%w: overlap must be non-negative, got %d", domain.ErrInvalidInput, o.Overlap)
	}
	if o.Overlap >= o.ChunkSize {
		return fmt.Errorf("%w: overlap %d must be smaller than chunk size %d",
			domain.ErrInvalidInput, o.Overlap, o.ChunkSize)
	}
	return nil
}

// SplitFixed splits text with a sliding window of chunkSize characters
// advancing by chunkSize-overlap each step.
func SplitFixed(text string, opts Options) ([]string, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, nil
	}

	// Window over runes, not bytes, so a multi-byte character is never cut
	// in half at a chunk boundary.
	runes := []rune(text)
	if len(runes) <= opts.ChunkSize {
		return []string{text}, nil
	}

	step := opts.ChunkSize - opts.Overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + opts.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks, nil
}

// SplitBySentences greedily accumulates whole sentences into chunks of at
// most chunkSize characters. Sentences longer than chunkSize become their
// own chunk.
func SplitBySentences(text string, opts Options) ([]string, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	var sentences []string
	last := 0
	for _, m := range sentenceRe.FindAllStringIndex(text, -1) {
		sentences = append(sentences, strings.TrimSpace(text[m[0]:m[1]]))
		last = m[1]
	}
	// Text past the final terminator is still a sentence.
	if rest := strings.TrimSpace(text[last:]); rest != "" {
		sentences = append(sentences, rest)
	}
	if len(sentences) == 0 {
		return nil, nil
	}
	return accumulate(sentences, opts.ChunkSize, " "), nil
}

// SplitByParagraphs greedily accumulates whole paragraphs (blank-line
// delimited) into chunks of at most chunkSize characters.
func SplitByParagraphs(text string, opts Options) ([]string, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	var paragraphs []string
	for _, p := range paragraphRe.Split(text, -1) {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}
	if len(paragraphs) == 0 {
		return nil, nil
	}
	return accumulate(paragraphs, opts.ChunkSize, "\n\n"), nil
}

// accumulate packs units into chunks, flushing whenever appending the next
// unit would exceed the size limit. The final non-empty buffer is flushed.
func accumulate(units []string, chunkSize int, sep string) []string {
	var chunks []string
	var buf strings.Builder
	for _, unit := range units {
		if buf.Len() > 0 && buf.Len()+len(sep)+len(unit) > chunkSize {
			chunks = append(chunks, buf.String())
			buf.Reset()
		}
		if buf.Len() > 0 {
			buf.WriteString(sep)
		}
		buf.WriteString(unit)
	}
	if buf.Len() > 0 {
		chunks = append(chunks, buf.String())
	}
	return chunks
}

// WithMetadata runs the paragraph strategy and stamps every chunk with the
// base metadata plus its ordinal and the total chunk count.
func WithMetadata(text string, base domain.Metadata, opts Options) ([]Chunk, error) {
	texts, err := SplitByParagraphs(text, opts)
	if err != nil {
		return nil, err
	}

	chunks := make([]Chunk, len(texts))
	for i, t := range texts {
		meta := base.Clone()
		if meta == nil {
			meta = domain.Metadata{}
		}
		meta[domain.MetaChunkIndex] = i
		meta[domain.MetaTotalChunks] = len(texts)
		chunks[i] = Chunk{Text: t, Metadata: meta}
	}
	return chunks, nil
}
