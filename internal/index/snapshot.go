package index

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/askdoc-io/askdoc/internal/domain"
)

// Snapshot artifact suffixes. Both files share one path prefix and are only
// meaningful together: Load requires both present and count-consistent.
const (
	vectorsSuffix = ".vectors"
	docsSuffix    = ".docs.json"
)

// vectorArtifact is the opaque gob-encoded index structure.
type vectorArtifact struct {
	Dimension int
	Vectors   [][]float32
}

// Save persists the index as two coupled artifacts under the path prefix.
func (s *Store) Save(prefix string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vf, err := os.Create(prefix + vectorsSuffix)
	if err != nil {
		return fmt.Errorf("create vectors artifact: %w", err)
	}
	defer vf.Close()

	artifact := vectorArtifact{Dimension: s.embed.Dimension(), Vectors: s.vectors}
	if err := gob.NewEncoder(vf).Encode(artifact); err != nil {
		return fmt.Errorf("encode vectors artifact: %w", err)
	}
	if err := vf.Close(); err != nil {
		return fmt.Errorf("close vectors artifact: %w", err)
	}

	data, err := json.MarshalIndent(s.docs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode documents artifact: %w", err)
	}
	if err := os.WriteFile(prefix+docsSuffix, data, 0o644); err != nil {
		return fmt.Errorf("write documents artifact: %w", err)
	}

	s.logger.Info("Index snapshot saved",
		zap.String("prefix", prefix),
		zap.Int("documents", len(s.docs)),
	)
	return nil
}

// Load replaces the store's state from a snapshot. On any failure the
// in-memory state is left untouched.
func (s *Store) Load(prefix string) error {
	vf, err := os.Open(prefix + vectorsSuffix)
	if err != nil {
		return fmt.Errorf("open vectors artifact: %w", err)
	}
	defer vf.Close()

	var artifact vectorArtifact
	if err := gob.NewDecoder(vf).Decode(&artifact); err != nil {
		return fmt.Errorf("%w: decode vectors artifact: %w", domain.ErrCorruptSnapshot, err)
	}

	data, err := os.ReadFile(prefix + docsSuffix)
	if err != nil {
		return fmt.Errorf("read documents artifact: %w", err)
	}
	var docs []domain.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return fmt.Errorf("%w: decode documents artifact: %w", domain.ErrCorruptSnapshot, err)
	}

	if len(docs) != len(artifact.Vectors) {
		return fmt.Errorf("%w: %d documents vs %d vectors",
			domain.ErrCorruptSnapshot, len(docs), len(artifact.Vectors))
	}
	want := s.embed.Dimension()
	if artifact.Dimension != want {
		return fmt.Errorf("%w: snapshot dimension %d, embedder dimension %d",
			domain.ErrCorruptSnapshot, artifact.Dimension, want)
	}
	for i, vec := range artifact.Vectors {
		if len(vec) != artifact.Dimension {
			return fmt.Errorf("%w: vector %d has dimension %d, want %d",
				domain.ErrCorruptSnapshot, i, len(vec), artifact.Dimension)
		}
	}

	s.mu.Lock()
	s.vectors = artifact.Vectors
	s.docs = docs
	s.mu.Unlock()

	s.logger.Info("Index snapshot loaded",
		zap.String("prefix", prefix),
		zap.Int("documents", len(docs)),
	)
	return nil
}
