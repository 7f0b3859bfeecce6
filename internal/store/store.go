// Package store persists an index together with its per-chunk metadata and
// chunk texts. The three artifacts are only meaningful as a matched set:
// backends save them as one unit and refuse to load a set whose parts
// disagree.
package store

import (
	"context"
	"fmt"

	"ragindex/internal/domain"
)

// Snapshot is everything needed to serve searches without re-embedding the
// corpus. Vectors are already L2-normalised.
type Snapshot struct {
	BuildID   string
	ModelInfo string
	Dimension int
	Vectors   [][]float32
	Metadata  []domain.ChunkMeta
	Texts     []string
}

// Store persists and restores snapshots.
type Store interface {
	// Save writes the three artifacts as one set.
	Save(ctx context.Context, snap *Snapshot) error
	// Load returns the stored set or an error wrapping domain.ErrPersistence.
	// It never returns a partially loaded snapshot.
	Load(ctx context.Context) (*Snapshot, error)
	// Exists reports whether anything has been stored at the location.
	Exists() bool
	Close() error
}

// Validate checks that the artifacts of a snapshot agree with each other.
// Failures wrap domain.ErrPersistence.
func (s *Snapshot) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil snapshot", domain.ErrPersistence)
	}
	n := len(s.Vectors)
	if n == 0 {
		return fmt.Errorf("%w: snapshot holds no vectors", domain.ErrPersistence)
	}
	if len(s.Metadata) != n || len(s.Texts) != n {
		return fmt.Errorf("%w: artifact lengths differ: %d vectors, %d metadata, %d texts",
			domain.ErrPersistence, n, len(s.Metadata), len(s.Texts))
	}
	if s.Dimension <= 0 {
		return fmt.Errorf("%w: invalid dimension %d", domain.ErrPersistence, s.Dimension)
	}
	for i, v := range s.Vectors {
		if len(v) != s.Dimension {
			return fmt.Errorf("%w: vector %d has dimension %d, want %d", domain.ErrPersistence, i, len(v), s.Dimension)
		}
	}
	if err := domain.ValidateMetadata(s.Metadata); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return nil
}
