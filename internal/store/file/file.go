// Package file stores a snapshot as three co-located files in one directory:
// index.gob (normalised vectors), metadata.json (ordered per-chunk metadata)
// and chunks.gob (ordered chunk texts, byte exact).
//
// Save writes chunks, then metadata, then the index, each through a temp file
// renamed into place. A failure part way leaves the directory holding
// artifacts from two different builds. Every artifact carries the build ID,
// so Load detects such a mixed set and refuses it; nothing is repaired
// automatically and callers are expected to rebuild.
package file

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"ragindex/internal/domain"
	"ragindex/internal/store"
)

const (
	IndexFile    = "index.gob"
	MetadataFile = "metadata.json"
	ChunksFile   = "chunks.gob"
)

type indexArtifact struct {
	BuildID   string
	ModelInfo string
	Dimension int
	Vectors   [][]float32
}

type metadataArtifact struct {
	BuildID string             `json:"build_id"`
	Entries []domain.ChunkMeta `json:"entries"`
}

type chunksArtifact struct {
	BuildID string
	Texts   []string
}

// Store persists snapshots under dir.
type Store struct {
	dir    string
	logger *slog.Logger
}

func New(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{dir: dir, logger: logger}
}

// Dir returns the storage directory.
func (s *Store) Dir() string { return s.dir }

// Exists reports whether any artifact is present.
func (s *Store) Exists() bool {
	for _, name := range []string{IndexFile, MetadataFile, ChunksFile} {
		if _, err := os.Stat(filepath.Join(s.dir, name)); err == nil {
			return true
		}
	}
	return false
}

func (s *Store) Close() error { return nil }

// Save writes the snapshot. The snapshot is validated first so an
// inconsistent set is never written.
func (s *Store) Save(ctx context.Context, snap *store.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %v", domain.ErrPersistence, s.dir, err)
	}
	steps := []struct {
		name  string
		write func(w io.Writer) error
	}{
		{ChunksFile, func(w io.Writer) error {
			return gob.NewEncoder(w).Encode(chunksArtifact{BuildID: snap.BuildID, Texts: snap.Texts})
		}},
		{MetadataFile, func(w io.Writer) error {
			enc := json.NewEncoder(w)
			enc.SetEscapeHTML(false)
			enc.SetIndent("", "  ")
			return enc.Encode(metadataArtifact{BuildID: snap.BuildID, Entries: snap.Metadata})
		}},
		{IndexFile, func(w io.Writer) error {
			return gob.NewEncoder(w).Encode(indexArtifact{
				BuildID:   snap.BuildID,
				ModelInfo: snap.ModelInfo,
				Dimension: snap.Dimension,
				Vectors:   snap.Vectors,
			})
		}},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeAtomic(filepath.Join(s.dir, step.name), step.write); err != nil {
			return fmt.Errorf("%w: write %s: %v", domain.ErrPersistence, step.name, err)
		}
	}
	s.logger.Info("index saved", "dir", s.dir, "chunks", len(snap.Texts), "build_id", snap.BuildID)
	return nil
}

// Load reads all three artifacts and returns them only if they belong to
// the same build and agree in length.
func (s *Store) Load(ctx context.Context) (*store.Snapshot, error) {
	for _, name := range []string{IndexFile, MetadataFile, ChunksFile} {
		if _, err := os.Stat(filepath.Join(s.dir, name)); err != nil {
			return nil, fmt.Errorf("%w: missing artifact %s in %s", domain.ErrPersistence, name, s.dir)
		}
	}

	var idx indexArtifact
	if err := readFile(filepath.Join(s.dir, IndexFile), func(r io.Reader) error {
		return gob.NewDecoder(r).Decode(&idx)
	}); err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrPersistence, IndexFile, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var meta metadataArtifact
	if err := readFile(filepath.Join(s.dir, MetadataFile), func(r io.Reader) error {
		return json.NewDecoder(r).Decode(&meta)
	}); err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrPersistence, MetadataFile, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var chunks chunksArtifact
	if err := readFile(filepath.Join(s.dir, ChunksFile), func(r io.Reader) error {
		return gob.NewDecoder(r).Decode(&chunks)
	}); err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrPersistence, ChunksFile, err)
	}

	if idx.BuildID != meta.BuildID || idx.BuildID != chunks.BuildID {
		return nil, fmt.Errorf("%w: artifacts belong to different builds (index %q, metadata %q, chunks %q)",
			domain.ErrPersistence, idx.BuildID, meta.BuildID, chunks.BuildID)
	}
	snap := &store.Snapshot{
		BuildID:   idx.BuildID,
		ModelInfo: idx.ModelInfo,
		Dimension: idx.Dimension,
		Vectors:   idx.Vectors,
		Metadata:  meta.Entries,
		Texts:     chunks.Texts,
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	s.logger.Info("index loaded", "dir", s.dir, "chunks", len(snap.Texts), "build_id", snap.BuildID)
	return snap, nil
}

func writeAtomic(path string, write func(w io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	// Atomic rename
	return os.Rename(tmpName, path)
}

func readFile(path string, read func(r io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := read(f); err != nil {
		if errors.Is(err, io.EOF) {
			return io.ErrUnexpectedEOF
		}
		return err
	}
	return nil
}
