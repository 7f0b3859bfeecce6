// Package sqlite stores a snapshot in a single SQLite database. The vectors,
// chunk metadata and chunk texts live in separate tables and are replaced in
// one transaction, so a failed save leaves the previous set intact.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"ragindex/internal/domain"
	"ragindex/internal/store"
)

// FileName is the database file created inside the store directory.
const FileName = "index.db"

type buildRow struct {
	BuildID    string `db:"build_id"`
	ModelInfo  string `db:"model_info"`
	Dimension  int    `db:"dimension"`
	ChunkCount int    `db:"chunk_count"`
}

type vectorRow struct {
	Ordinal int    `db:"ordinal"`
	BuildID string `db:"build_id"`
	Vector  []byte `db:"vector"`
}

type metadataRow struct {
	Ordinal     int    `db:"ordinal"`
	BuildID     string `db:"build_id"`
	Document    string `db:"document"`
	ChunkIndex  int    `db:"chunk_index"`
	TotalChunks int    `db:"total_chunks"`
}

type textRow struct {
	Ordinal int    `db:"ordinal"`
	BuildID string `db:"build_id"`
	Text    []byte `db:"text"`
}

// Store persists snapshots in dir/index.db.
type Store struct {
	db     *sqlx.DB
	path   string
	logger *slog.Logger
}

// New opens (creating if needed) the database under dir and initialises the schema.
func New(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create %s: %v", domain.ErrPersistence, dir, err)
	}
	path := filepath.Join(dir, FileName)
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", domain.ErrPersistence, path, err)
	}
	// one writer; avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)
	s := &Store{db: db, path: path, logger: logger}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: init schema: %v", domain.ErrPersistence, err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

func (s *Store) initSchema() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS build (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			build_id TEXT NOT NULL,
			model_info TEXT NOT NULL,
			dimension INTEGER NOT NULL,
			chunk_count INTEGER NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS vectors (
			ordinal INTEGER PRIMARY KEY,
			build_id TEXT NOT NULL,
			vector BLOB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chunk_metadata (
			ordinal INTEGER PRIMARY KEY,
			build_id TEXT NOT NULL,
			document TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			total_chunks INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chunk_texts (
			ordinal INTEGER PRIMARY KEY,
			build_id TEXT NOT NULL,
			text BLOB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chunk_metadata_document ON chunk_metadata(document)`,
	}
	for _, q := range tables {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to execute query: %s, error: %w", q, err)
		}
	}
	return nil
}

// Exists reports whether a build has been saved.
func (s *Store) Exists() bool {
	var n int
	if err := s.db.Get(&n, `SELECT COUNT(*) FROM build`); err != nil {
		return false
	}
	return n > 0
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Save replaces the stored set with snap in a single transaction.
func (s *Store) Save(ctx context.Context, snap *store.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	if err := s.save(ctx, snap); err != nil {
		return fmt.Errorf("%w: save: %v", domain.ErrPersistence, err)
	}
	s.logger.Info("index saved", "db", s.path, "chunks", len(snap.Texts), "build_id", snap.BuildID)
	return nil
}

func (s *Store) save(ctx context.Context, snap *store.Snapshot) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"build", "vectors", "chunk_metadata", "chunk_texts"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	if _, err := tx.NamedExecContext(ctx,
		`INSERT INTO build (id, build_id, model_info, dimension, chunk_count)
		 VALUES (1, :build_id, :model_info, :dimension, :chunk_count)`,
		buildRow{BuildID: snap.BuildID, ModelInfo: snap.ModelInfo, Dimension: snap.Dimension, ChunkCount: len(snap.Texts)},
	); err != nil {
		return fmt.Errorf("insert build: %w", err)
	}

	vecStmt, err := tx.PreparexContext(ctx, `INSERT INTO vectors (ordinal, build_id, vector) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare vectors: %w", err)
	}
	defer vecStmt.Close()
	metaStmt, err := tx.PreparexContext(ctx,
		`INSERT INTO chunk_metadata (ordinal, build_id, document, chunk_index, total_chunks) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare metadata: %w", err)
	}
	defer metaStmt.Close()
	textStmt, err := tx.PreparexContext(ctx, `INSERT INTO chunk_texts (ordinal, build_id, text) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare texts: %w", err)
	}
	defer textStmt.Close()

	for i := range snap.Vectors {
		if _, err := vecStmt.ExecContext(ctx, i, snap.BuildID, encodeVector(snap.Vectors[i])); err != nil {
			return fmt.Errorf("insert vector %d: %w", i, err)
		}
		m := snap.Metadata[i]
		if _, err := metaStmt.ExecContext(ctx, i, snap.BuildID, m.Document, m.ChunkIndex, m.TotalChunks); err != nil {
			return fmt.Errorf("insert metadata %d: %w", i, err)
		}
		if _, err := textStmt.ExecContext(ctx, i, snap.BuildID, []byte(snap.Texts[i])); err != nil {
			return fmt.Errorf("insert text %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Load reads the stored set. Rows from another build, gaps in ordinals or
// differing row counts are reported as domain.ErrPersistence.
func (s *Store) Load(ctx context.Context) (*store.Snapshot, error) {
	var b buildRow
	err := s.db.GetContext(ctx, &b, `SELECT build_id, model_info, dimension, chunk_count FROM build WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no saved build in %s", domain.ErrPersistence, s.path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read build: %v", domain.ErrPersistence, err)
	}

	var vecRows []vectorRow
	if err := s.db.SelectContext(ctx, &vecRows, `SELECT ordinal, build_id, vector FROM vectors ORDER BY ordinal`); err != nil {
		return nil, fmt.Errorf("%w: read vectors: %v", domain.ErrPersistence, err)
	}
	var metaRows []metadataRow
	if err := s.db.SelectContext(ctx, &metaRows,
		`SELECT ordinal, build_id, document, chunk_index, total_chunks FROM chunk_metadata ORDER BY ordinal`); err != nil {
		return nil, fmt.Errorf("%w: read metadata: %v", domain.ErrPersistence, err)
	}
	var textRows []textRow
	if err := s.db.SelectContext(ctx, &textRows, `SELECT ordinal, build_id, text FROM chunk_texts ORDER BY ordinal`); err != nil {
		return nil, fmt.Errorf("%w: read texts: %v", domain.ErrPersistence, err)
	}
	if len(vecRows) != b.ChunkCount || len(metaRows) != b.ChunkCount || len(textRows) != b.ChunkCount {
		return nil, fmt.Errorf("%w: artifact lengths differ: build says %d, %d vectors, %d metadata, %d texts",
			domain.ErrPersistence, b.ChunkCount, len(vecRows), len(metaRows), len(textRows))
	}

	snap := &store.Snapshot{
		BuildID:   b.BuildID,
		ModelInfo: b.ModelInfo,
		Dimension: b.Dimension,
		Vectors:   make([][]float32, b.ChunkCount),
		Metadata:  make([]domain.ChunkMeta, b.ChunkCount),
		Texts:     make([]string, b.ChunkCount),
	}
	for i := 0; i < b.ChunkCount; i++ {
		v, m, t := vecRows[i], metaRows[i], textRows[i]
		if v.Ordinal != i || m.Ordinal != i || t.Ordinal != i {
			return nil, fmt.Errorf("%w: row %d missing", domain.ErrPersistence, i)
		}
		if v.BuildID != b.BuildID || m.BuildID != b.BuildID || t.BuildID != b.BuildID {
			return nil, fmt.Errorf("%w: row %d belongs to a different build", domain.ErrPersistence, i)
		}
		vec, err := decodeVector(v.Vector)
		if err != nil {
			return nil, fmt.Errorf("%w: vector %d: %v", domain.ErrPersistence, i, err)
		}
		snap.Vectors[i] = vec
		snap.Metadata[i] = domain.ChunkMeta{Document: m.Document, ChunkIndex: m.ChunkIndex, TotalChunks: m.TotalChunks}
		snap.Texts[i] = string(t.Text)
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	s.logger.Info("index loaded", "db", s.path, "chunks", len(snap.Texts), "build_id", snap.BuildID)
	return snap, nil
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("blob length %d is not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}
