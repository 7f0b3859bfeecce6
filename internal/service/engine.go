// Package service wires chunking, embedding, the flat index and persistence
// into an Engine that answers retrieval queries.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"ragindex/internal/domain"
	"ragindex/internal/embedding"
	"ragindex/internal/generator"
	"ragindex/internal/index"
	"ragindex/internal/store"
)

// DefaultOverfetch multiplies top_k for the global search behind
// SearchByDocument. A document with few strong matches can yield fewer than
// top_k results even when it has more chunks.
const DefaultOverfetch = 3

// Options configures an Engine. Chunker and Embedder are required.
type Options struct {
	Chunker      domain.Chunker
	Embedder     embedding.Embedder
	Store        store.Store
	Logger       *slog.Logger
	BatchSize    int
	Overfetch    int
	Context      ContextFormat
	Summarizer   domain.Summarizer
	Generator    generator.Generator
	SystemPrompt string
}

// corpus is one immutable build: the index plus the ordered metadata and
// texts its ordinals refer to.
type corpus struct {
	buildID   string
	modelInfo string
	index     *index.Flat
	meta      []domain.ChunkMeta
	texts     []string
}

// Engine owns the current corpus. Searches read an immutable snapshot and
// never wait for a build; builds and loads are serialised and publish the new
// corpus atomically.
type Engine struct {
	chunker      domain.Chunker
	embedder     embedding.Embedder
	store        store.Store
	logger       *slog.Logger
	batchSize    int
	overfetch    int
	format       ContextFormat
	summarizer   domain.Summarizer
	generator    generator.Generator
	systemPrompt string

	buildMu sync.Mutex
	current atomic.Pointer[corpus]
}

// New creates an Engine in the not-ready state.
func New(opts Options) (*Engine, error) {
	if opts.Chunker == nil {
		return nil, fmt.Errorf("%w: chunker is required", domain.ErrConfiguration)
	}
	if opts.Embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", domain.ErrConfiguration)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = embedding.DefaultBatchSize
	}
	if opts.Overfetch <= 0 {
		opts.Overfetch = DefaultOverfetch
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = generator.DefaultSystemPrompt
	}
	return &Engine{
		chunker:      opts.Chunker,
		embedder:     opts.Embedder,
		store:        opts.Store,
		logger:       opts.Logger,
		batchSize:    opts.BatchSize,
		overfetch:    opts.Overfetch,
		format:       opts.Context.withDefaults(),
		summarizer:   opts.Summarizer,
		generator:    opts.Generator,
		systemPrompt: opts.SystemPrompt,
	}, nil
}

// Ready reports whether a corpus has been built or loaded.
func (e *Engine) Ready() bool { return e.current.Load() != nil }

// BuildDocuments chunks every document and builds the index from the result.
// Documents that produce no chunks, and documents whose name was already
// taken by an earlier one, are skipped with a warning.
func (e *Engine) BuildDocuments(ctx context.Context, docs []domain.Document) error {
	var chunks []domain.Chunk
	seen := make(map[string]string, len(docs))
	for _, d := range docs {
		if first, dup := seen[d.Name]; dup {
			e.logger.Warn("duplicate document name, skipping", "document", d.Name, "path", d.Path, "kept", first)
			continue
		}
		seen[d.Name] = d.Path
		dc := e.chunker.Chunk(d)
		if len(dc) == 0 {
			e.logger.Warn("document produced no chunks", "document", d.Name)
			continue
		}
		e.logger.Debug("document chunked", "document", d.Name, "chunks", len(dc))
		chunks = append(chunks, dc...)
	}
	return e.Build(ctx, chunks)
}

// Build embeds all chunks and replaces the current corpus. On any error the
// previous corpus, if any, stays in place.
func (e *Engine) Build(ctx context.Context, chunks []domain.Chunk) error {
	e.buildMu.Lock()
	defer e.buildMu.Unlock()

	if len(chunks) == 0 {
		e.logger.Error("build aborted", "err", domain.ErrEmptyCorpus)
		return fmt.Errorf("%w: no chunks to index", domain.ErrEmptyCorpus)
	}
	start := time.Now()
	texts := make([]string, len(chunks))
	meta := make([]domain.ChunkMeta, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
		meta[i] = c.Meta()
	}
	if err := domain.ValidateMetadata(meta); err != nil {
		e.logger.Error("build aborted", "err", err)
		return fmt.Errorf("build: %w", err)
	}
	vectors, err := embedding.EmbedAll(ctx, e.embedder, texts, e.batchSize)
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}
	flat := index.NewFlat()
	if err := flat.Build(vectors); err != nil {
		return fmt.Errorf("build: %w", err)
	}
	c := &corpus{
		buildID:   uuid.NewString(),
		modelInfo: e.embedder.ModelInfo(),
		index:     flat,
		meta:      meta,
		texts:     texts,
	}
	e.current.Store(c)
	e.logger.Info("index built",
		"chunks", len(texts),
		"dimension", flat.Dimension(),
		"model", c.modelInfo,
		"build_id", c.buildID,
		"took", time.Since(start).Round(time.Millisecond))
	return nil
}

// Save persists the current corpus as one artifact set.
func (e *Engine) Save(ctx context.Context) error {
	if e.store == nil {
		return fmt.Errorf("%w: no store configured", domain.ErrConfiguration)
	}
	c := e.current.Load()
	if c == nil {
		return domain.ErrIndexNotReady
	}
	return e.store.Save(ctx, &store.Snapshot{
		BuildID:   c.buildID,
		ModelInfo: c.modelInfo,
		Dimension: c.index.Dimension(),
		Vectors:   c.index.Vectors(),
		Metadata:  c.meta,
		Texts:     c.texts,
	})
}

// Load replaces the current corpus with the stored one. A set built with a
// different embedding model or dimension is rejected with
// domain.ErrPersistence and the current corpus is kept.
func (e *Engine) Load(ctx context.Context) error {
	if e.store == nil {
		return fmt.Errorf("%w: no store configured", domain.ErrConfiguration)
	}
	e.buildMu.Lock()
	defer e.buildMu.Unlock()

	snap, err := e.store.Load(ctx)
	if err != nil {
		return err
	}
	if want := e.embedder.ModelInfo(); snap.ModelInfo != want {
		return fmt.Errorf("%w: index was built with %q, embedder is %q", domain.ErrPersistence, snap.ModelInfo, want)
	}
	if d := e.embedder.Dimension(); d != 0 && d != snap.Dimension {
		return fmt.Errorf("%w: index dimension %d, embedder dimension %d", domain.ErrPersistence, snap.Dimension, d)
	}
	flat := index.NewFlat()
	if err := flat.Restore(snap.Vectors); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	e.current.Store(&corpus{
		buildID:   snap.BuildID,
		modelInfo: snap.ModelInfo,
		index:     flat,
		meta:      snap.Metadata,
		texts:     snap.Texts,
	})
	return nil
}

// DocumentSource yields the documents to index when no usable stored set
// exists.
type DocumentSource func(ctx context.Context) ([]domain.Document, error)

// LoadOrBuild loads the stored set unless force is set. When loading is not
// possible it builds from source and saves the result.
func (e *Engine) LoadOrBuild(ctx context.Context, source DocumentSource, force bool) error {
	if !force && e.store != nil && e.store.Exists() {
		err := e.Load(ctx)
		if err == nil {
			e.logger.Info("loaded existing index", "chunks", e.current.Load().index.Len())
			return nil
		}
		e.logger.Warn("stored index unusable, rebuilding", "err", err)
	}
	docs, err := source(ctx)
	if err != nil {
		return err
	}
	if err := e.BuildDocuments(ctx, docs); err != nil {
		return err
	}
	if e.store == nil {
		return nil
	}
	if err := e.Save(ctx); err != nil {
		return fmt.Errorf("index built but not saved: %w", err)
	}
	return nil
}

// Status summarises the engine state for display.
type Status struct {
	Ready     bool
	BuildID   string
	Model     string
	Dimension int
	Chunks    int
	Documents map[string]int
	Embedder  string
	Generator string
}

// Status returns the current state.
func (e *Engine) Status() Status {
	s := Status{Embedder: e.embedder.Name(), Generator: "not configured", Documents: e.DocumentInfo()}
	if e.generator != nil {
		s.Generator = e.generator.Name()
	}
	if c := e.current.Load(); c != nil {
		s.Ready = true
		s.BuildID = c.buildID
		s.Model = c.modelInfo
		s.Dimension = c.index.Dimension()
		s.Chunks = c.index.Len()
	}
	return s
}

// Close releases the store.
func (e *Engine) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}
