package ollama

import (
	"context"
	"fmt"
	"sync"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"

	"ragindex/internal/domain"
)

// Embedder serves embeddings from a local Ollama server through langchaingo.
type Embedder struct {
	inner embeddings.Embedder
	model string

	mu        sync.Mutex
	dimension int
}

// Config configures the Ollama embedder.
type Config struct {
	URL       string
	Model     string
	BatchSize int
}

// NewEmbedder connects the langchaingo Ollama client. No request is made
// until the first Embed call.
func NewEmbedder(cfg Config) (*Embedder, error) {
	if cfg.URL == "" {
		cfg.URL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "nomic-embed-text"
	}
	llm, err := ollama.New(ollama.WithServerURL(cfg.URL), ollama.WithModel(cfg.Model))
	if err != nil {
		return nil, fmt.Errorf("%w: ollama client: %v", domain.ErrConfiguration, err)
	}
	opts := []embeddings.Option{embeddings.WithStripNewLines(true)}
	if cfg.BatchSize > 0 {
		opts = append(opts, embeddings.WithBatchSize(cfg.BatchSize))
	}
	inner, err := embeddings.NewEmbedder(llm, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: ollama embedder: %v", domain.ErrConfiguration, err)
	}
	return newWithClient(inner, cfg.Model), nil
}

func newWithClient(inner embeddings.Embedder, model string) *Embedder {
	return &Embedder{inner: inner, model: model}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "ollama" }

// ModelInfo identifies the served model.
func (e *Embedder) ModelInfo() string { return "ollama-" + e.model }

// Dimension returns the dimensionality of the produced embedding vectors.
func (e *Embedder) Dimension() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dimension
}

// Embed returns one embedding per text.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vecs, err := e.inner.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("ollama embeddings failed: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("ollama embeddings: got %d vectors for %d inputs", len(vecs), len(texts))
	}
	e.mu.Lock()
	if e.dimension == 0 && len(vecs[0]) > 0 {
		e.dimension = len(vecs[0])
	}
	e.mu.Unlock()
	return vecs, nil
}
