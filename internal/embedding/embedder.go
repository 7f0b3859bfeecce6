package embedding

import (
	"context"
	"fmt"
)

// Embedder converts free text into fixed-dimension vectors. Implementations
// must be deterministic for a fixed model version and accept batches of any
// size >= 1. Remote models report Dimension() == 0 until the first batch has
// been produced.
type Embedder interface {
	Name() string
	ModelInfo() string
	Dimension() int
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// DefaultBatchSize bounds how many texts are sent per Embed call.
const DefaultBatchSize = 32

// EmbedAll embeds texts in batches of batchSize. It verifies that every batch
// returns one vector per input and that all vectors share the dimension of
// the first one.
func EmbedAll(ctx context.Context, e Embedder, texts []string, batchSize int) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	out := make([][]float32, 0, len(texts))
	dim := 0
	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))
		vecs, err := e.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch %d-%d: %w", start, end, err)
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("embed batch %d-%d: got %d vectors for %d texts", start, end, len(vecs), end-start)
		}
		for i, v := range vecs {
			if dim == 0 {
				dim = len(v)
			}
			if len(v) == 0 || len(v) != dim {
				return nil, fmt.Errorf("embed batch %d-%d: vector %d has dimension %d, want %d", start, end, start+i, len(v), dim)
			}
		}
		out = append(out, vecs...)
	}
	return out, nil
}
