package ollama

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDocs struct {
	out [][]float32
	err error
}

func (s stubDocs) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	return s.out, s.err
}

func (s stubDocs) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if len(s.out) == 0 {
		return nil, s.err
	}
	return s.out[0], s.err
}

func TestEmbed_RecordsDimension(t *testing.T) {
	e := newWithClient(stubDocs{out: [][]float32{{1, 2}, {3, 4}}}, "nomic-embed-text")

	vecs, err := e.Embed(context.Background(), []string{"a", "b"})

	require.NoError(t, err)
	assert.Len(t, vecs, 2)
	assert.Equal(t, 2, e.Dimension())
	assert.Equal(t, "ollama-nomic-embed-text", e.ModelInfo())
}

func TestEmbed_CountMismatch(t *testing.T) {
	e := newWithClient(stubDocs{out: [][]float32{{1}}}, "m")

	_, err := e.Embed(context.Background(), []string{"a", "b"})

	assert.ErrorContains(t, err, "got 1 vectors for 2 inputs")
}

func TestEmbed_WrapsError(t *testing.T) {
	e := newWithClient(stubDocs{err: errors.New("connection refused")}, "m")

	_, err := e.Embed(context.Background(), []string{"a"})

	assert.ErrorContains(t, err, "connection refused")
}
