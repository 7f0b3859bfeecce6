package ollama

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

type stubModel struct {
	messages []llms.MessageContent
	answer   string
	err      error
}

func (s *stubModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	s.messages = messages
	if s.err != nil {
		return nil, s.err
	}
	if s.answer == "" {
		return &llms.ContentResponse{}, nil
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: s.answer}}}, nil
}

func (s *stubModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, s, prompt, options...)
}

func TestGenerate(t *testing.T) {
	stub := &stubModel{answer: " Section 379 applies.\n"}
	g := newWithModel(stub, 256, 0.2)

	got, err := g.Generate(context.Background(), "be precise", "what applies?")

	require.NoError(t, err)
	assert.Equal(t, "Section 379 applies.", got)
	require.Len(t, stub.messages, 2)
	assert.Equal(t, schema.ChatMessageTypeSystem, stub.messages[0].Role)
	assert.Equal(t, schema.ChatMessageTypeHuman, stub.messages[1].Role)
	assert.Equal(t, "ollama", g.Name())
}

func TestGenerate_WithoutSystem(t *testing.T) {
	stub := &stubModel{answer: "ok"}

	_, err := newWithModel(stub, 0, 0).Generate(context.Background(), "", "q")

	require.NoError(t, err)
	assert.Len(t, stub.messages, 1)
}

func TestGenerate_Errors(t *testing.T) {
	_, err := newWithModel(&stubModel{err: errors.New("connection refused")}, 0, 0).Generate(context.Background(), "", "q")
	assert.ErrorContains(t, err, "connection refused")

	_, err = newWithModel(&stubModel{}, 0, 0).Generate(context.Background(), "", "q")
	assert.ErrorContains(t, err, "no choices")
}
