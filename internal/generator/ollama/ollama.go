// Package ollama implements the generator over a local Ollama server through
// langchaingo.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/schema"

	"ragindex/internal/domain"
)

// Config configures the Ollama generator.
type Config struct {
	URL         string
	Model       string
	MaxTokens   int
	Temperature float64
}

// Generator answers prompts with an Ollama-served chat model.
type Generator struct {
	llm         llms.Model
	maxTokens   int
	temperature float64
}

// New creates a generator. No request is made until Generate is called.
func New(cfg Config) (*Generator, error) {
	if cfg.URL == "" {
		cfg.URL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "llama3.1"
	}
	llm, err := ollama.New(ollama.WithServerURL(cfg.URL), ollama.WithModel(cfg.Model))
	if err != nil {
		return nil, fmt.Errorf("%w: ollama client: %v", domain.ErrConfiguration, err)
	}
	return newWithModel(llm, cfg.MaxTokens, cfg.Temperature), nil
}

func newWithModel(llm llms.Model, maxTokens int, temperature float64) *Generator {
	return &Generator{llm: llm, maxTokens: maxTokens, temperature: temperature}
}

// Name returns the identifier of this generator implementation.
func (g *Generator) Name() string { return "ollama" }

// Generate sends system and prompt as separate chat messages.
func (g *Generator) Generate(ctx context.Context, system, prompt string) (string, error) {
	var messages []llms.MessageContent
	if system != "" {
		messages = append(messages, llms.TextParts(schema.ChatMessageTypeSystem, system))
	}
	messages = append(messages, llms.TextParts(schema.ChatMessageTypeHuman, prompt))

	opts := []llms.CallOption{llms.WithTemperature(g.temperature)}
	if g.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(g.maxTokens))
	}
	resp, err := g.llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("ollama generate failed: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", errors.New("ollama returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}
