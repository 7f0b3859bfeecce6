// Package openai implements the generator over an OpenAI-compatible chat
// completions endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"ragindex/internal/domain"
)

// Config configures the chat client.
type Config struct {
	BaseURL     string
	APIKeyEnv   string
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

// Client generates answers with chat completions.
type Client struct {
	api         *goopenai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewClient creates a chat client. A missing API key is a configuration error.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("%w: missing API key in env %s", domain.ErrConfiguration, cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = goopenai.GPT4oMini
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	apiCfg := goopenai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	apiCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return &Client{
		api:         goopenai.NewClientWithConfig(apiCfg),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

// Name returns the identifier of this generator implementation.
func (c *Client) Name() string { return "openai" }

// Generate sends the system instruction and prompt as a two-message chat.
func (c *Client) Generate(ctx context.Context, system, prompt string) (string, error) {
	messages := make([]goopenai.ChatCompletionMessage, 0, 2)
	if system != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: system})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: prompt})

	resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
