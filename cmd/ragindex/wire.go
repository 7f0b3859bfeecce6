package main

import (
	"fmt"
	"log/slog"
	"time"

	"ragindex/internal/chunker"
	"ragindex/internal/config"
	"ragindex/internal/domain"
	"ragindex/internal/embedding"
	"ragindex/internal/embedding/hashing"
	embollama "ragindex/internal/embedding/ollama"
	embopenai "ragindex/internal/embedding/openai"
	"ragindex/internal/generator"
	genollama "ragindex/internal/generator/ollama"
	genopenai "ragindex/internal/generator/openai"
	"ragindex/internal/service"
	"ragindex/internal/store"
	"ragindex/internal/store/file"
	"ragindex/internal/store/sqlite"
	"ragindex/internal/summarizer"
)

// assemble builds the engine from configuration.
func assemble(cfg *config.AppConfig, logger *slog.Logger) (*service.Engine, error) {
	var ch domain.Chunker
	switch cfg.Chunker.Type {
	case "char", "":
		ch = chunker.NewCharChunker(cfg.Chunker.ChunkSize, cfg.Chunker.Overlap)
	default:
		return nil, fmt.Errorf("%w: unknown chunker: %s", domain.ErrConfiguration, cfg.Chunker.Type)
	}

	emb, err := newEmbedder(cfg.Embedder)
	if err != nil {
		return nil, err
	}

	var st store.Store
	switch cfg.Store.Type {
	case "file", "":
		st = file.New(cfg.Store.Path, logger)
	case "sqlite":
		st, err = sqlite.New(cfg.Store.Path, logger)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unknown store: %s", domain.ErrConfiguration, cfg.Store.Type)
	}

	var sum domain.Summarizer
	switch cfg.Summarizer.Type {
	case "frequency", "":
		sum = summarizer.NewFrequencySummarizer()
	default:
		return nil, fmt.Errorf("%w: unknown summarizer: %s", domain.ErrConfiguration, cfg.Summarizer.Type)
	}

	gen, err := newGenerator(cfg.Generator)
	if err != nil {
		return nil, err
	}

	return service.New(service.Options{
		Chunker:   ch,
		Embedder:  emb,
		Store:     st,
		Logger:    logger,
		BatchSize: cfg.Embedder.BatchSize,
		Overfetch: cfg.Retrieval.Overfetch,
		Context: service.ContextFormat{
			PartLabel:  cfg.Retrieval.PartLabel,
			ScoreLabel: cfg.Retrieval.ScoreLabel,
			Empty:      cfg.Retrieval.NoContext,
		},
		Summarizer:   sum,
		Generator:    gen,
		SystemPrompt: cfg.Generator.SystemPrompt,
	})
}

func newEmbedder(cfg config.EmbedderConfig) (embedding.Embedder, error) {
	switch cfg.Type {
	case "hashing", "":
		dim := hashing.DefaultDimension
		if cfg.Hashing != nil && cfg.Hashing.Dimension > 0 {
			dim = cfg.Hashing.Dimension
		}
		return hashing.NewEmbedder(dim), nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("%w: openai embedder config missing", domain.ErrConfiguration)
		}
		return embopenai.NewClient(embopenai.Config{
			BaseURL:    cfg.OpenAI.BaseURL,
			APIKeyEnv:  cfg.OpenAI.APIKeyEnv,
			Model:      cfg.OpenAI.Model,
			Dimensions: cfg.OpenAI.Dimensions,
			Timeout:    time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
			MaxRetries: cfg.OpenAI.MaxRetries,
		})
	case "ollama":
		if cfg.Ollama == nil {
			return nil, fmt.Errorf("%w: ollama embedder config missing", domain.ErrConfiguration)
		}
		return embollama.NewEmbedder(embollama.Config{
			URL:       cfg.Ollama.URL,
			Model:     cfg.Ollama.Model,
			BatchSize: cfg.BatchSize,
		})
	default:
		return nil, fmt.Errorf("%w: unknown embedder: %s", domain.ErrConfiguration, cfg.Type)
	}
}

func newGenerator(cfg config.GeneratorConfig) (generator.Generator, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("%w: openai generator config missing", domain.ErrConfiguration)
		}
		return genopenai.NewClient(genopenai.Config{
			BaseURL:     cfg.OpenAI.BaseURL,
			APIKeyEnv:   cfg.OpenAI.APIKeyEnv,
			Model:       cfg.OpenAI.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: float32(cfg.Temperature),
			Timeout:     time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
		})
	case "ollama":
		if cfg.Ollama == nil {
			return nil, fmt.Errorf("%w: ollama generator config missing", domain.ErrConfiguration)
		}
		return genollama.New(genollama.Config{
			URL:         cfg.Ollama.URL,
			Model:       cfg.Ollama.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		})
	default:
		return nil, fmt.Errorf("%w: unknown generator: %s", domain.ErrConfiguration, cfg.Type)
	}
}
