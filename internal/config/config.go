package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"ragindex/internal/domain"
)

// DataConfig points at the source documents.
type DataConfig struct {
	Dir string `yaml:"dir"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type      string `yaml:"type"`
	ChunkSize int    `yaml:"chunk_size"`
	Overlap   int    `yaml:"overlap"`
}

// HashingEmbedderConfig configures the local feature-hashing embedder.
type HashingEmbedderConfig struct {
	Dimension int `yaml:"dimension"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	Dimensions  int    `yaml:"dimensions"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries"`
}

// OllamaConfig holds connection details for an Ollama server.
type OllamaConfig struct {
	URL   string `yaml:"url"`
	Model string `yaml:"model"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type      string                 `yaml:"type"`
	BatchSize int                    `yaml:"batch_size"`
	Hashing   *HashingEmbedderConfig `yaml:"hashing,omitempty"`
	OpenAI    *OpenAIEmbedderConfig  `yaml:"openai,omitempty"`
	Ollama    *OllamaConfig          `yaml:"ollama,omitempty"`
}

// StoreConfig selects where the index, metadata and chunk texts are kept.
type StoreConfig struct {
	Type string `yaml:"type"`
	Path string `yaml:"path"`
}

// RetrievalConfig holds query defaults and the context block labels.
type RetrievalConfig struct {
	TopK       int    `yaml:"top_k"`
	Overfetch  int    `yaml:"overfetch"`
	PartLabel  string `yaml:"part_label,omitempty"`
	ScoreLabel string `yaml:"score_label,omitempty"`
	NoContext  string `yaml:"no_context,omitempty"`
}

// SummarizerConfig selects and configures the summarizer.
type SummarizerConfig struct {
	Type         string `yaml:"type"`
	MaxSentences int    `yaml:"max_sentences"`
}

// OpenAIGeneratorConfig configures chat completions.
type OpenAIGeneratorConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// GeneratorConfig selects the answer generator. An empty type disables it.
type GeneratorConfig struct {
	Type         string                 `yaml:"type"`
	SystemPrompt string                 `yaml:"system_prompt,omitempty"`
	MaxTokens    int                    `yaml:"max_tokens"`
	Temperature  float64                `yaml:"temperature"`
	OpenAI       *OpenAIGeneratorConfig `yaml:"openai,omitempty"`
	Ollama       *OllamaConfig          `yaml:"ollama,omitempty"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Data       DataConfig       `yaml:"data"`
	Chunker    ChunkerConfig    `yaml:"chunker"`
	Embedder   EmbedderConfig   `yaml:"embedder"`
	Store      StoreConfig      `yaml:"store"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Generator  GeneratorConfig  `yaml:"generator"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrConfiguration, path, err)
	}
	applyConfigDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/ragindex/config.yaml.
// If neither exists, it writes defaults to ~/.config/ragindex/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects unknown backends and out-of-range sizes. Errors wrap
// domain.ErrConfiguration.
func (c *AppConfig) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}
	check(c.Chunker.Type == "char", "unknown chunker: %q", c.Chunker.Type)
	check(c.Chunker.ChunkSize > 0, "chunker.chunk_size must be positive")
	check(c.Chunker.Overlap >= 0, "chunker.overlap must not be negative")
	check(oneOf(c.Embedder.Type, "hashing", "openai", "ollama"), "unknown embedder: %q", c.Embedder.Type)
	check(c.Embedder.BatchSize > 0, "embedder.batch_size must be positive")
	if c.Embedder.Hashing != nil {
		check(c.Embedder.Hashing.Dimension > 0, "embedder.hashing.dimension must be positive")
	}
	check(oneOf(c.Store.Type, "file", "sqlite"), "unknown store: %q", c.Store.Type)
	check(c.Store.Path != "", "store.path must be set")
	check(c.Retrieval.TopK > 0, "retrieval.top_k must be positive")
	check(c.Retrieval.Overfetch > 0, "retrieval.overfetch must be positive")
	check(c.Summarizer.Type == "frequency", "unknown summarizer: %q", c.Summarizer.Type)
	check(oneOf(c.Generator.Type, "", "none", "openai", "ollama"), "unknown generator: %q", c.Generator.Type)
	check(oneOf(c.Logging.Format, "text", "json"), "unknown logging format: %q", c.Logging.Format)
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", domain.ErrConfiguration, errors.Join(errs...))
}

func oneOf(v string, options ...string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "ragindex", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Data:       DataConfig{Dir: "./data"},
		Chunker:    ChunkerConfig{Type: "char", ChunkSize: 1000, Overlap: 200},
		Embedder:   EmbedderConfig{Type: "hashing", BatchSize: 32, Hashing: &HashingEmbedderConfig{Dimension: 384}},
		Store:      StoreConfig{Type: "file", Path: "./vector_db"},
		Retrieval:  RetrievalConfig{TopK: 5, Overfetch: 3},
		Summarizer: SummarizerConfig{Type: "frequency", MaxSentences: 5},
		Generator:  GeneratorConfig{MaxTokens: 2048},
		Logging:    LoggingConfig{Level: "info", Format: "text"},
	}
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	def := defaultConfig()
	if cfg.Data.Dir == "" {
		cfg.Data.Dir = def.Data.Dir
	}
	if cfg.Chunker.Type == "" {
		cfg.Chunker.Type = def.Chunker.Type
	}
	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = def.Chunker.ChunkSize
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = def.Embedder.Type
	}
	if cfg.Embedder.BatchSize == 0 {
		cfg.Embedder.BatchSize = def.Embedder.BatchSize
	}
	switch cfg.Embedder.Type {
	case "hashing":
		if cfg.Embedder.Hashing == nil {
			cfg.Embedder.Hashing = &HashingEmbedderConfig{}
		}
		if cfg.Embedder.Hashing.Dimension == 0 {
			cfg.Embedder.Hashing.Dimension = def.Embedder.Hashing.Dimension
		}
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		o := cfg.Embedder.OpenAI
		if o.BaseURL == "" {
			o.BaseURL = "https://api.openai.com/v1"
		}
		if o.APIKeyEnv == "" {
			o.APIKeyEnv = "OPENAI_API_KEY"
		}
		if o.Model == "" {
			o.Model = "text-embedding-3-small"
		}
		if o.TimeoutSecs == 0 {
			o.TimeoutSecs = 30
		}
		if o.MaxRetries == 0 {
			o.MaxRetries = 5
		}
	case "ollama":
		cfg.Embedder.Ollama = ollamaDefaults(cfg.Embedder.Ollama, "nomic-embed-text")
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = def.Store.Type
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = def.Store.Path
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = def.Retrieval.TopK
	}
	if cfg.Retrieval.Overfetch == 0 {
		cfg.Retrieval.Overfetch = def.Retrieval.Overfetch
	}
	if cfg.Summarizer.Type == "" {
		cfg.Summarizer.Type = def.Summarizer.Type
	}
	if cfg.Summarizer.MaxSentences == 0 {
		cfg.Summarizer.MaxSentences = def.Summarizer.MaxSentences
	}
	switch cfg.Generator.Type {
	case "openai":
		if cfg.Generator.OpenAI == nil {
			cfg.Generator.OpenAI = &OpenAIGeneratorConfig{}
		}
		o := cfg.Generator.OpenAI
		if o.APIKeyEnv == "" {
			o.APIKeyEnv = "OPENAI_API_KEY"
		}
		if o.Model == "" {
			o.Model = "gpt-4o-mini"
		}
		if o.TimeoutSecs == 0 {
			o.TimeoutSecs = 60
		}
	case "ollama":
		cfg.Generator.Ollama = ollamaDefaults(cfg.Generator.Ollama, "llama3.1")
	}
	if cfg.Generator.MaxTokens == 0 {
		cfg.Generator.MaxTokens = def.Generator.MaxTokens
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = def.Logging.Format
	}
}

func ollamaDefaults(o *OllamaConfig, model string) *OllamaConfig {
	if o == nil {
		o = &OllamaConfig{}
	}
	if o.URL == "" {
		o.URL = "http://localhost:11434"
	}
	if o.Model == "" {
		o.Model = model
	}
	return o
}
