package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragindex/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))

	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
chunker:
  chunk_size: 500
embedder:
  type: openai
generator:
  type: ollama
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 500, cfg.Chunker.ChunkSize)
	assert.Equal(t, "char", cfg.Chunker.Type)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.OpenAI.APIKeyEnv)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedder.OpenAI.Model)
	assert.Equal(t, 5, cfg.Embedder.OpenAI.MaxRetries)
	assert.Equal(t, 32, cfg.Embedder.BatchSize)
	assert.Equal(t, "http://localhost:11434", cfg.Generator.Ollama.URL)
	assert.Equal(t, "./vector_db", cfg.Store.Path)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, 3, cfg.Retrieval.Overfetch)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoad_RejectsUnknownBackends(t *testing.T) {
	path := writeConfig(t, `
embedder:
  type: word2vec
store:
  type: qdrant
`)

	_, err := Load(path)

	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.ErrorContains(t, err, `unknown embedder: "word2vec"`)
	assert.ErrorContains(t, err, `unknown store: "qdrant"`)
}

func TestLoad_RejectsNegativeSizes(t *testing.T) {
	path := writeConfig(t, `
chunker:
  chunk_size: -1
  overlap: -5
`)

	_, err := Load(path)

	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.ErrorContains(t, err, "chunk_size")
	assert.ErrorContains(t, err, "overlap")
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "chunker: [unterminated"))

	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.Store.Type = "sqlite"
	cfg.Retrieval.PartLabel = "part"

	require.NoError(t, Save(path, cfg))
	got, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "sqlite", got.Store.Type)
	assert.Equal(t, "part", got.Retrieval.PartLabel)
	assert.Equal(t, 384, got.Embedder.Hashing.Dimension)
}

func TestLoadDefault_WritesUserConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, path, err := LoadDefault()

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "ragindex", "config.yaml"), path)
	assert.FileExists(t, path)
	assert.Equal(t, defaultConfig(), cfg)
}
