package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragindex/internal/config"
	"ragindex/internal/domain"
)

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	cfg.Store.Path = t.TempDir()
	return cfg
}

func TestAssemble_DefaultsBuildAndSearch(t *testing.T) {
	for _, storeType := range []string{"file", "sqlite"} {
		t.Run(storeType, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Store.Type = storeType
			engine, err := assemble(cfg, nil)
			require.NoError(t, err)
			defer engine.Close()

			docs := []domain.Document{{Name: "penal_code", Content: "Whoever commits theft shall be punished."}}
			require.NoError(t, engine.LoadOrBuild(context.Background(), func(context.Context) ([]domain.Document, error) {
				return docs, nil
			}, false))

			got, err := engine.Search(context.Background(), "theft", 1)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "penal_code", got[0].Document)
			assert.Equal(t, "hashing-fnv1a-384", engine.Status().Model)
		})
	}
}

func TestAssemble_ConfigurationErrors(t *testing.T) {
	t.Setenv("RAGINDEX_TEST_MISSING_KEY", "")

	cfg := testConfig(t)
	cfg.Embedder = config.EmbedderConfig{Type: "openai", OpenAI: &config.OpenAIEmbedderConfig{APIKeyEnv: "RAGINDEX_TEST_MISSING_KEY"}}
	_, err := assemble(cfg, nil)
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	cfg = testConfig(t)
	cfg.Generator = config.GeneratorConfig{Type: "openai", OpenAI: &config.OpenAIGeneratorConfig{APIKeyEnv: "RAGINDEX_TEST_MISSING_KEY"}}
	_, err = assemble(cfg, nil)
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	cfg = testConfig(t)
	cfg.Store.Type = "qdrant"
	_, err = assemble(cfg, nil)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestNewGenerator_NoneConfigured(t *testing.T) {
	gen, err := newGenerator(config.GeneratorConfig{Type: "none"})

	require.NoError(t, err)
	assert.Nil(t, gen)
}
