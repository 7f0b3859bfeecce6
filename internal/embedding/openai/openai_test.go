package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragindex/internal/domain"
)

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	t.Setenv("TEST_EMBED_KEY", "sk-test")
	c, err := NewClient(Config{BaseURL: url, APIKeyEnv: "TEST_EMBED_KEY", Model: "test-embed", MaxRetries: 2})
	require.NoError(t, err)
	c.backoff = func(int) time.Duration { return 0 }
	return c
}

func writeEmbeddings(w http.ResponseWriter, vecs map[int][]float32) {
	type item struct {
		Object    string    `json:"object"`
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	}
	var data []item
	// emit in reverse index order to exercise re-sorting
	for i := len(vecs) - 1; i >= 0; i-- {
		data = append(data, item{Object: "embedding", Embedding: vecs[i], Index: i})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data, "model": "test-embed"})
}

func TestEmbed_OrdersByIndexAndDiscoversDimension(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var body struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-embed", body.Model)
		assert.Equal(t, []string{"a", "b"}, body.Input)
		writeEmbeddings(w, map[int][]float32{0: {1, 0, 0}, 1: {0, 1, 0}})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	assert.Equal(t, 0, c.Dimension())

	vecs, err := c.Embed(context.Background(), []string{"a", "b"})

	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0, 0}, {0, 1, 0}}, vecs)
	assert.Equal(t, 3, c.Dimension())
	assert.Equal(t, "openai-test-embed", c.ModelInfo())
}

func TestEmbed_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
			return
		}
		writeEmbeddings(w, map[int][]float32{0: {0.5, 0.5}})
	}))
	defer srv.Close()

	vecs, err := newTestClient(t, srv.URL).Embed(context.Background(), []string{"x"})

	require.NoError(t, err)
	assert.Len(t, vecs, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestEmbed_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Embed(context.Background(), []string{"x"})

	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestEmbed_RejectsShortResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEmbeddings(w, map[int][]float32{0: {1}})
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Embed(context.Background(), []string{"x", "y"})

	assert.ErrorContains(t, err, "got 1 vectors for 2 inputs")
}

func TestNewClient_MissingKey(t *testing.T) {
	t.Setenv("EMPTY_EMBED_KEY", "")

	_, err := NewClient(Config{APIKeyEnv: "EMPTY_EMBED_KEY"})

	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestRetryDelay_Capped(t *testing.T) {
	assert.Equal(t, 200*time.Millisecond, retryDelay(0))
	assert.Equal(t, 400*time.Millisecond, retryDelay(1))
	assert.Equal(t, 5*time.Second, retryDelay(10))
}
