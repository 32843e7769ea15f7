package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmbedderOllama(t *testing.T) {
	var gotModel, gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		var body struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotModel, gotPrompt = body.Model, body.Prompt
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"embedding":[0.25,0.5,0.75]}`)
	}))
	defer srv.Close()

	embedder, err := NewEmbedder(context.Background(), EmbedderSettings{
		Provider: ProviderOllama, Model: "nomic-embed-text:v1.5", OllamaURL: srv.URL,
	})
	require.NoError(t, err)

	vector, err := embedder.EmbedQuery(context.Background(), "What is hypertension?")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, 0.5, 0.75}, vector)
	assert.Equal(t, "nomic-embed-text:v1.5", gotModel)
	assert.Equal(t, "What is hypertension?", gotPrompt)
}

func TestNewEmbedderOpenAI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-embed", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"object":"list","model":"text-embedding-3-small",
			"data":[{"object":"embedding","index":0,"embedding":[1,0]}],
			"usage":{"prompt_tokens":3,"total_tokens":3}}`)
	}))
	defer srv.Close()

	embedder, err := NewEmbedder(context.Background(), EmbedderSettings{
		Provider: ProviderOpenAI, Model: "text-embedding-3-small", APIToken: "sk-embed", BaseURL: srv.URL,
	})
	require.NoError(t, err)

	vector, err := embedder.EmbedQuery(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vector)
}

func TestNewEmbedderGemini(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "text-embedding-004:batchEmbedContents"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"embeddings":[{"values":[0.5,0.5]}]}`)
	}))
	defer srv.Close()

	embedder, err := NewEmbedder(context.Background(), EmbedderSettings{
		Provider: ProviderGemini, Model: "text-embedding-004", APIToken: "key", BaseURL: srv.URL,
	})
	require.NoError(t, err)

	vector, err := embedder.EmbedQuery(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.5}, vector)
}

func TestNewEmbedderRejectsBadSettings(t *testing.T) {
	for name, settings := range map[string]EmbedderSettings{
		"unknown provider":   {Provider: "word2vec", Model: "m"},
		"openai without key": {Provider: ProviderOpenAI, Model: "text-embedding-3-small"},
		"gemini without key": {Provider: ProviderGemini, Model: "text-embedding-004"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewEmbedder(context.Background(), settings)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}
