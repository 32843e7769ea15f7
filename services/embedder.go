package services

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"google.golang.org/genai"
)

// EmbedderSettings selects the model used to embed questions at query time.
// It must match the model the index was built with.
type EmbedderSettings struct {
	Provider  string
	Model     string
	OllamaURL string
	BaseURL   string // hosted openai or gemini endpoint override
	APIToken  string
}

// NewEmbedder returns a langchaingo embedder for the configured provider.
func NewEmbedder(ctx context.Context, s EmbedderSettings) (embeddings.Embedder, error) {
	switch s.Provider {
	case ProviderOllama:
		client, err := ollama.New(ollama.WithModel(s.Model), ollama.WithServerURL(s.OllamaURL))
		if err != nil {
			return nil, fmt.Errorf("%w: creating ollama embedder: %v", ErrConfiguration, err)
		}
		return newEmbedder(client)
	case ProviderOpenAI:
		if s.APIToken == "" {
			return nil, fmt.Errorf("%w: openai embedder needs an API token", ErrConfiguration)
		}
		opts := []openai.Option{openai.WithToken(s.APIToken), openai.WithEmbeddingModel(s.Model)}
		if s.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(s.BaseURL))
		}
		client, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("%w: creating openai embedder: %v", ErrConfiguration, err)
		}
		return newEmbedder(client)
	case ProviderGemini:
		if s.APIToken == "" {
			return nil, fmt.Errorf("%w: gemini embedder needs an API token", ErrConfiguration)
		}
		client, err := newGeminiClient(ctx, s.APIToken, s.BaseURL)
		if err != nil {
			return nil, err
		}
		return newEmbedder(geminiEmbeddingClient(client, s.Model))
	default:
		return nil, fmt.Errorf("%w: unknown embedder %q", ErrConfiguration, s.Provider)
	}
}

func newEmbedder(client embeddings.EmbedderClient) (embeddings.Embedder, error) {
	embedder, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return embedder, nil
}

func geminiEmbeddingClient(client *genai.Client, model string) embeddings.EmbedderClientFunc {
	return func(ctx context.Context, texts []string) ([][]float32, error) {
		contents := make([]*genai.Content, 0, len(texts))
		for _, text := range texts {
			contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
		}
		resp, err := client.Models.EmbedContent(ctx, model, contents, nil)
		if err != nil {
			return nil, fmt.Errorf("gemini embedding failed: %w", err)
		}
		if len(resp.Embeddings) != len(texts) {
			return nil, fmt.Errorf("gemini returned %d embeddings for %d texts", len(resp.Embeddings), len(texts))
		}
		vectors := make([][]float32, len(resp.Embeddings))
		for i, e := range resp.Embeddings {
			vectors[i] = e.Values
		}
		return vectors, nil
	}
}
