package services

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

type geminiGenerator struct {
	client    *genai.Client
	model     string
	maxTokens int
}

func newGeminiGenerator(ctx context.Context, s LLMSettings) (TextGenerator, error) {
	client, err := newGeminiClient(ctx, s.APIToken, s.BaseURL)
	if err != nil {
		return nil, err
	}
	return &geminiGenerator{client: client, model: s.ModelID, maxTokens: s.MaxTokens}, nil
}

func newGeminiClient(ctx context.Context, apiKey, baseURL string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: creating gemini client: %v", ErrConfiguration, err)
	}
	return client, nil
}

func (g *geminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	config := &genai.GenerateContentConfig{}
	if g.maxTokens > 0 {
		config.MaxOutputTokens = int32(g.maxTokens)
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("%w: gemini api call failed: %w", ErrProviderResponse, err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: empty response from gemini", ErrProviderResponse)
	}
	// A blocked candidate carries a finish reason but no text parts.
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("%w: gemini candidate has no text (finish reason %q)", ErrProviderResponse, resp.Candidates[0].FinishReason)
	}
	return text, nil
}
