package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	huggingFaceRouterURL = "https://router.huggingface.co/v1"
	defaultOllamaURL     = "http://localhost:11434"
)

// langchainGenerator drives any langchaingo model with a single user prompt.
type langchainGenerator struct {
	model     llms.Model
	maxTokens int
}

// NewLangchainGenerator adapts a langchaingo model to TextGenerator.
func NewLangchainGenerator(model llms.Model, maxTokens int) TextGenerator {
	return &langchainGenerator{model: model, maxTokens: maxTokens}
}

func (g *langchainGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	var opts []llms.CallOption
	if g.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(g.maxTokens))
	}
	text, err := llms.GenerateFromSinglePrompt(ctx, g.model, prompt, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrProviderResponse, err)
	}
	if text == "" {
		return "", fmt.Errorf("%w: empty completion", ErrProviderResponse)
	}
	return text, nil
}

// newOpenAICompatibleGenerator serves both the Hugging Face inference router and
// OpenAI proper; they speak the same chat-completions protocol.
func newOpenAICompatibleGenerator(s LLMSettings) (TextGenerator, error) {
	opts := []openai.Option{
		openai.WithToken(s.APIToken),
		openai.WithModel(s.ModelID),
	}
	baseURL := s.BaseURL
	if s.Provider == ProviderHuggingFace {
		opts[1] = openai.WithModel(routedModel(s.ModelID, s.HFProvider))
		if baseURL == "" {
			baseURL = huggingFaceRouterURL
		}
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: creating %s client: %v", ErrConfiguration, s.Provider, err)
	}
	return NewLangchainGenerator(client, s.MaxTokens), nil
}

func newOllamaGenerator(s LLMSettings) (TextGenerator, error) {
	serverURL := s.BaseURL
	if serverURL == "" {
		serverURL = defaultOllamaURL
	}
	client, err := ollama.New(ollama.WithModel(s.ModelID), ollama.WithServerURL(serverURL))
	if err != nil {
		return nil, fmt.Errorf("%w: creating ollama client: %v", ErrConfiguration, err)
	}
	return NewLangchainGenerator(client, s.MaxTokens), nil
}

// routedModel appends the inference provider the HF router should forward to,
// e.g. "Qwen/Qwen2.5-7B-Instruct:together".
func routedModel(modelID, provider string) string {
	if provider == "" || strings.Contains(modelID, ":") {
		return modelID
	}
	return modelID + ":" + provider
}
