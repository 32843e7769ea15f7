package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
)

// Supported LLM_PROVIDER values.
const (
	ProviderHuggingFace = "huggingface"
	ProviderOpenAI      = "openai"
	ProviderOllama      = "ollama"
	ProviderGemini      = "gemini"
	ProviderAnthropic   = "anthropic"
)

// TextGenerator performs a single prompt-in, text-out call against a hosted model.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// LLMSettings selects and authenticates the provider behind the adapter.
type LLMSettings struct {
	Provider   string
	HFProvider string
	ModelID    string
	APIToken   string
	BaseURL    string
	MaxTokens  int
}

func (s LLMSettings) validate() error {
	if strings.TrimSpace(s.ModelID) == "" {
		return fmt.Errorf("%w: model id is not set", ErrConfiguration)
	}
	// A local Ollama server takes no credentials.
	if s.Provider != ProviderOllama && strings.TrimSpace(s.APIToken) == "" {
		return fmt.Errorf("%w: API token for provider %q is not set", ErrConfiguration, s.Provider)
	}
	return nil
}

// LLMAdapter turns whatever the prompt stage produced into text, asks the model
// once, and hands back exactly one generated text.
type LLMAdapter struct {
	generator TextGenerator
	provider  string
	model     string
	logger    *zap.Logger
}

// NewLLMAdapter validates settings and builds the provider client.
func NewLLMAdapter(ctx context.Context, settings LLMSettings, logger *zap.Logger) (*LLMAdapter, error) {
	if err := settings.validate(); err != nil {
		return nil, err
	}
	generator, err := newGenerator(ctx, settings)
	if err != nil {
		return nil, err
	}
	return &LLMAdapter{
		generator: generator,
		provider:  settings.Provider,
		model:     settings.ModelID,
		logger:    logger.Named("llm"),
	}, nil
}

// NewLLMAdapterWithGenerator wraps an already constructed generator.
func NewLLMAdapterWithGenerator(generator TextGenerator, logger *zap.Logger) *LLMAdapter {
	return &LLMAdapter{generator: generator, provider: "custom", logger: logger.Named("llm")}
}

// Invoke coerces input to text and returns the model's reply.
func (a *LLMAdapter) Invoke(ctx context.Context, input any) (string, error) {
	prompt := promptText(input)
	a.logger.Debug("sending prompt", zap.String("provider", a.provider), zap.Int("prompt_chars", len(prompt)))

	text, err := a.generator.Generate(ctx, prompt)
	if err != nil {
		if errors.Is(err, ErrProviderResponse) {
			return "", err
		}
		return "", fmt.Errorf("%w: %s: %w", ErrProviderResponse, a.provider, err)
	}
	return text, nil
}

// promptText accepts plain strings, structured prompt values and anything printable.
func promptText(input any) string {
	switch v := input.(type) {
	case string:
		return v
	case llms.PromptValue:
		return v.String()
	case fmt.Stringer:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func newGenerator(ctx context.Context, s LLMSettings) (TextGenerator, error) {
	switch s.Provider {
	case ProviderHuggingFace, ProviderOpenAI:
		return newOpenAICompatibleGenerator(s)
	case ProviderOllama:
		return newOllamaGenerator(s)
	case ProviderGemini:
		return newGeminiGenerator(ctx, s)
	case ProviderAnthropic:
		return newAnthropicGenerator(s), nil
	default:
		return nil, fmt.Errorf("%w: unknown LLM provider %q", ErrConfiguration, s.Provider)
	}
}
