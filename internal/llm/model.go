// Package llm wraps langchaingo models for generative transformation
// operations.
package llm

import (
	"context"
	"fmt"

	"github.com/raphaelgruber/reweave-go/internal/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Usage carries token accounting for one generation call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Total returns input plus output tokens.
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// Model wraps langchaingo LLM for text generation.
type Model struct {
	llm       llms.Model
	modelName string
}

// NewModel creates an LLM model based on configuration.
func NewModel(cfg config.Config) (*Model, error) {
	var model llms.Model
	var err error

	switch cfg.LLMProvider {
	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.LLMModel),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}

	return &Model{
		llm:       model,
		modelName: cfg.LLMModel,
	}, nil
}

// GenerateWithSystem generates text with a system prompt and returns token
// usage when the provider reports it.
func (m *Model) GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, Usage, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	response, err := m.llm.GenerateContent(ctx, messages)
	if err != nil {
		return "", Usage{}, fmt.Errorf("generate with system: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", Usage{}, fmt.Errorf("no response choices")
	}

	choice := response.Choices[0]
	return choice.Content, usageFromInfo(choice.GenerationInfo), nil
}

// Model returns the LLM model name.
func (m *Model) Model() string {
	return m.modelName
}

// usageFromInfo extracts token counts from GenerationInfo. Providers use
// different keys; unknown shapes yield zero usage rather than an error.
func usageFromInfo(info map[string]any) Usage {
	var u Usage
	for _, key := range []string{"PromptTokens", "InputTokens", "prompt_tokens", "input_tokens"} {
		if n, ok := asInt(info[key]); ok {
			u.InputTokens = n
			break
		}
	}
	for _, key := range []string{"CompletionTokens", "OutputTokens", "completion_tokens", "output_tokens"} {
		if n, ok := asInt(info[key]); ok {
			u.OutputTokens = n
			break
		}
	}
	return u
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
