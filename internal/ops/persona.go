package ops

import (
	"context"
	"fmt"
	"strings"

	"github.com/raphaelgruber/reweave-go/internal/llm"
	"github.com/raphaelgruber/reweave-go/internal/models"
)

// PersonaHandler rewrites a chunk in a configured persona's voice.
//
// Config keys: "persona" (required), "intensity" ("light"|"moderate"|"heavy",
// default "moderate").
type PersonaHandler struct {
	model *llm.Model
}

// NewPersonaHandler creates the persona rewrite handler.
func NewPersonaHandler(model *llm.Model) *PersonaHandler {
	return &PersonaHandler{model: model}
}

// Apply implements Handler.
func (h *PersonaHandler) Apply(ctx context.Context, source models.Chunk, cfg map[string]any) (Result, error) {
	persona, _ := cfg["persona"].(string)
	if strings.TrimSpace(persona) == "" {
		return Result{}, fmt.Errorf("persona operation requires a 'persona' config value")
	}

	intensity, _ := cfg["intensity"].(string)
	if intensity == "" {
		intensity = "moderate"
	}

	systemPrompt := fmt.Sprintf(`You are a rewriting assistant. Rewrite the given text in the voice of the following persona: %s.
Rewrite intensity: %s ("light" keeps most of the original wording, "heavy" fully rephrases).
Preserve the factual content and approximate length. Output only the rewritten text.`, persona, intensity)

	rewritten, usage, err := h.model.GenerateWithSystem(ctx, systemPrompt, source.Content)
	if err != nil {
		return Result{}, fmt.Errorf("persona rewrite: %w", err)
	}

	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		return Result{}, fmt.Errorf("persona rewrite: model returned empty content")
	}

	return Result{
		Content:    rewritten,
		TokensUsed: usage.Total(),
		Metadata: map[string]any{
			"model":     h.model.Model(),
			"persona":   persona,
			"intensity": intensity,
		},
	}, nil
}
