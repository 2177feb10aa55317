package ops

import (
	"context"
	"fmt"
	"strings"

	"github.com/raphaelgruber/reweave-go/internal/llm"
	"github.com/raphaelgruber/reweave-go/internal/models"
)

// defaultPerspectives is used when the job config names none.
var defaultPerspectives = []string{"supportive", "critical", "neutral"}

// PerspectivesHandler produces a multi-perspective analysis of a chunk.
//
// Config key: "perspectives" (list of strings, optional).
type PerspectivesHandler struct {
	model *llm.Model
}

// NewPerspectivesHandler creates the multi-perspective analysis handler.
func NewPerspectivesHandler(model *llm.Model) *PerspectivesHandler {
	return &PerspectivesHandler{model: model}
}

// Apply implements Handler.
func (h *PerspectivesHandler) Apply(ctx context.Context, source models.Chunk, cfg map[string]any) (Result, error) {
	perspectives := configStrings(cfg, "perspectives")
	if len(perspectives) == 0 {
		perspectives = defaultPerspectives
	}

	systemPrompt := fmt.Sprintf(`You are an analysis assistant. Analyze the given text from each of these perspectives: %s.
For each perspective write a short section headed by the perspective name.
Output only the analysis.`, strings.Join(perspectives, ", "))

	analysis, usage, err := h.model.GenerateWithSystem(ctx, systemPrompt, source.Content)
	if err != nil {
		return Result{}, fmt.Errorf("perspectives analysis: %w", err)
	}

	analysis = strings.TrimSpace(analysis)
	if analysis == "" {
		return Result{}, fmt.Errorf("perspectives analysis: model returned empty content")
	}

	return Result{
		Content:    analysis,
		TokensUsed: usage.Total(),
		Metadata: map[string]any{
			"model":        h.model.Model(),
			"perspectives": perspectives,
		},
	}, nil
}

// configStrings reads a list-of-strings config value, tolerating both
// []string and []any (the shape YAML/CBOR decoding produces).
func configStrings(cfg map[string]any, key string) []string {
	switch v := cfg[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
