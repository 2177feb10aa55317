package ops

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/raphaelgruber/reweave-go/internal/models"
)

// DetectHandler scores how machine-generated a chunk reads, using text
// statistics only. No LLM involved; the score is a heuristic, not a verdict.
type DetectHandler struct{}

// NewDetectHandler creates the heuristic detection handler.
func NewDetectHandler() *DetectHandler {
	return &DetectHandler{}
}

// Apply implements Handler. The result chunk is a short report; the raw
// score lands in the metadata.
func (h *DetectHandler) Apply(_ context.Context, source models.Chunk, _ map[string]any) (Result, error) {
	text := strings.TrimSpace(source.Content)
	if text == "" {
		return Result{}, fmt.Errorf("detect: source chunk is empty")
	}

	score := detectScore(text)

	verdict := "likely human-written"
	switch {
	case score >= 0.7:
		verdict = "likely machine-generated"
	case score >= 0.4:
		verdict = "uncertain"
	}

	report := fmt.Sprintf("Machine-text likelihood: %.2f (%s)", score, verdict)

	return Result{
		Content: report,
		Metadata: map[string]any{
			"score":   score,
			"verdict": verdict,
		},
	}, nil
}

// detectScore combines three signals into [0, 1]: low sentence-length
// variance, low vocabulary richness and hedging-phrase density all push the
// score up. Uniform sentence rhythm and a narrow vocabulary are the classic
// generated-text tells.
func detectScore(text string) float64 {
	sentences := splitSentences(text)
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0
	}

	// Signal 1: sentence length uniformity
	uniformity := 0.5
	if len(sentences) >= 3 {
		lengths := make([]float64, len(sentences))
		var sum float64
		for i, s := range sentences {
			lengths[i] = float64(len(strings.Fields(s)))
			sum += lengths[i]
		}
		mean := sum / float64(len(lengths))
		var variance float64
		for _, l := range lengths {
			variance += (l - mean) * (l - mean)
		}
		variance /= float64(len(lengths))
		if mean > 0 {
			// Coefficient of variation below ~0.3 reads as machine rhythm
			cv := math.Sqrt(variance) / mean
			uniformity = clamp01(1 - cv/0.6)
		}
	}

	// Signal 2: vocabulary richness (type-token ratio)
	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		unique[strings.ToLower(strings.Trim(w, ".,;:!?\"'"))] = struct{}{}
	}
	ttr := float64(len(unique)) / float64(len(words))
	narrowness := clamp01(1 - ttr)

	// Signal 3: hedging phrases common in generated prose
	hedges := []string{
		"it is important to note", "in conclusion", "overall,",
		"furthermore", "additionally", "it's worth noting", "delve",
	}
	lower := strings.ToLower(text)
	var hedgeHits float64
	for _, h := range hedges {
		hedgeHits += float64(strings.Count(lower, h))
	}
	hedging := clamp01(hedgeHits / math.Max(1, float64(len(sentences))) * 2)

	return clamp01(0.45*uniformity + 0.35*narrowness + 0.2*hedging)
}

func splitSentences(text string) []string {
	raw := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	sentences := make([]string, 0, len(raw))
	for _, s := range raw {
		if strings.TrimSpace(s) != "" {
			sentences = append(sentences, strings.TrimSpace(s))
		}
	}
	return sentences
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
