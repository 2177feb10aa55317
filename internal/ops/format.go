package ops

import (
	"context"
	"fmt"
	"strings"

	"github.com/raphaelgruber/reweave-go/internal/models"
)

// FormatHandler deterministically reformats a chunk.
//
// Config key: "target_format" ("plain"|"markdown"|"quote", default "plain").
type FormatHandler struct{}

// NewFormatHandler creates the reformat handler.
func NewFormatHandler() *FormatHandler {
	return &FormatHandler{}
}

// Apply implements Handler.
func (h *FormatHandler) Apply(_ context.Context, source models.Chunk, cfg map[string]any) (Result, error) {
	target, _ := cfg["target_format"].(string)
	if target == "" {
		target = "plain"
	}

	text := strings.TrimSpace(source.Content)
	if text == "" {
		return Result{}, fmt.Errorf("format: source chunk is empty")
	}

	var out string
	switch target {
	case "plain":
		out = toPlain(text)
	case "markdown":
		out = toMarkdown(text)
	case "quote":
		out = toQuote(text)
	default:
		return Result{}, fmt.Errorf("format: unknown target_format %q", target)
	}

	return Result{
		Content: out,
		Metadata: map[string]any{
			"target_format": target,
		},
	}, nil
}

// toPlain collapses runs of whitespace and strips minimal markdown markers.
func toPlain(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "#> ")
		line = strings.ReplaceAll(line, "**", "")
		line = strings.ReplaceAll(line, "`", "")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, " ")
}

// toMarkdown turns paragraph breaks into markdown paragraphs.
func toMarkdown(text string) string {
	paragraphs := strings.Split(text, "\n\n")
	out := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n\n")
}

// toQuote prefixes every line with a blockquote marker.
func toQuote(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = "> " + line
	}
	return strings.Join(lines, "\n")
}
