package ops

import (
	"context"
	"fmt"
	"testing"

	"github.com/raphaelgruber/reweave-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunk(content string) models.Chunk {
	return models.Chunk{Content: content}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	echo := HandlerFunc(func(_ context.Context, source models.Chunk, _ map[string]any) (Result, error) {
		return Result{Content: source.Content}, nil
	})
	r.Register("echo", echo)

	t.Run("lookup hit", func(t *testing.T) {
		h, ok := r.Lookup("echo")
		require.True(t, ok)

		result, err := h.Apply(context.Background(), chunk("hello"), nil)
		require.NoError(t, err)
		assert.Equal(t, "hello", result.Content)
	})

	t.Run("lookup miss", func(t *testing.T) {
		_, ok := r.Lookup("missing")
		assert.False(t, ok)
	})

	t.Run("register replaces", func(t *testing.T) {
		r.Register("echo", HandlerFunc(func(_ context.Context, _ models.Chunk, _ map[string]any) (Result, error) {
			return Result{Content: "replaced"}, nil
		}))
		h, _ := r.Lookup("echo")
		result, _ := h.Apply(context.Background(), chunk("hello"), nil)
		assert.Equal(t, "replaced", result.Content)
	})

	t.Run("operations sorted", func(t *testing.T) {
		r.Register("alpha", echo)
		r.Register("zulu", echo)
		assert.Equal(t, []string{"alpha", "echo", "zulu"}, r.Operations())
	})
}

func TestDefaultRegistryWithoutModel(t *testing.T) {
	r := DefaultRegistry(nil)

	// Generative handlers need a model; the deterministic ones do not.
	assert.Equal(t, []string{OpDetect, OpFormat}, r.Operations())
}

func TestFormatHandler(t *testing.T) {
	h := NewFormatHandler()
	ctx := context.Background()

	tests := []struct {
		name   string
		input  string
		target string
		want   string
	}{
		{
			name:   "default is plain",
			input:  "# Heading\n\nSome **bold** text",
			target: "",
			want:   "Heading Some bold text",
		},
		{
			name:   "plain strips markers",
			input:  "> quoted\n`code` here",
			target: "plain",
			want:   "quoted code here",
		},
		{
			name:   "markdown normalizes paragraphs",
			input:  "first paragraph\n\n\n\nsecond paragraph",
			target: "markdown",
			want:   "first paragraph\n\nsecond paragraph",
		},
		{
			name:   "quote prefixes lines",
			input:  "line one\nline two",
			target: "quote",
			want:   "> line one\n> line two",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := map[string]any{}
			if tt.target != "" {
				cfg["target_format"] = tt.target
			}

			result, err := h.Apply(ctx, chunk(tt.input), cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Content)
			if tt.target != "" {
				assert.Equal(t, tt.target, result.Metadata["target_format"])
			}
		})
	}

	t.Run("unknown target", func(t *testing.T) {
		_, err := h.Apply(ctx, chunk("text"), map[string]any{"target_format": "pdf"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown target_format")
	})

	t.Run("empty source", func(t *testing.T) {
		_, err := h.Apply(ctx, chunk("   \n  "), nil)
		require.Error(t, err)
	})
}

func TestDetectHandler(t *testing.T) {
	h := NewDetectHandler()
	ctx := context.Background()

	t.Run("returns score and verdict", func(t *testing.T) {
		result, err := h.Apply(ctx, chunk("The quick brown fox jumps over the lazy dog. It barked."), nil)
		require.NoError(t, err)

		score, ok := result.Metadata["score"].(float64)
		require.True(t, ok, "score metadata must be a float")
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
		assert.NotEmpty(t, result.Metadata["verdict"])
		assert.Contains(t, result.Content, "Machine-text likelihood")
	})

	t.Run("empty source", func(t *testing.T) {
		_, err := h.Apply(ctx, chunk(""), nil)
		require.Error(t, err)
	})

	t.Run("uniform hedged text scores higher than varied prose", func(t *testing.T) {
		// Identical sentence rhythm, repeated vocabulary, hedging markers
		generated := "It is important to note that the system works well. " +
			"Furthermore the system works very well indeed. " +
			"Additionally the system works quite well overall. " +
			"In conclusion the system works well as noted."

		// Uneven rhythm and varied vocabulary
		human := "Dog barked. The neighbor leaned over our crooked fence yesterday, " +
			"complaining at length about the racket my beagle made chasing squirrels. " +
			"I shrugged. What can you do?"

		genResult, err := h.Apply(ctx, chunk(generated), nil)
		require.NoError(t, err)
		humanResult, err := h.Apply(ctx, chunk(human), nil)
		require.NoError(t, err)

		genScore := genResult.Metadata["score"].(float64)
		humanScore := humanResult.Metadata["score"].(float64)
		assert.Greater(t, genScore, humanScore)
	})

	t.Run("deterministic", func(t *testing.T) {
		text := "Some arbitrary paragraph. It has a couple of sentences. Nothing special here."
		a, err := h.Apply(ctx, chunk(text), nil)
		require.NoError(t, err)
		b, err := h.Apply(ctx, chunk(text), nil)
		require.NoError(t, err)
		assert.Equal(t, a.Metadata["score"], b.Metadata["score"])
	})
}

func TestDetectScoreBounds(t *testing.T) {
	samples := []string{
		"one",
		"a a a a a a a a a a. a a a a a a a a a a. a a a a a a a a a a.",
		"Furthermore, it is important to note that overall, additionally, in conclusion.",
		"short. short. short. short. short.",
	}
	for i, s := range samples {
		t.Run(fmt.Sprintf("sample_%d", i), func(t *testing.T) {
			score := detectScore(s)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)
		})
	}
}

func TestConfigStrings(t *testing.T) {
	t.Run("string slice", func(t *testing.T) {
		got := configStrings(map[string]any{"k": []string{"a", "b"}}, "k")
		assert.Equal(t, []string{"a", "b"}, got)
	})

	t.Run("any slice from YAML", func(t *testing.T) {
		got := configStrings(map[string]any{"k": []any{"a", "b"}}, "k")
		assert.Equal(t, []string{"a", "b"}, got)
	})

	t.Run("missing key", func(t *testing.T) {
		assert.Nil(t, configStrings(map[string]any{}, "k"))
	})
}
