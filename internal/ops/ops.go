// Package ops defines the transformation operation contract and the
// registry the job processor dispatches through.
package ops

import (
	"context"
	"sort"

	"github.com/raphaelgruber/reweave-go/internal/llm"
	"github.com/raphaelgruber/reweave-go/internal/models"
)

// Result is what a handler produces for one source chunk.
type Result struct {
	// Content of the new chunk derived from the source.
	Content string

	// TokensUsed by the operation, zero for non-generative handlers.
	TokensUsed int

	// Metadata carries handler-specific extras recorded on the
	// transformation's audit row (model name, scores, ...).
	Metadata map[string]any
}

// Handler implements one named transformation. Implementations must be safe
// for concurrent use: distinct jobs dispatch through the same registry.
type Handler interface {
	Apply(ctx context.Context, source models.Chunk, cfg map[string]any) (Result, error)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, source models.Chunk, cfg map[string]any) (Result, error)

// Apply implements Handler.
func (f HandlerFunc) Apply(ctx context.Context, source models.Chunk, cfg map[string]any) (Result, error) {
	return f(ctx, source, cfg)
}

// Registry maps operation names to handlers. It is an explicit value passed
// into the processor at construction, never a process-wide singleton, so
// tests can substitute fakes.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds a handler to an operation name, replacing any previous
// binding.
func (r *Registry) Register(name string, h Handler) {
	r.handlers[name] = h
}

// Lookup returns the handler for an operation name. The processor treats a
// miss as a per-item failure, not a crash.
func (r *Registry) Lookup(name string) (Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// Operations returns the registered operation names, sorted.
func (r *Registry) Operations() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Operation names for the built-in handlers.
const (
	OpPersona      = "persona"
	OpPerspectives = "perspectives"
	OpDetect       = "detect"
	OpFormat       = "format"
)

// DefaultRegistry wires the built-in handlers. model may be nil, in which
// case only the non-generative handlers are registered.
func DefaultRegistry(model *llm.Model) *Registry {
	r := NewRegistry()
	r.Register(OpDetect, NewDetectHandler())
	r.Register(OpFormat, NewFormatHandler())
	if model != nil {
		r.Register(OpPersona, NewPersonaHandler(model))
		r.Register(OpPerspectives, NewPerspectivesHandler(model))
	}
	return r
}
