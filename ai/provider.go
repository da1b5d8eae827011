package ai

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ErrEmptyContext reports a stream request with no conversation messages.
// It is a contract violation surfaced before any network activity.
var ErrEmptyContext = errors.New("context must contain at least one message")

// StreamOptions configures a single generation request.
type StreamOptions struct {
	Temperature   float64
	MaxTokens     int
	TopP          float64
	StopSequences []string
}

// DefaultStreamOptions returns the options used when callers pass the
// zero value.
func DefaultStreamOptions() StreamOptions {
	return StreamOptions{
		Temperature: 0.7,
		MaxTokens:   4096,
		TopP:        1.0,
	}
}

// Provider is the pluggable interface for generation backends. Stream
// must return the stream synchronously and perform the network exchange
// in a background goroutine owned by the stream, so callers can begin
// consuming before the request completes. All transport, serialization,
// and protocol failures are delivered through the stream's error
// channel, never as panics.
type Provider interface {
	// Name returns the backend identifier (e.g. "anthropic", "openai").
	Name() string

	// DefaultModel returns the model used when none is configured.
	DefaultModel() string

	// Stream starts a generation turn against the given conversation.
	Stream(ctx context.Context, model string, conv *Context, opts StreamOptions) *MessageStream
}

// ValidateContext checks the non-empty precondition shared by all
// providers.
func ValidateContext(conv *Context) error {
	if conv == nil || len(conv.Messages) == 0 {
		return ErrEmptyContext
	}
	return nil
}

// Registry is an explicit, constructed-at-startup provider lookup table.
// There is no ambient global registration.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry builds a registry from the given providers, keyed by name.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// Resolve returns the provider registered under name, or an error naming
// the unknown backend.
func (r *Registry) Resolve(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q (have %v)", name, r.Names())
	}
	return p, nil
}

// Names returns the registered provider names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
