// Package tool defines the capability interface offered to backends and
// a registry for looking tools up by name at execution time.
package tool

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Tool is one capability the assistant can invoke. InputSchema is a
// JSON-schema object describing the arguments.
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]any
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// Func adapts a plain function into a Tool.
type Func struct {
	ToolName        string
	ToolDescription string
	Schema          map[string]any
	Run             func(ctx context.Context, args map[string]any) (string, error)
}

// Name returns the tool name.
func (f Func) Name() string { return f.ToolName }

// Description returns the tool description.
func (f Func) Description() string { return f.ToolDescription }

// InputSchema returns the argument schema.
func (f Func) InputSchema() map[string]any { return f.Schema }

// Execute runs the wrapped function.
func (f Func) Execute(ctx context.Context, args map[string]any) (string, error) {
	return f.Run(ctx, args)
}

// Registry holds tools by name. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool, replacing any previous tool with the same name.
func (r *Registry) Register(t Tool) error {
	if t.Name() == "" {
		return fmt.Errorf("tool has empty name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
	return nil
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns all registered tools sorted by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
