package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bazelment/miniagent/ai"
	"github.com/bazelment/miniagent/tool"
)

// Agent owns a conversation, a resolved provider, and a tool registry,
// and exposes a prompt-in, message-out surface over the loop.
type Agent struct {
	loop  *Loop
	tools *tool.Registry

	maxIterations int
}

// Options configures a new Agent.
type Options struct {
	Providers     *ai.Registry
	Provider      string // backend identifier, resolved against Providers
	Model         string // empty means the provider's default
	SystemPrompt  string
	Stream        ai.StreamOptions
	MaxIterations int
	Logger        *slog.Logger
}

const defaultMaxIterations = 20

// New builds an Agent. Resolving an unknown backend identifier is the
// only construction error.
func New(opts Options) (*Agent, error) {
	if opts.Providers == nil {
		return nil, fmt.Errorf("agent requires a provider registry")
	}
	provider, err := opts.Providers.Resolve(opts.Provider)
	if err != nil {
		return nil, err
	}

	model := opts.Model
	if model == "" {
		model = provider.DefaultModel()
	}
	maxIterations := opts.MaxIterations
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}

	tools := tool.NewRegistry()
	conv := &ai.Context{SystemPrompt: opts.SystemPrompt}

	return &Agent{
		loop: NewLoop(LoopConfig{
			Context:  conv,
			Provider: provider,
			Model:    model,
			Options:  opts.Stream,
			Tools:    tools,
			Logger:   opts.Logger,
		}),
		tools:         tools,
		maxIterations: maxIterations,
	}, nil
}

// AddTool registers a tool and declares its schema to the backend.
func (a *Agent) AddTool(t tool.Tool) error {
	if err := a.tools.Register(t); err != nil {
		return err
	}
	a.loop.Context().Tools = append(a.loop.Context().Tools, ai.Tool{
		Name:        t.Name(),
		Description: t.Description(),
		InputSchema: t.InputSchema(),
	})
	return nil
}

// OnEvent registers an observer for loop notifications.
func (a *Agent) OnEvent(fn func(LoopEvent)) (remove func()) {
	return a.loop.OnEvent(fn)
}

// Prompt runs one logical turn and returns the final assistant message.
func (a *Agent) Prompt(ctx context.Context, text string) (ai.AssistantMessage, error) {
	return a.loop.Run(ctx, text, a.maxIterations)
}

// Abort requests cooperative termination of the in-flight turn.
func (a *Agent) Abort() {
	a.loop.Abort()
}

// Messages returns the conversation so far.
func (a *Agent) Messages() []ai.Message {
	return a.loop.Context().Messages
}
