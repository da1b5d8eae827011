// Package agent implements the multi-turn orchestration loop: stream a
// generation, execute requested tools concurrently, fold results back
// into the conversation, and repeat until done, capped, or aborted.
package agent

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/bazelment/miniagent/ai"
	"github.com/bazelment/miniagent/tool"
)

// Loop drives turns against one provider over a shared conversation.
// It is not safe for concurrent Run calls; Abort may be called from any
// goroutine.
type Loop struct {
	conv     *ai.Context
	provider ai.Provider
	model    string
	opts     ai.StreamOptions
	tools    *tool.Registry
	logger   *slog.Logger

	state    State
	aborted  atomic.Bool
	mu       sync.Mutex
	handlers map[int]func(LoopEvent)
	nextID   int
}

// LoopConfig bundles the collaborators a Loop needs.
type LoopConfig struct {
	Context  *ai.Context
	Provider ai.Provider
	Model    string
	Options  ai.StreamOptions
	Tools    *tool.Registry
	Logger   *slog.Logger
}

// NewLoop builds a loop, applying defaults for unset fields.
func NewLoop(cfg LoopConfig) *Loop {
	conv := cfg.Context
	if conv == nil {
		conv = &ai.Context{}
	}
	tools := cfg.Tools
	if tools == nil {
		tools = tool.NewRegistry()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(nopHandler{})
	}
	model := cfg.Model
	if model == "" && cfg.Provider != nil {
		model = cfg.Provider.DefaultModel()
	}
	opts := cfg.Options
	if opts.MaxTokens <= 0 {
		opts = ai.DefaultStreamOptions()
	}
	return &Loop{
		conv:     conv,
		provider: cfg.Provider,
		model:    model,
		opts:     opts,
		tools:    tools,
		logger:   logger,
		state:    StateIdle,
		handlers: make(map[int]func(LoopEvent)),
	}
}

// OnEvent registers an observer invoked for every loop notification.
// The returned function removes the observer. Observer panics are
// swallowed and never affect the loop.
func (l *Loop) OnEvent(fn func(LoopEvent)) (remove func()) {
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.handlers[id] = fn
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		delete(l.handlers, id)
		l.mu.Unlock()
	}
}

// Abort requests cooperative termination. It is idempotent and
// non-blocking; the loop observes the flag at iteration boundaries and
// during stream consumption.
func (l *Loop) Abort() {
	l.aborted.Store(true)
}

// State returns the loop's current lifecycle state.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Context returns the conversation the loop mutates.
func (l *Loop) Context() *ai.Context {
	return l.conv
}

func (l *Loop) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

// Run executes one logical turn: append the prompt, then alternate
// generation and tool execution until the backend stops requesting
// tools, the iteration cap is reached, or Abort is observed. It returns
// the most recent assistant message; a transport or protocol failure is
// fatal for the turn and returned without appending a partial message.
func (l *Loop) Run(ctx context.Context, prompt string, maxIterations int) (ai.AssistantMessage, error) {
	if l.provider == nil {
		return ai.AssistantMessage{}, fmt.Errorf("loop has no provider")
	}
	if maxIterations <= 0 {
		maxIterations = 1
	}
	l.aborted.Store(false)
	l.setState(StateIdle)

	l.conv.AddUserMessage(prompt)
	l.emit(TurnStartedEvent{Prompt: prompt})

	defer l.setState(StateIdle)

	for iteration := 1; iteration <= maxIterations && !l.aborted.Load(); iteration++ {
		l.setState(StateStreaming)
		l.emit(StreamStartedEvent{Iteration: iteration})

		message, err := l.streamOnce(ctx)
		if err != nil {
			return ai.AssistantMessage{}, err
		}

		if l.aborted.Load() {
			l.setState(StateAborted)
			l.emit(AbortedEvent{})
			break
		}

		l.conv.AddAssistantMessage(message)
		l.emit(TurnCompletedEvent{Message: message})

		calls := message.ToolCalls()
		if len(calls) == 0 {
			break
		}

		l.setState(StateExecutingTools)
		for _, exec := range l.executeTools(ctx, calls) {
			content := exec.Result
			isError := exec.Error != ""
			if isError {
				content = exec.Error
			}
			l.conv.AddToolResult(exec.ToolCallID, content, isError)
		}

		if l.aborted.Load() {
			l.setState(StateAborted)
			l.emit(AbortedEvent{})
			break
		}
	}

	if msg, ok := l.conv.LastAssistantMessage(); ok {
		return msg, nil
	}
	return ai.AssistantMessage{}, nil
}

// streamOnce requests one generation stream and consumes it to
// completion, forwarding deltas to observers. Aborting stops
// consumption but leaves the underlying stream running; the finished
// message is still collected via Result.
func (l *Loop) streamOnce(ctx context.Context) (ai.AssistantMessage, error) {
	stream := l.provider.Stream(ctx, l.model, l.conv, l.opts)

	for !l.aborted.Load() {
		ev, err := stream.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return ai.AssistantMessage{}, err
		}

		switch e := ev.(type) {
		case ai.TextDeltaEvent:
			l.emit(TextEvent{Delta: e.Delta})
		case ai.ThinkingDeltaEvent:
			l.emit(ThinkingEvent{Delta: e.Delta})
		case ai.ToolCallStartEvent:
			l.emit(ToolCallStartedEvent{Index: e.Index, ID: e.ID, Name: e.Name})
		}
	}

	return stream.Result(ctx)
}

// executeTools fans out one goroutine per call and collects records in
// completion order. Every failure mode settles into an error-tagged
// record; nothing here can fail the turn.
func (l *Loop) executeTools(ctx context.Context, calls []ai.ToolCallBlock) []ToolExecution {
	results := make(chan ToolExecution, len(calls))
	for _, call := range calls {
		go func(call ai.ToolCallBlock) {
			results <- l.executeOne(ctx, call)
		}(call)
	}

	out := make([]ToolExecution, 0, len(calls))
	for range calls {
		exec := <-results
		l.emit(ToolCallFinishedEvent{Execution: exec})
		out = append(out, exec)
	}
	return out
}

// executeOne runs a single tool call. Unknown tools and handler panics
// become error records the model can read and self-correct from.
func (l *Loop) executeOne(ctx context.Context, call ai.ToolCallBlock) (exec ToolExecution) {
	exec = ToolExecution{
		ToolCallID: call.ID,
		ToolName:   call.Name,
		Arguments:  call.Arguments,
	}
	defer func() {
		if r := recover(); r != nil {
			exec.Error = fmt.Sprintf("tool execution panic: %v", r)
		}
		exec.Completed = true
	}()

	t, ok := l.tools.Lookup(call.Name)
	if !ok {
		exec.Error = fmt.Sprintf("unknown tool: %s", call.Name)
		return exec
	}

	result, err := t.Execute(ctx, call.Arguments)
	if err != nil {
		exec.Error = fmt.Sprintf("tool execution error: %v", err)
		return exec
	}
	exec.Result = result
	return exec
}

// emit notifies observers on a copied handler list, isolating panics.
func (l *Loop) emit(ev LoopEvent) {
	l.mu.Lock()
	handlers := make([]func(LoopEvent), 0, len(l.handlers))
	for _, fn := range l.handlers {
		handlers = append(handlers, fn)
	}
	l.mu.Unlock()

	for _, fn := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					l.logger.Warn("loop event handler panicked", "err", r)
				}
			}()
			fn(ev)
		}()
	}
}

// nopHandler is a slog.Handler that discards all output.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h nopHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h nopHandler) WithGroup(string) slog.Handler           { return h }
