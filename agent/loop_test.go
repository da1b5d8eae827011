package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazelment/miniagent/ai"
	"github.com/bazelment/miniagent/tool"
)

// fakeProvider replays one scripted assistant message per Stream call.
type fakeProvider struct {
	mu       sync.Mutex
	script   []ai.AssistantMessage
	err      error
	requests int
}

func (f *fakeProvider) Name() string         { return "fake" }
func (f *fakeProvider) DefaultModel() string { return "fake-1" }

func (f *fakeProvider) Stream(ctx context.Context, model string, conv *ai.Context, opts ai.StreamOptions) *ai.MessageStream {
	f.mu.Lock()
	call := f.requests
	f.requests++
	f.mu.Unlock()

	stream := ai.NewMessageStream()
	if f.err != nil {
		stream.Fail(f.err)
		return stream
	}
	msg := f.script[call]
	for i, block := range msg.Content {
		switch b := block.(type) {
		case ai.TextBlock:
			stream.Push(ai.TextStartEvent{Index: i})
			stream.Push(ai.TextDeltaEvent{Index: i, Delta: b.Text})
			stream.Push(ai.TextEndEvent{Index: i})
		case ai.ToolCallBlock:
			stream.Push(ai.ToolCallStartEvent{Index: i, ID: b.ID, Name: b.Name})
			stream.Push(ai.ToolCallEndEvent{Index: i})
		}
	}
	stream.Push(ai.StopReasonEvent{Reason: msg.StopReason})
	stream.End(&msg)
	return stream
}

func (f *fakeProvider) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

func textMessage(text string) ai.AssistantMessage {
	return ai.AssistantMessage{
		Content:    []ai.ContentBlock{ai.TextBlock{Text: text}},
		StopReason: ai.StopEndTurn,
	}
}

func toolMessage(calls ...ai.ToolCallBlock) ai.AssistantMessage {
	var content []ai.ContentBlock
	for _, call := range calls {
		content = append(content, call)
	}
	return ai.AssistantMessage{Content: content, StopReason: ai.StopToolUse}
}

func echoTool(t *testing.T, registry *tool.Registry, name string) {
	t.Helper()
	err := registry.Register(tool.Func{
		ToolName: name,
		Schema:   map[string]any{"type": "object"},
		Run: func(_ context.Context, args map[string]any) (string, error) {
			return "ok:" + name, nil
		},
	})
	require.NoError(t, err)
}

func TestRunPlainTextTurn(t *testing.T) {
	provider := &fakeProvider{script: []ai.AssistantMessage{textMessage("done")}}
	loop := NewLoop(LoopConfig{Provider: provider})

	msg, err := loop.Run(context.Background(), "hello", 5)
	require.NoError(t, err)
	assert.Equal(t, "done", msg.Text())
	assert.Equal(t, 1, provider.requestCount())

	// Conversation holds the user prompt and the assistant reply.
	require.Len(t, loop.Context().Messages, 2)
	assert.Equal(t, StateIdle, loop.State())
}

func TestRunExecutesToolsThenContinues(t *testing.T) {
	provider := &fakeProvider{script: []ai.AssistantMessage{
		toolMessage(
			ai.ToolCallBlock{ID: "c1", Name: "alpha", Arguments: map[string]any{}},
			ai.ToolCallBlock{ID: "c2", Name: "beta", Arguments: map[string]any{}},
		),
		textMessage("finished"),
	}}
	registry := tool.NewRegistry()
	echoTool(t, registry, "alpha")
	echoTool(t, registry, "beta")

	loop := NewLoop(LoopConfig{Provider: provider, Tools: registry})
	msg, err := loop.Run(context.Background(), "go", 5)
	require.NoError(t, err)
	assert.Equal(t, "finished", msg.Text())
	assert.Equal(t, 2, provider.requestCount())

	// Both tool results appear in the context before the second
	// generation request, in some completion order.
	messages := loop.Context().Messages
	require.Len(t, messages, 5)
	ids := map[string]bool{}
	for _, m := range messages[2:4] {
		result, ok := m.(ai.ToolResultMessage)
		require.True(t, ok)
		assert.False(t, result.IsError)
		ids[result.ToolCallID] = true
	}
	assert.True(t, ids["c1"])
	assert.True(t, ids["c2"])
}

func TestRunStopsAtIterationCap(t *testing.T) {
	withTool := toolMessage(ai.ToolCallBlock{ID: "c1", Name: "alpha", Arguments: map[string]any{}})
	provider := &fakeProvider{script: []ai.AssistantMessage{withTool, withTool}}
	registry := tool.NewRegistry()
	echoTool(t, registry, "alpha")

	loop := NewLoop(LoopConfig{Provider: provider, Tools: registry})
	msg, err := loop.Run(context.Background(), "go", 1)
	require.NoError(t, err)

	assert.Equal(t, 1, provider.requestCount())
	assert.Equal(t, ai.StopToolUse, msg.StopReason)
}

func TestRunUnknownToolBecomesErrorResult(t *testing.T) {
	provider := &fakeProvider{script: []ai.AssistantMessage{
		toolMessage(ai.ToolCallBlock{ID: "c1", Name: "nope", Arguments: map[string]any{}}),
		textMessage("recovered"),
	}}
	loop := NewLoop(LoopConfig{Provider: provider})

	msg, err := loop.Run(context.Background(), "go", 5)
	require.NoError(t, err)
	assert.Equal(t, "recovered", msg.Text())

	var result ai.ToolResultMessage
	for _, m := range loop.Context().Messages {
		if r, ok := m.(ai.ToolResultMessage); ok {
			result = r
		}
	}
	assert.True(t, result.IsError)
	assert.Contains(t, result.Content, "unknown tool: nope")
}

func TestRunToolPanicBecomesErrorResult(t *testing.T) {
	provider := &fakeProvider{script: []ai.AssistantMessage{
		toolMessage(ai.ToolCallBlock{ID: "c1", Name: "bomb", Arguments: map[string]any{}}),
		textMessage("ok"),
	}}
	registry := tool.NewRegistry()
	require.NoError(t, registry.Register(tool.Func{
		ToolName: "bomb",
		Schema:   map[string]any{"type": "object"},
		Run: func(context.Context, map[string]any) (string, error) {
			panic("kaboom")
		},
	}))

	loop := NewLoop(LoopConfig{Provider: provider, Tools: registry})
	msg, err := loop.Run(context.Background(), "go", 5)
	require.NoError(t, err)
	assert.Equal(t, "ok", msg.Text())

	var result ai.ToolResultMessage
	for _, m := range loop.Context().Messages {
		if r, ok := m.(ai.ToolResultMessage); ok {
			result = r
		}
	}
	assert.True(t, result.IsError)
	assert.Contains(t, result.Content, "kaboom")
}

func TestRunTransportErrorIsFatalForTurn(t *testing.T) {
	cause := errors.New("connection refused")
	provider := &fakeProvider{err: cause}
	loop := NewLoop(LoopConfig{Provider: provider})

	_, err := loop.Run(context.Background(), "go", 5)
	assert.ErrorIs(t, err, cause)

	// No partial assistant message was appended.
	for _, m := range loop.Context().Messages {
		_, isAssistant := m.(ai.AssistantMessage)
		assert.False(t, isAssistant)
	}
	assert.Equal(t, StateIdle, loop.State())
}

func TestAbortDuringToolsPreventsNextTurn(t *testing.T) {
	provider := &fakeProvider{script: []ai.AssistantMessage{
		toolMessage(ai.ToolCallBlock{ID: "c1", Name: "slow", Arguments: map[string]any{}}),
		textMessage("never streamed"),
	}}

	registry := tool.NewRegistry()
	var loop *Loop
	require.NoError(t, registry.Register(tool.Func{
		ToolName: "slow",
		Schema:   map[string]any{"type": "object"},
		Run: func(context.Context, map[string]any) (string, error) {
			loop.Abort()
			return "ran to completion", nil
		},
	}))
	loop = NewLoop(LoopConfig{Provider: provider, Tools: registry})

	msg, err := loop.Run(context.Background(), "go", 5)
	require.NoError(t, err)

	// The in-flight tool still settled and its result was appended, but
	// no follow-up generation turn was started.
	assert.Equal(t, 1, provider.requestCount())
	assert.Equal(t, ai.StopToolUse, msg.StopReason)

	var found bool
	for _, m := range loop.Context().Messages {
		if r, ok := m.(ai.ToolResultMessage); ok {
			found = true
			assert.Equal(t, "ran to completion", r.Content)
		}
	}
	assert.True(t, found)
}

func TestAbortIsIdempotent(t *testing.T) {
	provider := &fakeProvider{script: []ai.AssistantMessage{textMessage("hi")}}
	loop := NewLoop(LoopConfig{Provider: provider})
	loop.Abort()
	loop.Abort()

	// Run resets the abort flag on entry.
	msg, err := loop.Run(context.Background(), "go", 5)
	require.NoError(t, err)
	assert.Equal(t, "hi", msg.Text())
}

func TestLoopEventsAreEmittedAndPanicsIsolated(t *testing.T) {
	provider := &fakeProvider{script: []ai.AssistantMessage{textMessage("hello")}}
	loop := NewLoop(LoopConfig{Provider: provider})

	loop.OnEvent(func(LoopEvent) { panic("bad handler") })

	var types []LoopEventType
	var deltas []string
	loop.OnEvent(func(ev LoopEvent) {
		types = append(types, ev.Type())
		if text, ok := ev.(TextEvent); ok {
			deltas = append(deltas, text.Delta)
		}
	})

	_, err := loop.Run(context.Background(), "go", 5)
	require.NoError(t, err)

	assert.Contains(t, types, LoopEventTurnStarted)
	assert.Contains(t, types, LoopEventStreamStarted)
	assert.Contains(t, types, LoopEventTurnCompleted)
	assert.Equal(t, []string{"hello"}, deltas)
}

func TestToolResultsAppendInCompletionOrder(t *testing.T) {
	provider := &fakeProvider{script: []ai.AssistantMessage{
		toolMessage(
			ai.ToolCallBlock{ID: "slow", Name: "slow", Arguments: map[string]any{}},
			ai.ToolCallBlock{ID: "fast", Name: "fast", Arguments: map[string]any{}},
		),
		textMessage("done"),
	}}

	registry := tool.NewRegistry()
	fastDone := make(chan struct{})
	require.NoError(t, registry.Register(tool.Func{
		ToolName: "slow",
		Schema:   map[string]any{"type": "object"},
		Run: func(ctx context.Context, _ map[string]any) (string, error) {
			select {
			case <-fastDone:
			case <-time.After(time.Second):
			}
			return "slow", nil
		},
	}))
	require.NoError(t, registry.Register(tool.Func{
		ToolName: "fast",
		Schema:   map[string]any{"type": "object"},
		Run: func(context.Context, map[string]any) (string, error) {
			defer close(fastDone)
			return "fast", nil
		},
	}))

	loop := NewLoop(LoopConfig{Provider: provider, Tools: registry})
	_, err := loop.Run(context.Background(), "go", 5)
	require.NoError(t, err)

	var order []string
	for _, m := range loop.Context().Messages {
		if r, ok := m.(ai.ToolResultMessage); ok {
			order = append(order, r.ToolCallID)
		}
	}
	assert.Equal(t, []string{"fast", "slow"}, order)
}
