package ai

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamTextConcatenation(t *testing.T) {
	s := NewMessageStream()
	s.Push(TextStartEvent{Index: 0})
	s.Push(TextDeltaEvent{Index: 0, Delta: "Hello"})
	s.Push(TextDeltaEvent{Index: 0, Delta: ", "})
	s.Push(TextDeltaEvent{Index: 0, Delta: "world"})
	s.Push(TextEndEvent{Index: 0})
	s.End(nil)

	msg, err := s.Result(context.Background())
	require.NoError(t, err)
	require.Len(t, msg.Content, 1)
	assert.Equal(t, TextBlock{Text: "Hello, world"}, msg.Content[0])
}

func TestStreamToolCallAssembly(t *testing.T) {
	s := NewMessageStream()
	s.Push(ToolCallStartEvent{Index: 1, ID: "call_1"})
	s.Push(ToolCallNameDeltaEvent{Index: 1, Delta: "te"})
	s.Push(ToolCallNameDeltaEvent{Index: 1, Delta: "st"})
	s.Push(ToolCallArgsDeltaEvent{Index: 1, Delta: `{"a":`})
	s.Push(ToolCallArgsDeltaEvent{Index: 1, Delta: `1}`})
	s.Push(ToolCallEndEvent{Index: 1})
	s.End(nil)

	msg, err := s.Result(context.Background())
	require.NoError(t, err)
	require.Len(t, msg.Content, 1)

	call, ok := msg.Content[0].(ToolCallBlock)
	require.True(t, ok)
	assert.Equal(t, "call_1", call.ID)
	assert.Equal(t, "test", call.Name)
	assert.Equal(t, map[string]any{"a": float64(1)}, call.Arguments)
}

func TestStreamMalformedArgumentsDegradeToEmpty(t *testing.T) {
	s := NewMessageStream()
	s.Push(ToolCallStartEvent{Index: 0, ID: "call_1", Name: "broken"})
	s.Push(ToolCallArgsDeltaEvent{Index: 0, Delta: `{"a":`})
	s.Push(ToolCallEndEvent{Index: 0})
	s.End(nil)

	msg, err := s.Result(context.Background())
	require.NoError(t, err)
	require.Len(t, msg.Content, 1)

	call := msg.Content[0].(ToolCallBlock)
	assert.Equal(t, map[string]any{}, call.Arguments)
}

func TestStreamFailSurfacesCause(t *testing.T) {
	cause := errors.New("connection reset")
	s := NewMessageStream()
	s.Push(TextDeltaEvent{Index: 0, Delta: "partial"})
	s.Fail(cause)

	_, err := s.Result(context.Background())
	assert.ErrorIs(t, err, cause)

	// Repeated calls keep raising the same cause.
	_, err = s.Result(context.Background())
	assert.ErrorIs(t, err, cause)
}

func TestStreamPushAfterTerminalIsNoop(t *testing.T) {
	s := NewMessageStream()
	s.Fail(errors.New("boom"))
	s.Push(TextDeltaEvent{Index: 0, Delta: "late"})
	s.End(nil)

	_, err := s.Result(context.Background())
	assert.Error(t, err)
}

func TestStreamEndIsIdempotent(t *testing.T) {
	s := NewMessageStream()
	s.Push(TextDeltaEvent{Index: 0, Delta: "one"})
	s.End(nil)
	s.End(&AssistantMessage{Content: []ContentBlock{TextBlock{Text: "two"}}})

	msg, err := s.Result(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "one", msg.Text())
}

func TestStreamEmptyEndMaterializesEmptyMessage(t *testing.T) {
	s := NewMessageStream()
	s.End(nil)

	msg, err := s.Result(context.Background())
	require.NoError(t, err)
	assert.Empty(t, msg.Content)
	assert.Equal(t, StopEndTurn, msg.StopReason)
}

func TestStreamCrossKindBlockOrdering(t *testing.T) {
	// Blocks are materialized text-first then thinking then tool calls,
	// each by ascending index, regardless of arrival order.
	s := NewMessageStream()
	s.Push(ToolCallStartEvent{Index: 0, ID: "call_1", Name: "lookup"})
	s.Push(ToolCallEndEvent{Index: 0})
	s.Push(ThinkingDeltaEvent{Index: 1, Delta: "hm"})
	s.Push(TextDeltaEvent{Index: 2, Delta: "answer"})
	s.End(nil)

	msg, err := s.Result(context.Background())
	require.NoError(t, err)
	require.Len(t, msg.Content, 3)
	assert.IsType(t, TextBlock{}, msg.Content[0])
	assert.IsType(t, ThinkingBlock{}, msg.Content[1])
	assert.IsType(t, ToolCallBlock{}, msg.Content[2])
}

func TestStreamNextYieldsEventsThenEOF(t *testing.T) {
	s := NewMessageStream()
	s.Push(TextStartEvent{Index: 0})
	s.Push(TextDeltaEvent{Index: 0, Delta: "hi"})
	s.End(nil)

	ctx := context.Background()
	ev, err := s.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, TextStartEvent{Index: 0}, ev)

	ev, err = s.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, TextDeltaEvent{Index: 0, Delta: "hi"}, ev)

	_, err = s.Next(ctx)
	assert.Equal(t, io.EOF, err)
}

func TestStreamNextSurfacesError(t *testing.T) {
	cause := errors.New("bad wire data")
	s := NewMessageStream()
	s.Fail(cause)

	_, err := s.Next(context.Background())
	assert.ErrorIs(t, err, cause)
}

func TestStreamNextBlocksUntilPush(t *testing.T) {
	s := NewMessageStream()
	go func() {
		time.Sleep(10 * time.Millisecond)
		s.Push(TextDeltaEvent{Index: 0, Delta: "late"})
		s.End(nil)
	}()

	ev, err := s.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TextDeltaEvent{Index: 0, Delta: "late"}, ev)
}

func TestStreamNextHonorsContextCancellation(t *testing.T) {
	s := NewMessageStream()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStreamSubscribersReceiveEvents(t *testing.T) {
	s := NewMessageStream()
	var seen []Event
	remove := s.Subscribe(func(ev Event) {
		seen = append(seen, ev)
	})

	s.Push(TextDeltaEvent{Index: 0, Delta: "a"})
	remove()
	s.Push(TextDeltaEvent{Index: 0, Delta: "b"})
	s.End(nil)

	require.Len(t, seen, 1)
	assert.Equal(t, TextDeltaEvent{Index: 0, Delta: "a"}, seen[0])
}

func TestStreamSubscriberPanicIsIsolated(t *testing.T) {
	s := NewMessageStream()
	s.Subscribe(func(Event) { panic("bad subscriber") })

	var count int
	s.Subscribe(func(Event) { count++ })

	assert.NotPanics(t, func() {
		s.Push(TextDeltaEvent{Index: 0, Delta: "x"})
	})
	assert.Equal(t, 1, count)

	s.End(nil)
	msg, err := s.Result(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "x", msg.Text())
}

func TestStreamUsageAndStopReasonLatch(t *testing.T) {
	s := NewMessageStream()
	s.Push(UsageEvent{Usage: Usage{InputTokens: 5, OutputTokens: 1}})
	s.Push(UsageEvent{Usage: Usage{InputTokens: 5, OutputTokens: 9}})
	s.Push(StopReasonEvent{Reason: StopToolUse})
	s.End(nil)

	msg, err := s.Result(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Usage{InputTokens: 5, OutputTokens: 9}, msg.Usage)
	assert.Equal(t, StopToolUse, msg.StopReason)
}

func TestStreamDoneChannel(t *testing.T) {
	s := NewMessageStream()
	select {
	case <-s.Done():
		t.Fatal("done closed before terminal state")
	default:
	}

	s.End(nil)
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("done not closed after End")
	}
}
