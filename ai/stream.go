package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
)

// ErrNoResult is returned by Result when a stream ends without a message.
var ErrNoResult = errors.New("stream ended without result")

// toolCallBuffer accumulates the pieces of one tool call by index.
type toolCallBuffer struct {
	id   string
	name strings.Builder
	args strings.Builder
}

// MessageStream is an ordered, single-consumer, multi-subscriber stream of
// canonical events that assembles a finished AssistantMessage as events
// arrive. The producer side (Push/End/Fail) is owned by exactly one
// adapter goroutine; the consumer side pulls via Next or Result.
//
// All accumulation happens on the producer side before an event is
// queued, so the consumer only ever observes immutable event values.
type MessageStream struct {
	mu    sync.Mutex
	queue []Event
	wake  chan struct{} // closed and replaced on every enqueue
	done  chan struct{} // closed once the stream reaches a terminal state

	subs    map[int]func(Event)
	nextSub int

	terminal bool
	result   *AssistantMessage
	err      error

	textBufs     map[int]*strings.Builder
	thinkingBufs map[int]*strings.Builder
	toolBufs     map[int]*toolCallBuffer
	usage        Usage
	stopReason   StopReason
}

// NewMessageStream creates an empty stream ready for a producer.
func NewMessageStream() *MessageStream {
	return &MessageStream{
		wake:         make(chan struct{}),
		done:         make(chan struct{}),
		subs:         make(map[int]func(Event)),
		textBufs:     make(map[int]*strings.Builder),
		thinkingBufs: make(map[int]*strings.Builder),
		toolBufs:     make(map[int]*toolCallBuffer),
		stopReason:   StopEndTurn,
	}
}

// Push appends an event to the stream and broadcasts it to subscribers.
// It never blocks and is a silent no-op once the stream is terminal.
func (s *MessageStream) Push(ev Event) {
	s.mu.Lock()
	if s.terminal {
		s.mu.Unlock()
		return
	}
	s.accumulate(ev)
	s.enqueueLocked(ev)
	subs := s.snapshotSubsLocked()
	s.mu.Unlock()

	for _, sub := range subs {
		notify(sub, ev)
	}
}

// End transitions the stream to terminal-completed. When msg is nil the
// finished message is materialized from the accumulated buffers. A
// second call is a no-op.
func (s *MessageStream) End(msg *AssistantMessage) {
	s.mu.Lock()
	if s.terminal {
		s.mu.Unlock()
		return
	}
	if msg == nil {
		built := s.buildMessageLocked()
		msg = &built
	}
	s.result = msg
	s.terminal = true
	s.enqueueLocked(DoneEvent{Message: msg})
	close(s.done)
	s.mu.Unlock()
}

// Fail transitions the stream to terminal-error. The cause is surfaced
// to Result and to every subsequent Next call.
func (s *MessageStream) Fail(cause error) {
	s.mu.Lock()
	if s.terminal {
		s.mu.Unlock()
		return
	}
	s.err = cause
	s.terminal = true
	s.enqueueLocked(ErrorEvent{Err: cause})
	close(s.done)
	s.mu.Unlock()
}

// Subscribe registers a callback invoked for every pushed event. The
// returned function removes the subscription. Callback panics are
// swallowed and never reach the producer.
func (s *MessageStream) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Next returns the next buffered or future event in arrival order. It
// returns io.EOF once the stream completes (the Done event itself is not
// yielded) and the stored cause once the stream fails. Cancelling ctx
// stops the consumer without affecting the producer.
func (s *MessageStream) Next(ctx context.Context) (Event, error) {
	for {
		s.mu.Lock()
		if s.err != nil {
			s.mu.Unlock()
			return nil, s.err
		}
		if len(s.queue) > 0 {
			ev := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()
			switch e := ev.(type) {
			case DoneEvent:
				return nil, io.EOF
			case ErrorEvent:
				return nil, e.Err
			default:
				return ev, nil
			}
		}
		if s.terminal {
			s.mu.Unlock()
			return nil, io.EOF
		}
		wake := s.wake
		s.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Result returns the finished message, draining the stream first if it
// has not yet reached a terminal state. Repeated calls return the same
// value without re-draining.
func (s *MessageStream) Result(ctx context.Context) (AssistantMessage, error) {
	s.mu.Lock()
	if s.err != nil {
		err := s.err
		s.mu.Unlock()
		return AssistantMessage{}, err
	}
	if s.result != nil {
		msg := *s.result
		s.mu.Unlock()
		return msg, nil
	}
	s.mu.Unlock()

	for {
		_, err := s.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return AssistantMessage{}, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return AssistantMessage{}, s.err
	}
	if s.result == nil {
		return AssistantMessage{}, ErrNoResult
	}
	return *s.result, nil
}

// Done returns a channel closed once the stream reaches a terminal
// state. It lets owners await the producing goroutine deterministically.
func (s *MessageStream) Done() <-chan struct{} {
	return s.done
}

// enqueueLocked appends to the queue and wakes the consumer.
func (s *MessageStream) enqueueLocked(ev Event) {
	s.queue = append(s.queue, ev)
	close(s.wake)
	s.wake = make(chan struct{})
}

func (s *MessageStream) snapshotSubsLocked() []func(Event) {
	if len(s.subs) == 0 {
		return nil
	}
	out := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		out = append(out, fn)
	}
	return out
}

// accumulate folds an event into the per-index buffers. Buffers are
// created by deltas (and tool-call starts), so a Start/End pair with no
// deltas produces no block.
func (s *MessageStream) accumulate(ev Event) {
	switch e := ev.(type) {
	case TextDeltaEvent:
		buf, ok := s.textBufs[e.Index]
		if !ok {
			buf = &strings.Builder{}
			s.textBufs[e.Index] = buf
		}
		buf.WriteString(e.Delta)
	case ThinkingDeltaEvent:
		buf, ok := s.thinkingBufs[e.Index]
		if !ok {
			buf = &strings.Builder{}
			s.thinkingBufs[e.Index] = buf
		}
		buf.WriteString(e.Delta)
	case ToolCallStartEvent:
		buf := &toolCallBuffer{id: e.ID}
		buf.name.WriteString(e.Name)
		s.toolBufs[e.Index] = buf
	case ToolCallNameDeltaEvent:
		if buf, ok := s.toolBufs[e.Index]; ok {
			buf.name.WriteString(e.Delta)
		}
	case ToolCallArgsDeltaEvent:
		if buf, ok := s.toolBufs[e.Index]; ok {
			buf.args.WriteString(e.Delta)
		}
	case UsageEvent:
		s.usage = e.Usage
	case StopReasonEvent:
		s.stopReason = e.Reason
	}
}

// buildMessageLocked materializes the accumulated buffers into a
// finished message: text blocks by ascending index, then thinking
// blocks, then tool-call blocks. This cross-kind ordering is a
// deliberate simplification of true arrival order kept for
// compatibility with downstream consumers.
func (s *MessageStream) buildMessageLocked() AssistantMessage {
	var content []ContentBlock

	for _, idx := range sortedKeys(s.textBufs) {
		content = append(content, TextBlock{Text: s.textBufs[idx].String()})
	}
	for _, idx := range sortedKeys(s.thinkingBufs) {
		content = append(content, ThinkingBlock{Text: s.thinkingBufs[idx].String()})
	}
	for _, idx := range sortedKeys(s.toolBufs) {
		buf := s.toolBufs[idx]
		content = append(content, ToolCallBlock{
			ID:        buf.id,
			Name:      buf.name.String(),
			Arguments: parseToolArguments(buf.args.String()),
		})
	}

	return AssistantMessage{
		Content:    content,
		StopReason: s.stopReason,
		Usage:      s.usage,
	}
}

// parseToolArguments parses an accumulated argument-delta string.
// Malformed JSON degrades to an empty argument object rather than
// failing the turn.
func parseToolArguments(raw string) map[string]any {
	args := make(map[string]any)
	if raw == "" {
		return args
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return make(map[string]any)
	}
	return args
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// notify invokes a subscriber, swallowing panics so a failing callback
// never breaks the push path.
func notify(fn func(Event), ev Event) {
	defer func() {
		_ = recover()
	}()
	fn(ev)
}
