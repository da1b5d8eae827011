package ai

// EventType discriminates between streaming event kinds.
type EventType int

const (
	// EventTypeTextStart fires when a text content block opens.
	EventTypeTextStart EventType = iota
	// EventTypeTextDelta fires for each text fragment.
	EventTypeTextDelta
	// EventTypeTextEnd fires when a text content block closes.
	EventTypeTextEnd
	// EventTypeThinkingStart fires when a thinking block opens.
	EventTypeThinkingStart
	// EventTypeThinkingDelta fires for each thinking fragment.
	EventTypeThinkingDelta
	// EventTypeThinkingEnd fires when a thinking block closes.
	EventTypeThinkingEnd
	// EventTypeToolCallStart fires when a tool-call block opens.
	EventTypeToolCallStart
	// EventTypeToolCallNameDelta fires for streamed tool name fragments.
	EventTypeToolCallNameDelta
	// EventTypeToolCallArgsDelta fires for streamed argument JSON fragments.
	EventTypeToolCallArgsDelta
	// EventTypeToolCallEnd fires when a tool-call block closes.
	EventTypeToolCallEnd
	// EventTypeUsage carries a cumulative token-usage snapshot.
	EventTypeUsage
	// EventTypeStopReason latches the stop reason for the message.
	EventTypeStopReason
	// EventTypeDone terminates the stream with the finished message.
	EventTypeDone
	// EventTypeError terminates the stream with an error.
	EventTypeError
)

// Event is the canonical, backend-agnostic streaming event interface.
// Index disambiguates interleaved blocks: a backend may open several
// content blocks before closing earlier ones. Indices are backend-local
// and not guaranteed contiguous.
type Event interface {
	Type() EventType
}

// TextStartEvent opens a text content block.
type TextStartEvent struct {
	Index int
}

// Type returns the event type.
func (TextStartEvent) Type() EventType { return EventTypeTextStart }

// TextDeltaEvent carries a new text fragment, never the cumulative buffer.
type TextDeltaEvent struct {
	Index int
	Delta string
}

// Type returns the event type.
func (TextDeltaEvent) Type() EventType { return EventTypeTextDelta }

// TextEndEvent closes a text content block.
type TextEndEvent struct {
	Index int
}

// Type returns the event type.
func (TextEndEvent) Type() EventType { return EventTypeTextEnd }

// ThinkingStartEvent opens a thinking block.
type ThinkingStartEvent struct {
	Index int
}

// Type returns the event type.
func (ThinkingStartEvent) Type() EventType { return EventTypeThinkingStart }

// ThinkingDeltaEvent carries a new thinking fragment.
type ThinkingDeltaEvent struct {
	Index int
	Delta string
}

// Type returns the event type.
func (ThinkingDeltaEvent) Type() EventType { return EventTypeThinkingDelta }

// ThinkingEndEvent closes a thinking block.
type ThinkingEndEvent struct {
	Index int
}

// Type returns the event type.
func (ThinkingEndEvent) Type() EventType { return EventTypeThinkingEnd }

// ToolCallStartEvent opens a tool-call block. ID and Name may be empty
// for backends that stream them incrementally.
type ToolCallStartEvent struct {
	Index int
	ID    string
	Name  string
}

// Type returns the event type.
func (ToolCallStartEvent) Type() EventType { return EventTypeToolCallStart }

// ToolCallNameDeltaEvent carries a tool name fragment.
type ToolCallNameDeltaEvent struct {
	Index int
	Delta string
}

// Type returns the event type.
func (ToolCallNameDeltaEvent) Type() EventType { return EventTypeToolCallNameDelta }

// ToolCallArgsDeltaEvent carries a fragment of the argument JSON string.
type ToolCallArgsDeltaEvent struct {
	Index int
	Delta string
}

// Type returns the event type.
func (ToolCallArgsDeltaEvent) Type() EventType { return EventTypeToolCallArgsDelta }

// ToolCallEndEvent closes a tool-call block.
type ToolCallEndEvent struct {
	Index int
}

// Type returns the event type.
func (ToolCallEndEvent) Type() EventType { return EventTypeToolCallEnd }

// UsageEvent carries a cumulative usage snapshot. A later snapshot
// replaces an earlier one.
type UsageEvent struct {
	Usage Usage
}

// Type returns the event type.
func (UsageEvent) Type() EventType { return EventTypeUsage }

// StopReasonEvent latches the stop reason for the finished message.
type StopReasonEvent struct {
	Reason StopReason
}

// Type returns the event type.
func (StopReasonEvent) Type() EventType { return EventTypeStopReason }

// DoneEvent terminates the stream. Message is the finished message.
type DoneEvent struct {
	Message *AssistantMessage
}

// Type returns the event type.
func (DoneEvent) Type() EventType { return EventTypeDone }

// ErrorEvent terminates the stream with an error.
type ErrorEvent struct {
	Err error
}

// Type returns the event type.
func (ErrorEvent) Type() EventType { return EventTypeError }
