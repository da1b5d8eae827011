package agent

import "github.com/bazelment/miniagent/ai"

// State identifies where the loop is in its turn lifecycle.
type State string

const (
	StateIdle           State = "idle"
	StateStreaming      State = "streaming"
	StateExecutingTools State = "executing_tools"
	StateAborted        State = "aborted"
)

// ToolExecution records one dispatched tool call from start to
// settlement. Exactly one of Result or Error is meaningful once
// Completed is set.
type ToolExecution struct {
	ToolCallID string
	ToolName   string
	Arguments  map[string]any
	Result     string
	Error      string
	Completed  bool
}

// LoopEventType discriminates between loop notification kinds.
type LoopEventType int

const (
	LoopEventTurnStarted LoopEventType = iota
	LoopEventStreamStarted
	LoopEventText
	LoopEventThinking
	LoopEventToolCallStarted
	LoopEventToolCallFinished
	LoopEventTurnCompleted
	LoopEventAborted
)

// LoopEvent is a notification emitted to observers as a turn progresses.
type LoopEvent interface {
	Type() LoopEventType
}

// TurnStartedEvent fires when a prompt is accepted.
type TurnStartedEvent struct {
	Prompt string
}

func (TurnStartedEvent) Type() LoopEventType { return LoopEventTurnStarted }

// StreamStartedEvent fires when a generation stream is requested.
type StreamStartedEvent struct {
	Iteration int
}

func (StreamStartedEvent) Type() LoopEventType { return LoopEventStreamStarted }

// TextEvent carries one in-progress text fragment.
type TextEvent struct {
	Delta string
}

func (TextEvent) Type() LoopEventType { return LoopEventText }

// ThinkingEvent carries one in-progress reasoning fragment.
type ThinkingEvent struct {
	Delta string
}

func (ThinkingEvent) Type() LoopEventType { return LoopEventThinking }

// ToolCallStartedEvent fires when the backend begins a tool call.
type ToolCallStartedEvent struct {
	Index int
	ID    string
	Name  string
}

func (ToolCallStartedEvent) Type() LoopEventType { return LoopEventToolCallStarted }

// ToolCallFinishedEvent carries a settled execution record.
type ToolCallFinishedEvent struct {
	Execution ToolExecution
}

func (ToolCallFinishedEvent) Type() LoopEventType { return LoopEventToolCallFinished }

// TurnCompletedEvent carries a finished assistant message.
type TurnCompletedEvent struct {
	Message ai.AssistantMessage
}

func (TurnCompletedEvent) Type() LoopEventType { return LoopEventTurnCompleted }

// AbortedEvent fires when the loop observes the abort flag.
type AbortedEvent struct{}

func (AbortedEvent) Type() LoopEventType { return LoopEventAborted }
