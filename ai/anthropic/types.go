package anthropic

import (
	"encoding/json"
	"fmt"
)

// messageRequest is the Messages API request body.
type messageRequest struct {
	Model         string          `json:"model"`
	Messages      []messageParam  `json:"messages"`
	MaxTokens     int             `json:"max_tokens"`
	System        string          `json:"system,omitempty"`
	Tools         []toolParam     `json:"tools,omitempty"`
	StopSequences []string        `json:"stop_sequences,omitempty"`
	Stream        bool            `json:"stream"`
}

// messageParam is one conversation message in wire format.
type messageParam struct {
	Role    string         `json:"role"`
	Content []contentParam `json:"content"`
}

// contentParam is a wire content block. Fields are populated according
// to Type; the zero values of the others are omitted.
type contentParam struct {
	Type string `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// thinking
	Thinking  string `json:"thinking,omitempty"`
	Signature string `json:"signature,omitempty"`

	// image
	Source *imageSource `json:"source,omitempty"`

	// tool_use
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`

	// tool_result
	ToolUseID string         `json:"tool_use_id,omitempty"`
	Content   []contentParam `json:"content,omitempty"`
	IsError   bool           `json:"is_error,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// toolParam is a declared tool schema in wire format.
type toolParam struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// streamEventType discriminates between native stream event kinds.
type streamEventType string

const (
	eventMessageStart      streamEventType = "message_start"
	eventContentBlockStart streamEventType = "content_block_start"
	eventContentBlockDelta streamEventType = "content_block_delta"
	eventContentBlockStop  streamEventType = "content_block_stop"
	eventMessageDelta      streamEventType = "message_delta"
	eventMessageStop       streamEventType = "message_stop"
	eventPing              streamEventType = "ping"
)

// wireUsage is the usage object attached to message_start and
// message_delta events.
type wireUsage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
}

// messageStartEvent opens the message and reports input-token usage.
type messageStartEvent struct {
	Message struct {
		Usage wireUsage `json:"usage"`
	} `json:"message"`
}

// contentBlockStartEvent opens a content block at an index.
type contentBlockStartEvent struct {
	Index        int `json:"index"`
	ContentBlock struct {
		Type string `json:"type"`
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"content_block"`
}

// contentBlockDeltaEvent carries one incremental fragment for a block.
type contentBlockDeltaEvent struct {
	Index int `json:"index"`
	Delta struct {
		Type        string `json:"type"`
		Text        string `json:"text"`
		Thinking    string `json:"thinking"`
		PartialJSON string `json:"partial_json"`
		Signature   string `json:"signature"`
	} `json:"delta"`
}

// contentBlockStopEvent closes the block at an index.
type contentBlockStopEvent struct {
	Index int `json:"index"`
}

// messageDeltaEvent reports the stop reason and output-token usage.
type messageDeltaEvent struct {
	Delta struct {
		StopReason   string `json:"stop_reason"`
		StopSequence string `json:"stop_sequence"`
	} `json:"delta"`
	Usage wireUsage `json:"usage"`
}

// errorResponse is the non-2xx error body shape.
type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// APIError reports a failed Messages API call.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

// Error implements the error interface.
func (e APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("anthropic api error %d (%s): %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("anthropic api error %d: %s", e.StatusCode, e.Message)
}

// eventEnvelope peels the outer type tag off a stream event payload.
type eventEnvelope struct {
	Type streamEventType `json:"type"`
}

func parseEnvelope(data []byte) (streamEventType, error) {
	var env eventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("decode stream envelope: %w", err)
	}
	return env.Type, nil
}
