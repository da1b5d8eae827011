package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/bazelment/miniagent/ai"
	"github.com/bazelment/miniagent/internal/sse"
)

// doneSentinel terminates a Chat Completions SSE stream.
const doneSentinel = "[DONE]"

// translate consumes the chunked SSE stream and pushes canonical
// events. Chat Completions has no explicit block framing, so blocks are
// opened lazily: text at index 0 on the first content fragment, tool
// calls at their native index on the first fragment carrying an id.
// finish_reason closes whatever is open.
func (p *Provider) translate(ctx context.Context, body io.Reader, stream *ai.MessageStream) error {
	textOpen := false
	openTools := make(map[int]bool)
	var total ai.Usage
	usagePushed := false

	closeBlocks := func() {
		if textOpen {
			stream.Push(ai.TextEndEvent{Index: 0})
			textOpen = false
		}
		indices := make([]int, 0, len(openTools))
		for idx := range openTools {
			indices = append(indices, idx)
		}
		sort.Ints(indices)
		for _, idx := range indices {
			stream.Push(ai.ToolCallEndEvent{Index: idx})
			delete(openTools, idx)
		}
	}

	err := sse.Scan(ctx, body, func(_, data string) error {
		data = strings.TrimSpace(data)
		if data == "" || data == doneSentinel {
			return nil
		}

		var chunk chatCompletionChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return fmt.Errorf("decode completion chunk: %w", err)
		}

		if chunk.Usage != nil {
			total.InputTokens = chunk.Usage.PromptTokens
			total.OutputTokens = chunk.Usage.CompletionTokens
			stream.Push(ai.UsageEvent{Usage: total})
			usagePushed = true
		}

		for _, choice := range chunk.Choices {
			if choice.Delta.Content != "" {
				if !textOpen {
					stream.Push(ai.TextStartEvent{Index: 0})
					textOpen = true
				}
				stream.Push(ai.TextDeltaEvent{Index: 0, Delta: choice.Delta.Content})
			}

			for _, call := range choice.Delta.ToolCalls {
				idx := call.Index
				if !openTools[idx] {
					stream.Push(ai.ToolCallStartEvent{Index: idx, ID: call.ID})
					openTools[idx] = true
				}
				if call.Function.Name != "" {
					stream.Push(ai.ToolCallNameDeltaEvent{Index: idx, Delta: call.Function.Name})
				}
				if call.Function.Arguments != "" {
					stream.Push(ai.ToolCallArgsDeltaEvent{Index: idx, Delta: call.Function.Arguments})
				}
			}

			if choice.FinishReason != "" {
				closeBlocks()
				stream.Push(ai.StopReasonEvent{Reason: mapStopReason(choice.FinishReason)})
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	closeBlocks()
	if !usagePushed {
		stream.Push(ai.UsageEvent{Usage: total})
	}
	stream.End(nil)
	return nil
}

// mapStopReason maps a finish_reason onto the canonical enumeration.
// Unknown reasons default to end_turn.
func mapStopReason(reason string) ai.StopReason {
	switch reason {
	case "stop":
		return ai.StopEndTurn
	case "tool_calls":
		return ai.StopToolUse
	case "length":
		return ai.StopMaxTokens
	case "content_filter":
		return ai.StopError
	default:
		return ai.StopEndTurn
	}
}
