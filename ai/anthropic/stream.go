package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/bazelment/miniagent/ai"
	"github.com/bazelment/miniagent/internal/sse"
)

// translate consumes the native SSE event sequence and pushes canonical
// events. Block kinds are derived from what was opened at each index, so
// a content_block_stop always closes with the matching End event.
func (p *Provider) translate(ctx context.Context, body io.Reader, stream *ai.MessageStream) error {
	opened := make(map[int]ai.ContentBlockType)
	var total ai.Usage
	usagePushed := false

	err := sse.Scan(ctx, body, func(_, data string) error {
		data = strings.TrimSpace(data)
		if data == "" {
			return nil
		}

		kind, err := parseEnvelope([]byte(data))
		if err != nil {
			return err
		}

		switch kind {
		case eventMessageStart:
			var ev messageStartEvent
			if err := json.Unmarshal([]byte(data), &ev); err != nil {
				return fmt.Errorf("decode message_start: %w", err)
			}
			total.InputTokens = ev.Message.Usage.InputTokens
			total.CacheReadTokens = ev.Message.Usage.CacheReadInputTokens
			total.CacheWriteTokens = ev.Message.Usage.CacheCreationInputTokens

		case eventContentBlockStart:
			var ev contentBlockStartEvent
			if err := json.Unmarshal([]byte(data), &ev); err != nil {
				return fmt.Errorf("decode content_block_start: %w", err)
			}
			switch ev.ContentBlock.Type {
			case "text":
				opened[ev.Index] = ai.ContentBlockTypeText
				stream.Push(ai.TextStartEvent{Index: ev.Index})
			case "thinking":
				opened[ev.Index] = ai.ContentBlockTypeThinking
				stream.Push(ai.ThinkingStartEvent{Index: ev.Index})
			case "tool_use":
				opened[ev.Index] = ai.ContentBlockTypeToolCall
				stream.Push(ai.ToolCallStartEvent{
					Index: ev.Index,
					ID:    ev.ContentBlock.ID,
					Name:  ev.ContentBlock.Name,
				})
			default:
				p.logger.Warn("skipping unknown content block type", "type", ev.ContentBlock.Type)
			}

		case eventContentBlockDelta:
			var ev contentBlockDeltaEvent
			if err := json.Unmarshal([]byte(data), &ev); err != nil {
				return fmt.Errorf("decode content_block_delta: %w", err)
			}
			switch ev.Delta.Type {
			case "text_delta":
				stream.Push(ai.TextDeltaEvent{Index: ev.Index, Delta: ev.Delta.Text})
			case "thinking_delta":
				stream.Push(ai.ThinkingDeltaEvent{Index: ev.Index, Delta: ev.Delta.Thinking})
			case "input_json_delta":
				stream.Push(ai.ToolCallArgsDeltaEvent{Index: ev.Index, Delta: ev.Delta.PartialJSON})
			case "signature_delta":
				// Opaque thinking signature; not part of the canonical model.
			default:
				p.logger.Warn("skipping unknown delta type", "type", ev.Delta.Type)
			}

		case eventContentBlockStop:
			var ev contentBlockStopEvent
			if err := json.Unmarshal([]byte(data), &ev); err != nil {
				return fmt.Errorf("decode content_block_stop: %w", err)
			}
			switch opened[ev.Index] {
			case ai.ContentBlockTypeText:
				stream.Push(ai.TextEndEvent{Index: ev.Index})
			case ai.ContentBlockTypeThinking:
				stream.Push(ai.ThinkingEndEvent{Index: ev.Index})
			case ai.ContentBlockTypeToolCall:
				stream.Push(ai.ToolCallEndEvent{Index: ev.Index})
			}
			delete(opened, ev.Index)

		case eventMessageDelta:
			var ev messageDeltaEvent
			if err := json.Unmarshal([]byte(data), &ev); err != nil {
				return fmt.Errorf("decode message_delta: %w", err)
			}
			if ev.Delta.StopReason != "" {
				stream.Push(ai.StopReasonEvent{Reason: mapStopReason(ev.Delta.StopReason)})
			}
			if ev.Usage.OutputTokens > 0 {
				total.OutputTokens = ev.Usage.OutputTokens
			}

		case eventMessageStop:
			stream.Push(ai.UsageEvent{Usage: total})
			usagePushed = true

		case eventPing:
			// Keep-alive only.

		default:
			p.logger.Warn("skipping unknown stream event type", "type", string(kind))
		}
		return nil
	})
	if err != nil {
		return err
	}

	if !usagePushed {
		stream.Push(ai.UsageEvent{Usage: total})
	}
	stream.End(nil)
	return nil
}

// mapStopReason maps a native stop reason onto the canonical
// enumeration. Unknown reasons default to end_turn.
func mapStopReason(reason string) ai.StopReason {
	switch reason {
	case "end_turn":
		return ai.StopEndTurn
	case "tool_use":
		return ai.StopToolUse
	case "max_tokens":
		return ai.StopMaxTokens
	case "stop_sequence":
		return ai.StopStopSequence
	default:
		return ai.StopEndTurn
	}
}
