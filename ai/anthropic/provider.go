// Package anthropic adapts the Anthropic Messages API streaming wire
// protocol onto the canonical event model.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bazelment/miniagent/ai"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	messagesPath     = "/v1/messages"
	anthropicVersion = "2023-06-01"
	defaultModel     = "claude-sonnet-4-20250514"
	defaultTimeout   = 10 * time.Minute
)

// Ensure Provider satisfies the backend interface at compile time.
var _ ai.Provider = (*Provider)(nil)

// Config holds the settings needed to reach the Messages API.
type Config struct {
	APIKey  string
	BaseURL string       // defaults to the public endpoint
	Client  *http.Client // defaults to a client with a generous timeout
	Logger  *slog.Logger // defaults to a no-op logger
}

// Provider streams turns from the Anthropic Messages API.
type Provider struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// New builds a Provider from cfg, applying defaults for unset fields.
func New(cfg Config) *Provider {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(nopHandler{})
	}
	return &Provider{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		client:  client,
		logger:  logger,
	}
}

// Name returns the backend identifier.
func (p *Provider) Name() string { return "anthropic" }

// DefaultModel returns the model used when none is configured.
func (p *Provider) DefaultModel() string { return defaultModel }

// Stream starts a generation turn. The returned stream is live
// immediately; the network exchange runs in a goroutine owned by the
// stream and every failure is delivered through the stream's error
// channel.
func (p *Provider) Stream(ctx context.Context, model string, conv *ai.Context, opts ai.StreamOptions) *ai.MessageStream {
	stream := ai.NewMessageStream()

	if err := ai.ValidateContext(conv); err != nil {
		stream.Fail(err)
		return stream
	}

	req := buildRequest(model, conv, opts)
	go func() {
		if err := p.run(ctx, req, stream); err != nil {
			stream.Fail(err)
		}
	}()

	return stream
}

// run performs the HTTP exchange and feeds the stream. Any error it
// returns is converted into a stream failure by the caller.
func (p *Provider) run(ctx context.Context, req messageRequest, stream *ai.MessageStream) error {
	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(req); err != nil {
		return fmt.Errorf("encode anthropic request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+messagesPath, &body)
	if err != nil {
		return fmt.Errorf("create anthropic request: %w", err)
	}
	httpReq.Header.Set("X-API-Key", p.apiKey)
	httpReq.Header.Set("Anthropic-Version", anthropicVersion)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("anthropic request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return readAPIError(resp)
	}

	return p.translate(ctx, resp.Body, stream)
}

// buildRequest serializes the conversation into the Messages API shape.
// The system instruction rides in its own slot, and tool results are
// folded into synthetic user turns carrying tool_result blocks that
// reference the originating call id.
func buildRequest(model string, conv *ai.Context, opts ai.StreamOptions) messageRequest {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = ai.DefaultStreamOptions().MaxTokens
	}

	req := messageRequest{
		Model:         model,
		MaxTokens:     opts.MaxTokens,
		System:        conv.SystemPrompt,
		StopSequences: opts.StopSequences,
		Stream:        true,
	}

	for _, tool := range conv.Tools {
		req.Tools = append(req.Tools, toolParam{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		})
	}

	for _, msg := range conv.Messages {
		switch m := msg.(type) {
		case ai.UserMessage:
			content := userContent(m)
			if len(content) > 0 {
				req.Messages = append(req.Messages, messageParam{Role: "user", Content: content})
			}
		case ai.AssistantMessage:
			content := assistantContent(m)
			if len(content) > 0 {
				req.Messages = append(req.Messages, messageParam{Role: "assistant", Content: content})
			}
		case ai.ToolResultMessage:
			req.Messages = append(req.Messages, messageParam{
				Role:    "user",
				Content: []contentParam{toolResultContent(m)},
			})
		}
	}

	return req
}

func userContent(m ai.UserMessage) []contentParam {
	var content []contentParam
	for _, block := range m.Content {
		switch b := block.(type) {
		case ai.TextBlock:
			content = append(content, contentParam{Type: "text", Text: b.Text})
		case ai.ImageBlock:
			content = append(content, contentParam{
				Type: "image",
				Source: &imageSource{
					Type:      b.SourceType,
					MediaType: b.MediaType,
					Data:      b.Data,
				},
			})
		}
	}
	return content
}

func assistantContent(m ai.AssistantMessage) []contentParam {
	var content []contentParam
	for _, block := range m.Content {
		switch b := block.(type) {
		case ai.TextBlock:
			content = append(content, contentParam{Type: "text", Text: b.Text})
		case ai.ThinkingBlock:
			content = append(content, contentParam{Type: "thinking", Thinking: b.Text, Signature: b.Signature})
		case ai.ToolCallBlock:
			content = append(content, contentParam{Type: "tool_use", ID: b.ID, Name: b.Name, Input: b.Arguments})
		}
	}
	return content
}

func toolResultContent(m ai.ToolResultMessage) contentParam {
	text := m.Content
	if m.IsError {
		text = "Error: " + text
	}
	return contentParam{
		Type:      "tool_result",
		ToolUseID: m.ToolCallID,
		Content:   []contentParam{{Type: "text", Text: text}},
		IsError:   m.IsError,
	}
}

func readAPIError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("anthropic api status %d: %w", resp.StatusCode, err)
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return APIError{StatusCode: resp.StatusCode, Message: resp.Status}
	}

	var apiErr errorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return APIError{StatusCode: resp.StatusCode, Type: apiErr.Error.Type, Message: apiErr.Error.Message}
	}
	return APIError{StatusCode: resp.StatusCode, Message: string(body)}
}

// nopHandler is a slog.Handler that discards all output.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h nopHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h nopHandler) WithGroup(string) slog.Handler           { return h }
