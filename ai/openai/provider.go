// Package openai adapts the OpenAI Chat Completions streaming wire
// protocol onto the canonical event model.
package openai

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
	defaultBaseURL  = "https://api.openai.com"
	completionsPath = "/v1/chat/completions"
	defaultModel    = "gpt-4o"
	defaultTimeout  = 10 * time.Minute
)

// Ensure Provider satisfies the backend interface at compile time.
var _ ai.Provider = (*Provider)(nil)

// Config holds the settings needed to reach the Chat Completions API.
type Config struct {
	APIKey  string
	BaseURL string       // defaults to the public endpoint
	Client  *http.Client // defaults to a client with a generous timeout
	Logger  *slog.Logger // defaults to a no-op logger
}

// Provider streams turns from the OpenAI Chat Completions API.
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
func (p *Provider) Name() string { return "openai" }

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
func (p *Provider) run(ctx context.Context, req chatRequest, stream *ai.MessageStream) error {
	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(req); err != nil {
		return fmt.Errorf("encode openai request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+completionsPath, &body)
	if err != nil {
		return fmt.Errorf("create openai request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("openai request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return readAPIError(resp)
	}

	return p.translate(ctx, resp.Body, stream)
}

// buildRequest serializes the conversation into the Chat Completions
// shape. The system instruction becomes a leading system-role message,
// assistant tool calls are echoed with JSON-encoded arguments, and tool
// results travel as tool-role messages referencing the call id.
func buildRequest(model string, conv *ai.Context, opts ai.StreamOptions) chatRequest {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = ai.DefaultStreamOptions().MaxTokens
	}

	req := chatRequest{
		Model:         model,
		MaxTokens:     opts.MaxTokens,
		Temperature:   opts.Temperature,
		TopP:          opts.TopP,
		Stop:          opts.StopSequences,
		Stream:        true,
		StreamOptions: &streamOptions{IncludeUsage: true},
	}

	if conv.SystemPrompt != "" {
		req.Messages = append(req.Messages, chatMessage{Role: "system", Content: conv.SystemPrompt})
	}

	for _, tool := range conv.Tools {
		req.Tools = append(req.Tools, toolParam{
			Type: "function",
			Function: functionSpec{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.InputSchema,
			},
		})
	}

	for _, msg := range conv.Messages {
		switch m := msg.(type) {
		case ai.UserMessage:
			if wire, ok := userMessage(m); ok {
				req.Messages = append(req.Messages, wire)
			}
		case ai.AssistantMessage:
			if wire, ok := assistantMessage(m); ok {
				req.Messages = append(req.Messages, wire)
			}
		case ai.ToolResultMessage:
			req.Messages = append(req.Messages, toolResultMessage(m))
		}
	}

	return req
}

func userMessage(m ai.UserMessage) (chatMessage, bool) {
	var parts []contentPart
	plainText := true
	for _, block := range m.Content {
		switch b := block.(type) {
		case ai.TextBlock:
			parts = append(parts, contentPart{Type: "text", Text: b.Text})
		case ai.ImageBlock:
			plainText = false
			url := b.Data
			if b.SourceType == "base64" {
				url = fmt.Sprintf("data:%s;base64,%s", b.MediaType, b.Data)
			}
			parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{URL: url}})
		}
	}
	if len(parts) == 0 {
		return chatMessage{}, false
	}
	if plainText && len(parts) == 1 {
		return chatMessage{Role: "user", Content: parts[0].Text}, true
	}
	return chatMessage{Role: "user", Content: parts}, true
}

func assistantMessage(m ai.AssistantMessage) (chatMessage, bool) {
	wire := chatMessage{Role: "assistant"}
	if text := m.Text(); text != "" {
		wire.Content = text
	}
	for _, call := range m.ToolCalls() {
		args, err := json.Marshal(call.Arguments)
		if err != nil {
			args = []byte("{}")
		}
		wire.ToolCalls = append(wire.ToolCalls, toolCallParam{
			ID:   call.ID,
			Type: "function",
			Function: functionParam{
				Name:      call.Name,
				Arguments: string(args),
			},
		})
	}
	if wire.Content == nil && len(wire.ToolCalls) == 0 {
		return chatMessage{}, false
	}
	return wire, true
}

func toolResultMessage(m ai.ToolResultMessage) chatMessage {
	text := m.Content
	if m.IsError {
		text = "Error: " + text
	}
	return chatMessage{
		Role:       "tool",
		Content:    text,
		ToolCallID: m.ToolCallID,
	}
}

func readAPIError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("openai api status %d: %w", resp.StatusCode, err)
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
