package ai

// StopReason explains why the backend stopped generating.
type StopReason string

const (
	StopEndTurn      StopReason = "end_turn"
	StopToolUse      StopReason = "tool_use"
	StopMaxTokens    StopReason = "max_tokens"
	StopStopSequence StopReason = "stop_sequence"
	StopError        StopReason = "error"
)

// ContentBlockType discriminates between content block kinds.
type ContentBlockType string

const (
	ContentBlockTypeText     ContentBlockType = "text"
	ContentBlockTypeThinking ContentBlockType = "thinking"
	ContentBlockTypeImage    ContentBlockType = "image"
	ContentBlockTypeToolCall ContentBlockType = "tool_call"
)

// ContentBlock is the interface for message content blocks.
type ContentBlock interface {
	BlockType() ContentBlockType
}

// TextBlock is plain text content.
type TextBlock struct {
	Text string
}

// BlockType returns the content block type.
func (TextBlock) BlockType() ContentBlockType { return ContentBlockTypeText }

// ThinkingBlock is reasoning/chain-of-thought content. Signature is an
// opaque backend token attached to some thinking blocks.
type ThinkingBlock struct {
	Text      string
	Signature string
}

// BlockType returns the content block type.
func (ThinkingBlock) BlockType() ContentBlockType { return ContentBlockTypeThinking }

// ImageBlock is inline image content.
type ImageBlock struct {
	SourceType string // "base64" or "url"
	MediaType  string // e.g. "image/png"
	Data       string // base64 payload or URL
}

// BlockType returns the content block type.
func (ImageBlock) BlockType() ContentBlockType { return ContentBlockTypeImage }

// ToolCallBlock is a structured request to invoke an external capability.
type ToolCallBlock struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// BlockType returns the content block type.
func (ToolCallBlock) BlockType() ContentBlockType { return ContentBlockTypeToolCall }

// Usage tracks token consumption for a single generation.
type Usage struct {
	InputTokens      int
	OutputTokens     int
	CacheReadTokens  int
	CacheWriteTokens int
}

// Add returns the element-wise sum of two usage counters.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:      u.InputTokens + other.InputTokens,
		OutputTokens:     u.OutputTokens + other.OutputTokens,
		CacheReadTokens:  u.CacheReadTokens + other.CacheReadTokens,
		CacheWriteTokens: u.CacheWriteTokens + other.CacheWriteTokens,
	}
}

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is the interface for conversation messages.
type Message interface {
	MessageRole() Role
}

// UserMessage is a message from the user.
type UserMessage struct {
	Content []ContentBlock
}

// MessageRole returns the message role.
func (UserMessage) MessageRole() Role { return RoleUser }

// NewUserMessage builds a user message containing a single text block.
func NewUserMessage(text string) UserMessage {
	return UserMessage{Content: []ContentBlock{TextBlock{Text: text}}}
}

// AssistantMessage is a finished message generated by a backend.
// It is immutable once returned by a stream.
type AssistantMessage struct {
	Content    []ContentBlock
	StopReason StopReason
	Usage      Usage
}

// MessageRole returns the message role.
func (AssistantMessage) MessageRole() Role { return RoleAssistant }

// Text returns the concatenation of all text blocks.
func (m AssistantMessage) Text() string {
	var out string
	for _, block := range m.Content {
		if tb, ok := block.(TextBlock); ok {
			out += tb.Text
		}
	}
	return out
}

// ToolCalls returns all tool-call blocks in content order.
func (m AssistantMessage) ToolCalls() []ToolCallBlock {
	var calls []ToolCallBlock
	for _, block := range m.Content {
		if tc, ok := block.(ToolCallBlock); ok {
			calls = append(calls, tc)
		}
	}
	return calls
}

// ToolResultMessage carries the outcome of a tool call back into the
// conversation. It always references a tool-call id from a preceding
// assistant message.
type ToolResultMessage struct {
	ToolCallID string
	Content    string
	IsError    bool
}

// MessageRole returns the message role. Tool results travel on the user
// side of the conversation; adapters map them to backend-specific roles.
func (ToolResultMessage) MessageRole() Role { return RoleUser }

// Tool declares a capability schema offered to the backend.
type Tool struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Context is the conversation state sent to a backend: ordered messages,
// declared tool schemas, and a system instruction. It is owned by the
// orchestrator and mutated only by appending finalized messages.
type Context struct {
	Messages     []Message
	Tools        []Tool
	SystemPrompt string
}

// AddMessage appends a message to the conversation.
func (c *Context) AddMessage(msg Message) {
	c.Messages = append(c.Messages, msg)
}

// AddUserMessage appends a plain-text user message.
func (c *Context) AddUserMessage(text string) {
	c.Messages = append(c.Messages, NewUserMessage(text))
}

// AddAssistantMessage appends a finished assistant message.
func (c *Context) AddAssistantMessage(msg AssistantMessage) {
	c.Messages = append(c.Messages, msg)
}

// AddToolResult appends a tool result referencing an earlier tool call.
func (c *Context) AddToolResult(toolCallID, content string, isError bool) {
	c.Messages = append(c.Messages, ToolResultMessage{
		ToolCallID: toolCallID,
		Content:    content,
		IsError:    isError,
	})
}

// LastAssistantMessage returns the most recent assistant message, or
// false if none exists.
func (c *Context) LastAssistantMessage() (AssistantMessage, bool) {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if msg, ok := c.Messages[i].(AssistantMessage); ok {
			return msg, true
		}
	}
	return AssistantMessage{}, false
}
