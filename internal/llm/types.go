package llm

import "encoding/json"

// Role identifies a message role.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// PartType identifies a message content part.
type PartType string

const (
	PartText       PartType = "text"
	PartImage      PartType = "image"
	PartToolCall   PartType = "tool_call"
	PartToolResult PartType = "tool_result"
)

// Message is one provider-facing history entry. Beyond role and content it
// carries the tags that pair it with the UI event log: a summary produced by
// condensation references the condense event that created it, and a
// truncation marker references the truncation event. Timestamp is zero for
// entries that are not temporally anchored (synthetic system prompts,
// injected summaries from older transcripts).
type Message struct {
	Role      Role   `json:"role"`
	Parts     []Part `json:"parts"`
	Timestamp int64  `json:"ts,omitempty"`

	IsSummary          bool   `json:"isSummary,omitempty"`
	CondenseID         string `json:"condenseId,omitempty"`
	IsTruncationMarker bool   `json:"isTruncationMarker,omitempty"`
	TruncationID       string `json:"truncationId,omitempty"`

	// ProviderOptions holds per-provider request hints keyed by provider
	// namespace (e.g. "anthropic" -> {"cacheControl": ...}). Transports
	// read their own namespace and ignore the rest.
	ProviderOptions map[string]map[string]any `json:"providerOptions,omitempty"`
}

// Part represents a single content part.
type Part struct {
	Type       PartType    `json:"type"`
	Text       string      `json:"text,omitempty"`
	MimeType   string      `json:"mimeType,omitempty"` // image parts
	Data       string      `json:"data,omitempty"`     // image parts, base64
	ToolCall   *ToolCall   `json:"toolCall,omitempty"`
	ToolResult *ToolResult `json:"toolResult,omitempty"`
}

// ToolCall is a model-requested tool invocation.
type ToolCall struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Arguments        json.RawMessage `json:"arguments"`
	UsedLegacyFormat bool            `json:"usedLegacyFormat,omitempty"`
}

// ToolResult is the output from executing a tool call.
type ToolResult struct {
	ID      string `json:"id"` // ID of the originating ToolCall
	Name    string `json:"name"`
	Content string `json:"content"`
	IsError bool   `json:"isError,omitempty"`
}

// ToolSpec describes a callable tool for the provider request.
type ToolSpec struct {
	Name        string
	Description string
	Schema      map[string]any

	// ProviderOptions mirrors Message.ProviderOptions for tool definitions;
	// only the last definition in a request ever carries a cache hint.
	ProviderOptions map[string]map[string]any
}

func SystemText(text string) Message {
	return Message{
		Role:  RoleSystem,
		Parts: []Part{{Type: PartText, Text: text}},
	}
}

func UserText(text string) Message {
	return Message{
		Role:  RoleUser,
		Parts: []Part{{Type: PartText, Text: text}},
	}
}

func AssistantText(text string) Message {
	return Message{
		Role:  RoleAssistant,
		Parts: []Part{{Type: PartText, Text: text}},
	}
}

// ToolResultMessage wraps a tool result as a RoleTool history entry.
func ToolResultMessage(id, name, content string) Message {
	return Message{
		Role: RoleTool,
		Parts: []Part{{
			Type:       PartToolResult,
			ToolResult: &ToolResult{ID: id, Name: name, Content: content},
		}},
	}
}

// ToolErrorMessage creates a tool result message that indicates an error.
// The error is passed to the model so it can respond gracefully instead of
// failing the turn.
func ToolErrorMessage(id, name, errorText string) Message {
	return Message{
		Role: RoleTool,
		Parts: []Part{{
			Type:       PartToolResult,
			ToolResult: &ToolResult{ID: id, Name: name, Content: errorText, IsError: true},
		}},
	}
}

// CloneMessages returns a deep enough copy for handing to the persistence
// layer: the slice, each message's parts slice, and each providerOptions map
// are copied so later in-memory mutation cannot leak into a pending write.
func CloneMessages(messages []Message) []Message {
	if messages == nil {
		return nil
	}
	out := make([]Message, len(messages))
	for i, msg := range messages {
		out[i] = msg
		if msg.Parts != nil {
			out[i].Parts = make([]Part, len(msg.Parts))
			copy(out[i].Parts, msg.Parts)
		}
		if msg.ProviderOptions != nil {
			opts := make(map[string]map[string]any, len(msg.ProviderOptions))
			for ns, hint := range msg.ProviderOptions {
				inner := make(map[string]any, len(hint))
				for k, v := range hint {
					inner[k] = v
				}
				opts[ns] = inner
			}
			out[i].ProviderOptions = opts
		}
	}
	return out
}

// CollectText concatenates the text parts of a message.
func CollectText(msg Message) string {
	var text string
	for _, p := range msg.Parts {
		if p.Type == PartText && p.Text != "" {
			if text != "" {
				text += "\n"
			}
			text += p.Text
		}
	}
	return text
}
