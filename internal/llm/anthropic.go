package llm

import (
	"encoding/json"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"
)

// anthropicNamespace is the providerOptions key this builder consumes.
const anthropicNamespace = "anthropic"

// BuildAnthropicParams translates annotated history into an Anthropic request
// body. System messages are folded into the side-channel system field; cache
// boundary hints in the "anthropic" namespace become cache_control on the
// final content block of the marked message. Tool pairing is repaired first;
// Anthropic rejects requests with unmatched tool_use blocks. The transport
// owns everything past the returned params (credentials, retries, streaming).
func BuildAnthropicParams(model string, messages []Message, tools []ToolSpec, maxOutputTokens int) anthropic.MessageNewParams {
	messages, _ = SanitizeToolHistory(messages)

	var systemParts []string
	var out []anthropic.MessageParam

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			if text := CollectText(msg); text != "" {
				systemParts = append(systemParts, text)
			}
		case RoleAssistant:
			blocks := buildAnthropicBlocks(msg, true)
			if len(blocks) > 0 {
				out = append(out, anthropic.NewAssistantMessage(blocks...))
			}
		case RoleUser, RoleTool:
			blocks := buildAnthropicBlocks(msg, false)
			if len(blocks) > 0 {
				out = append(out, anthropic.NewUserMessage(blocks...))
			}
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens(maxOutputTokens, 4096),
		Messages:  out,
	}
	if system := strings.Join(systemParts, "\n\n"); system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if len(tools) > 0 {
		params.Tools = buildAnthropicTools(tools)
	}
	return params
}

func buildAnthropicBlocks(msg Message, allowToolUse bool) []anthropic.ContentBlockParamUnion {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Parts))
	for _, part := range msg.Parts {
		switch part.Type {
		case PartText:
			if part.Text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(part.Text))
			}
		case PartImage:
			if part.Data != "" {
				blocks = append(blocks, anthropic.NewImageBlockBase64(part.MimeType, part.Data))
			}
		case PartToolCall:
			if allowToolUse && part.ToolCall != nil {
				blocks = append(blocks, anthropic.NewToolUseBlock(part.ToolCall.ID, part.ToolCall.Arguments, part.ToolCall.Name))
			}
		case PartToolResult:
			if part.ToolResult != nil {
				block := anthropic.ToolResultBlockParam{
					ToolUseID: part.ToolResult.ID,
					IsError:   anthropic.Bool(part.ToolResult.IsError),
					Content: []anthropic.ToolResultBlockParamContentUnion{{
						OfText: &anthropic.TextBlockParam{Text: part.ToolResult.Content},
					}},
				}
				blocks = append(blocks, anthropic.ContentBlockParamUnion{OfToolResult: &block})
			}
		}
	}
	if len(blocks) > 0 && HasCacheHint(msg, anthropicNamespace) {
		applyAnthropicCacheControl(&blocks[len(blocks)-1])
	}
	return blocks
}

// applyAnthropicCacheControl sets cache_control on whichever block variant is
// populated. Caching covers the prefix up to and including this block.
func applyAnthropicCacheControl(block *anthropic.ContentBlockParamUnion) {
	control := anthropic.NewCacheControlEphemeralParam()
	switch {
	case block.OfText != nil:
		block.OfText.CacheControl = control
	case block.OfToolResult != nil:
		block.OfToolResult.CacheControl = control
	case block.OfImage != nil:
		block.OfImage.CacheControl = control
	case block.OfToolUse != nil:
		block.OfToolUse.CacheControl = control
	}
}

func buildAnthropicTools(specs []ToolSpec) []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, 0, len(specs))
	for _, spec := range specs {
		inputSchema := anthropic.ToolInputSchemaParam{
			Type:       constant.Object("object"),
			Properties: spec.Schema["properties"],
			Required:   schemaRequired(spec.Schema),
		}
		tool := anthropic.ToolUnionParamOfTool(inputSchema, spec.Name)
		if spec.Description != "" {
			tool.OfTool.Description = anthropic.String(spec.Description)
		}
		if _, ok := spec.ProviderOptions[anthropicNamespace]; ok {
			tool.OfTool.CacheControl = anthropic.NewCacheControlEphemeralParam()
		}
		tools = append(tools, tool)
	}
	return tools
}

func schemaRequired(schema map[string]any) []string {
	raw, ok := schema["required"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func maxTokens(requested, fallback int) int64 {
	if requested > 0 {
		return int64(requested)
	}
	return int64(fallback)
}

// AnthropicTranslator converts Anthropic SDK stream events into the engine's
// chunk model. The SDK keys tool-use deltas by content-block index while the
// engine keys by invocation ID, so the translator carries the index->call
// mapping for the duration of one response.
type AnthropicTranslator struct {
	calls map[int64]anthropicOpenCall
}

type anthropicOpenCall struct {
	id       string
	name     string
	fallback json.RawMessage // args present on the start block (rare, non-streamed)
	sawDelta bool
}

func NewAnthropicTranslator() *AnthropicTranslator {
	return &AnthropicTranslator{calls: make(map[int64]anthropicOpenCall)}
}

// Translate maps one SDK event to zero or more chunks, in emit order.
func (t *AnthropicTranslator) Translate(event anthropic.MessageStreamEventUnion) []Chunk {
	switch variant := event.AsAny().(type) {
	case anthropic.ContentBlockStartEvent:
		switch block := variant.ContentBlock.AsAny().(type) {
		case anthropic.TextBlock:
			if block.Text != "" {
				return []Chunk{{Type: ChunkText, Text: block.Text}}
			}
		case anthropic.ThinkingBlock:
			if block.Thinking != "" {
				return []Chunk{{Type: ChunkReasoning, Text: block.Thinking}}
			}
		case anthropic.ToolUseBlock:
			call := anthropicOpenCall{id: block.ID, name: block.Name}
			if raw := toolInputToRaw(block.Input); len(raw) > 0 && string(raw) != "{}" {
				call.fallback = raw
			}
			t.calls[variant.Index] = call
			return []Chunk{{Type: ChunkToolCallStart, ToolCallID: block.ID, ToolName: block.Name}}
		}
	case anthropic.ContentBlockDeltaEvent:
		switch delta := variant.Delta.AsAny().(type) {
		case anthropic.TextDelta:
			if delta.Text != "" {
				return []Chunk{{Type: ChunkText, Text: delta.Text}}
			}
		case anthropic.ThinkingDelta:
			if delta.Thinking != "" {
				return []Chunk{{Type: ChunkReasoning, Text: delta.Thinking}}
			}
		case anthropic.InputJSONDelta:
			if call, ok := t.calls[variant.Index]; ok && delta.PartialJSON != "" {
				call.sawDelta = true
				t.calls[variant.Index] = call
				return []Chunk{{Type: ChunkToolCallDelta, ToolCallID: call.id, Fragment: delta.PartialJSON}}
			}
		}
	case anthropic.ContentBlockStopEvent:
		call, ok := t.calls[variant.Index]
		if !ok {
			return nil
		}
		delete(t.calls, variant.Index)
		chunks := make([]Chunk, 0, 2)
		if !call.sawDelta && len(call.fallback) > 0 {
			chunks = append(chunks, Chunk{Type: ChunkToolCallDelta, ToolCallID: call.id, Fragment: string(call.fallback)})
		}
		return append(chunks, Chunk{Type: ChunkToolCallFinal, ToolCallID: call.id, ToolName: call.name})
	case anthropic.MessageDeltaEvent:
		if variant.Usage.OutputTokens > 0 {
			return []Chunk{{Type: ChunkUsage, Usage: &Usage{
				InputTokens:  int(variant.Usage.InputTokens),
				OutputTokens: int(variant.Usage.OutputTokens),
			}}}
		}
	}
	return nil
}

func toolInputToRaw(input any) json.RawMessage {
	switch v := input.(type) {
	case json.RawMessage:
		return v
	case []byte:
		return json.RawMessage(v)
	case string:
		return json.RawMessage(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		return json.RawMessage(data)
	}
}
