package llm

import (
	"encoding/json"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
)

// BuildOpenAIParams translates annotated history into an OpenAI chat
// completion request. OpenAI manages prompt caching server-side, so the
// cache boundary hints on the messages are ignored here — they are
// transport-agnostic annotations, not obligations. Tool pairing is repaired
// first, same as the Anthropic builder.
func BuildOpenAIParams(model string, messages []Message, tools []ToolSpec, maxOutputTokens int) openai.ChatCompletionNewParams {
	messages, _ = SanitizeToolHistory(messages)

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: buildOpenAIMessages(messages),
	}
	if maxOutputTokens > 0 {
		params.MaxTokens = openai.Int(int64(maxOutputTokens))
	}
	if len(tools) > 0 {
		params.Tools = buildOpenAITools(tools)
	}
	return params
}

func buildOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			if text := CollectText(msg); text != "" {
				out = append(out, openai.SystemMessage(text))
			}
		case RoleUser:
			var contentParts []openai.ChatCompletionContentPartUnionParam
			for _, part := range msg.Parts {
				switch part.Type {
				case PartText:
					if part.Text != "" {
						contentParts = append(contentParts, openai.TextContentPart(part.Text))
					}
				case PartImage:
					if part.Data != "" {
						contentParts = append(contentParts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
							URL: "data:" + part.MimeType + ";base64," + part.Data,
						}))
					}
				}
			}
			if len(contentParts) == 0 {
				continue
			}
			// A lone text part stays a plain string message.
			if len(contentParts) == 1 {
				if text := contentParts[0].GetText(); text != nil {
					out = append(out, openai.UserMessage(*text))
					continue
				}
			}
			out = append(out, openai.UserMessage(contentParts))
		case RoleTool:
			for _, part := range msg.Parts {
				if part.Type != PartToolResult || part.ToolResult == nil {
					continue
				}
				content := part.ToolResult.Content
				if content == "" {
					content = "{}"
				}
				out = append(out, openai.ToolMessage(content, part.ToolResult.ID))
			}
		case RoleAssistant:
			text := CollectText(msg)
			var toolCalls []openai.ChatCompletionMessageToolCallParam
			for _, part := range msg.Parts {
				if part.Type != PartToolCall || part.ToolCall == nil {
					continue
				}
				args := strings.TrimSpace(string(part.ToolCall.Arguments))
				if args == "" || !json.Valid([]byte(args)) {
					args = "{}"
				}
				toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: part.ToolCall.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      part.ToolCall.Name,
						Arguments: args,
					},
				})
			}
			if len(toolCalls) == 0 {
				if text != "" {
					out = append(out, openai.AssistantMessage(text))
				}
				continue
			}
			assistant := openai.ChatCompletionAssistantMessageParam{ToolCalls: toolCalls}
			if text != "" {
				assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{OfString: openai.String(text)}
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		}
	}
	return out
}

func buildOpenAITools(specs []ToolSpec) []openai.ChatCompletionToolParam {
	tools := make([]openai.ChatCompletionToolParam, 0, len(specs))
	for _, spec := range specs {
		fn := shared.FunctionDefinitionParam{Name: spec.Name}
		if spec.Description != "" {
			fn.Description = openai.String(spec.Description)
		}
		if len(spec.Schema) > 0 {
			fn.Parameters = shared.FunctionParameters(spec.Schema)
		}
		tools = append(tools, openai.ChatCompletionToolParam{Function: fn})
	}
	return tools
}
