package llm

import (
	"fmt"
	"strings"
)

// SanitizeToolHistory enforces call/result pair integrity over a history
// slice: tool results whose originating call is gone are dropped, and tool
// calls whose result is gone are rewritten as plain text so the model still
// sees what it attempted (silently dropping them causes request rejections
// on providers that validate pairing). Messages left with no parts are
// removed. Returns the repaired slice and whether any repair was made. The
// input is not mutated.
func SanitizeToolHistory(messages []Message) ([]Message, bool) {
	changed := false
	callIDs := make(map[string]int)
	resultIDs := make(map[string]int)
	for _, msg := range messages {
		for _, part := range msg.Parts {
			switch part.Type {
			case PartToolCall:
				if part.ToolCall != nil {
					if id := strings.TrimSpace(part.ToolCall.ID); id != "" {
						callIDs[id]++
					}
				}
			case PartToolResult:
				if part.ToolResult != nil {
					if id := strings.TrimSpace(part.ToolResult.ID); id != "" {
						resultIDs[id]++
					}
				}
			}
		}
	}

	out := make([]Message, 0, len(messages))
	for _, msg := range messages {
		parts := make([]Part, 0, len(msg.Parts))
		for _, part := range msg.Parts {
			switch part.Type {
			case PartToolCall:
				if part.ToolCall == nil {
					changed = true
					continue
				}
				id := strings.TrimSpace(part.ToolCall.ID)
				if id == "" {
					changed = true
					continue
				}
				if resultIDs[id] == 0 {
					changed = true
					parts = append(parts, Part{
						Type: PartText,
						Text: fmt.Sprintf("[tool call interrupted — id:%s name:%s args:%s]",
							part.ToolCall.ID, part.ToolCall.Name, string(part.ToolCall.Arguments)),
					})
					continue
				}
				parts = append(parts, part)
			case PartToolResult:
				if part.ToolResult == nil {
					changed = true
					continue
				}
				id := strings.TrimSpace(part.ToolResult.ID)
				if id == "" || callIDs[id] == 0 {
					changed = true
					continue
				}
				parts = append(parts, part)
			default:
				parts = append(parts, part)
			}
		}
		if len(parts) == 0 {
			changed = true
			continue
		}
		kept := msg
		kept.Parts = parts
		out = append(out, kept)
	}
	return out, changed
}

// SweepDanglingTags strips condensation and truncation cross-reference tags
// that no longer resolve against the given sets of valid IDs. Entries are
// kept; only the tags are cleared. Returns the swept slice and whether
// anything changed. The input is not mutated when a change is needed.
func SweepDanglingTags(messages []Message, validCondense, validTruncation map[string]bool) ([]Message, bool) {
	changed := false
	out := messages
	for i, msg := range messages {
		clearCondense := msg.CondenseID != "" && !validCondense[msg.CondenseID]
		clearTruncation := msg.TruncationID != "" && !validTruncation[msg.TruncationID]
		if !clearCondense && !clearTruncation {
			continue
		}
		if !changed {
			out = make([]Message, len(messages))
			copy(out, messages)
			changed = true
		}
		if clearCondense {
			out[i].CondenseID = ""
			out[i].IsSummary = false
		}
		if clearTruncation {
			out[i].TruncationID = ""
			out[i].IsTruncationMarker = false
		}
	}
	return out, changed
}
