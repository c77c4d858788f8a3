package llm

// ChunkType discriminates the raw stream units delivered by a transport.
type ChunkType string

const (
	ChunkText          ChunkType = "text"
	ChunkReasoning     ChunkType = "reasoning"
	ChunkToolCallStart ChunkType = "tool_call_start"
	ChunkToolCallDelta ChunkType = "tool_call_delta"
	ChunkToolCallFinal ChunkType = "tool_call_final"
	ChunkUsage         ChunkType = "usage"
)

// Chunk is one unit of model output as delivered by the transport. Tool-call
// chunks for a given ID arrive in send order; no ordering is assumed across
// different IDs.
type Chunk struct {
	Type ChunkType `json:"type"`
	Text string    `json:"text,omitempty"`

	// Tool-call chunks
	ToolCallID string `json:"toolCallId,omitempty"`
	ToolName   string `json:"toolName,omitempty"`
	Fragment   string `json:"fragment,omitempty"` // raw argument bytes, possibly mid-token

	Usage *Usage `json:"usage,omitempty"`
}

// Usage captures token usage if reported by the provider.
type Usage struct {
	InputTokens       int `json:"inputTokens"`
	OutputTokens      int `json:"outputTokens"`
	CachedInputTokens int `json:"cachedInputTokens,omitempty"`
}

// ChunkStream yields chunks until io.EOF.
type ChunkStream interface {
	Recv() (Chunk, error)
	Close() error
}
