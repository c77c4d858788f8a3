package llm

// Prompt-cache boundary placement. Providers reward requests whose prefix is
// byte-identical to a previous request up to an annotated breakpoint, so the
// placer marks the positions most likely to be re-sent unchanged: the last
// two user/tool messages (moves every turn), plus an optional "one-third
// back" anchor on long conversations that stays put across many turns.
//
// Marks are providerOptions hints only; each transport reads its own
// namespace and the rest are inert.

// CacheOptions configures ApplyCacheBoundaries.
type CacheOptions struct {
	// UseAnchor additionally marks a stable entry one third into the
	// eligible list once it reaches AnchorThreshold entries.
	UseAnchor       bool
	AnchorThreshold int
}

// DefaultAnchorThreshold is the eligible-entry count at which the anchor
// mark starts being placed.
const DefaultAnchorThreshold = 5

// cacheHint returns a fresh hint set covering every provider namespace the
// engine knows about. Fresh maps each call: hints are merged into messages
// and must not be shared between entries.
func cacheHint() map[string]map[string]any {
	return map[string]map[string]any{
		"anthropic":  {"cacheControl": map[string]any{"type": "ephemeral"}},
		"openrouter": {"cacheControl": map[string]any{"type": "ephemeral"}},
		"bedrock":    {"cachePoint": map[string]any{"type": "default"}},
	}
}

// ApplyCacheBoundaries annotates messages in place. Only user and tool role
// entries are ever marked; system and assistant entries are skipped. Calling
// it twice on the same slice yields the same marked set.
func ApplyCacheBoundaries(messages []Message, opts CacheOptions) {
	eligible := make([]int, 0, len(messages))
	for i, msg := range messages {
		if msg.Role == RoleAssistant || msg.Role == RoleSystem {
			continue
		}
		eligible = append(eligible, i)
	}
	if len(eligible) == 0 {
		return
	}

	last := 2
	if len(eligible) < last {
		last = len(eligible)
	}
	for _, idx := range eligible[len(eligible)-last:] {
		markMessage(&messages[idx])
	}

	threshold := opts.AnchorThreshold
	if threshold <= 0 {
		threshold = DefaultAnchorThreshold
	}
	if opts.UseAnchor && len(eligible) >= threshold {
		markMessage(&messages[eligible[len(eligible)/3]])
	}
}

// markMessage shallow-merges the hint set into the message, preserving any
// namespaces already present.
func markMessage(msg *Message) {
	if msg.ProviderOptions == nil {
		msg.ProviderOptions = make(map[string]map[string]any)
	}
	for ns, hint := range cacheHint() {
		msg.ProviderOptions[ns] = hint
	}
}

// HasCacheHint reports whether a message carries a cache boundary for the
// given provider namespace.
func HasCacheHint(msg Message, namespace string) bool {
	if msg.ProviderOptions == nil {
		return false
	}
	hint, ok := msg.ProviderOptions[namespace]
	if !ok {
		return false
	}
	_, hasControl := hint["cacheControl"]
	_, hasPoint := hint["cachePoint"]
	return hasControl || hasPoint
}

// MarkLastToolDefinition annotates at most the final tool definition.
// Breakpoints are a scarce per-request resource, so a single mark after the
// tool block is all a provider needs to cache every definition before it.
func MarkLastToolDefinition(tools []ToolSpec) {
	if len(tools) == 0 {
		return
	}
	spec := &tools[len(tools)-1]
	if spec.ProviderOptions == nil {
		spec.ProviderOptions = make(map[string]map[string]any)
	}
	for ns, hint := range cacheHint() {
		spec.ProviderOptions[ns] = hint
	}
}

// SystemPromptMessage wraps the system prompt as a synthetic leading history
// entry carrying the full hint set, for providers whose caching scheme needs
// the system prompt to be a message rather than a side-channel field. The
// entry has no timestamp: it is regenerated per request, never persisted.
func SystemPromptMessage(prompt string) Message {
	msg := SystemText(prompt)
	msg.ProviderOptions = cacheHint()
	return msg
}
