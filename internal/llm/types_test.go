package llm

import "testing"

func TestCloneMessages(t *testing.T) {
	original := []Message{UserText("hello")}
	original[0].ProviderOptions = map[string]map[string]any{
		"anthropic": {"cacheControl": "x"},
	}

	cloned := CloneMessages(original)
	cloned[0].Parts[0].Text = "mutated"
	cloned[0].ProviderOptions["anthropic"]["cacheControl"] = "mutated"

	if original[0].Parts[0].Text != "hello" {
		t.Fatalf("clone shares the parts slice")
	}
	if original[0].ProviderOptions["anthropic"]["cacheControl"] != "x" {
		t.Fatalf("clone shares the provider options map")
	}
	if CloneMessages(nil) != nil {
		t.Fatalf("nil input must stay nil")
	}
}

func TestCollectText(t *testing.T) {
	msg := Message{
		Role: RoleAssistant,
		Parts: []Part{
			{Type: PartText, Text: "one"},
			{Type: PartToolCall},
			{Type: PartText, Text: "two"},
		},
	}
	if got := CollectText(msg); got != "one\ntwo" {
		t.Fatalf("text=%q, want %q", got, "one\ntwo")
	}
}
