package eventlog

// Human-readable snapshot descriptions for the UI/CLI layer, keyed by
// (state, subtype). Falls back to a per-state default so new subtypes still
// render something sensible.

var subtypeDescriptions = map[string]string{
	DirectiveFollowup:            "Waiting for an answer to the agent's question",
	DirectiveCommand:             "Waiting for approval to run a command",
	DirectiveTool:                "Waiting for approval to use a tool",
	DirectiveBrowserAction:       "Waiting for approval to launch a browser action",
	DirectiveUseMCPServer:        "Waiting for approval to call an MCP server",
	DirectiveCondense:            "Waiting for approval to condense the conversation",
	DirectiveReportBug:           "Waiting for approval to file a bug report",
	DirectiveCommandOutput:       "Command is running; output is streaming in",
	DirectiveCompletionResult:    "Task completed; start a follow-up task or a new one",
	DirectiveAPIReqFailed:        "API request failed; retry or start a new task",
	DirectiveMistakeLimit:        "Mistake limit reached; guide the agent or start over",
	DirectiveAutoApprovalLimit:   "Auto-approval limit reached; proceed manually or start over",
	DirectiveResumeTask:          "Task was interrupted; resume or abandon it",
	DirectiveResumeCompletedTask: "Completed task reloaded; start a new task",
}

var stateDescriptions = map[State]string{
	StateNoTask:          "No task is active",
	StateRunning:         "Agent is working",
	StateStreaming:       "Model is responding",
	StateWaitingForInput: "Waiting for user input",
	StateIdle:            "Task has stopped",
	StateResumable:       "Task can be resumed",
}

func describe(state State, subtype string) string {
	switch state {
	case StateStreaming, StateNoTask:
		// The subtype belongs to the entry being produced, not to a
		// directive in force.
		return stateDescriptions[state]
	}
	if desc, ok := subtypeDescriptions[subtype]; ok {
		return desc
	}
	return stateDescriptions[state]
}
