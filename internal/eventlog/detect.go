package eventlog

// State is the closed set of derived agent states.
type State string

const (
	StateNoTask          State = "no_task"
	StateRunning         State = "running"
	StateStreaming       State = "streaming"
	StateWaitingForInput State = "waiting_for_input"
	StateIdle            State = "idle"
	StateResumable       State = "resumable"
)

// RequiredAction is the closed set of responses a snapshot can call for.
type RequiredAction string

const (
	ActionNone             RequiredAction = "none"
	ActionApprove          RequiredAction = "approve"
	ActionAnswer           RequiredAction = "answer"
	ActionRetryOrNewTask   RequiredAction = "retry_or_new_task"
	ActionProceedOrNewTask RequiredAction = "proceed_or_new_task"
	ActionStartTask        RequiredAction = "start_task"
	ActionResumeOrAbandon  RequiredAction = "resume_or_abandon"
	ActionStartNewTask     RequiredAction = "start_new_task"
	ActionContinueOrAbort  RequiredAction = "continue_or_abort"
)

// Snapshot is the derived "what is the agent doing right now" view. It is
// recomputed on demand from the log tail and never persisted.
type Snapshot struct {
	State            State
	RequiredAction   RequiredAction
	DirectiveSubtype string // directive in force, if any
	Timestamp        int64  // timestamp of the triggering entry
	Description      string

	IsWaitingForInput bool
	IsRunning         bool
	IsStreaming       bool
}

// directiveGroup classifies a directive subtype's effect on the loop.
type directiveGroup int

const (
	groupWaiting directiveGroup = iota // approval or answer needed
	groupNonBlocking                   // loop keeps running, interruption optional
	groupIdleTerminal                  // task stopped
	groupResumable                     // task paused by external restart
)

var directiveGroups = map[string]directiveGroup{
	DirectiveFollowup:            groupWaiting,
	DirectiveCommand:             groupWaiting,
	DirectiveTool:                groupWaiting,
	DirectiveBrowserAction:       groupWaiting,
	DirectiveUseMCPServer:        groupWaiting,
	DirectiveCondense:            groupWaiting,
	DirectiveReportBug:           groupWaiting,
	DirectiveCommandOutput:       groupNonBlocking,
	DirectiveCompletionResult:    groupIdleTerminal,
	DirectiveAPIReqFailed:        groupIdleTerminal,
	DirectiveMistakeLimit:        groupIdleTerminal,
	DirectiveAutoApprovalLimit:   groupIdleTerminal,
	DirectiveResumeTask:          groupResumable,
	DirectiveResumeCompletedTask: groupResumable,
}

// One action per subtype; anything unmapped stays ActionNone.
var directiveActions = map[string]RequiredAction{
	DirectiveFollowup:            ActionAnswer,
	DirectiveCommand:             ActionApprove,
	DirectiveTool:                ActionApprove,
	DirectiveBrowserAction:       ActionApprove,
	DirectiveUseMCPServer:        ActionApprove,
	DirectiveCondense:            ActionApprove,
	DirectiveReportBug:           ActionApprove,
	DirectiveCommandOutput:       ActionContinueOrAbort,
	DirectiveCompletionResult:    ActionStartTask,
	DirectiveAPIReqFailed:        ActionRetryOrNewTask,
	DirectiveMistakeLimit:        ActionProceedOrNewTask,
	DirectiveAutoApprovalLimit:   ActionProceedOrNewTask,
	DirectiveResumeTask:          ActionResumeOrAbandon,
	DirectiveResumeCompletedTask: ActionStartNewTask,
}

// Detect derives the agent state from the log tail. It is total: any finite
// log, including one containing subtypes from a newer producer, yields
// exactly one of the six states and never an error.
func Detect(log []Entry) Snapshot {
	if len(log) == 0 {
		return Snapshot{
			State:             StateNoTask,
			RequiredAction:    ActionStartNewTask,
			Description:       describe(StateNoTask, ""),
			IsWaitingForInput: false,
		}
	}

	last := log[len(log)-1]

	// A partial entry means the model is emitting bytes for it right now,
	// whatever its subtype.
	if last.Partial {
		return Snapshot{
			State:          StateStreaming,
			RequiredAction: ActionNone,
			Timestamp:      last.Timestamp,
			Description:    describe(StateStreaming, last.Subtype),
			IsRunning:      true,
			IsStreaming:    true,
		}
	}

	if last.Kind == KindDirective {
		group, known := directiveGroups[last.Subtype]
		if known {
			snap := Snapshot{
				DirectiveSubtype: last.Subtype,
				RequiredAction:   directiveActions[last.Subtype],
				Timestamp:        last.Timestamp,
			}
			switch group {
			case groupNonBlocking:
				snap.State = StateRunning
				snap.IsRunning = true
			case groupIdleTerminal:
				snap.State = StateIdle
				snap.IsWaitingForInput = true
			case groupResumable:
				snap.State = StateResumable
				snap.IsWaitingForInput = true
			default:
				snap.State = StateWaitingForInput
				snap.IsWaitingForInput = true
			}
			snap.Description = describe(snap.State, last.Subtype)
			return snap
		}
		// Unknown directive subtype: degrade to Running rather than guess
		// at blocking semantics a newer producer may have changed.
		return Snapshot{
			State:          StateRunning,
			RequiredAction: ActionNone,
			Timestamp:      last.Timestamp,
			Description:    describe(StateRunning, last.Subtype),
			IsRunning:      true,
		}
	}

	// Info tail: the exchange that produced it may still be open. Walk back
	// to the most recent request-start entry; an unsettled payload (no cost,
	// no cancel reason) means output is still arriving.
	for i := len(log) - 1; i >= 0; i-- {
		entry := log[i]
		if entry.Kind != KindInfo || entry.Subtype != InfoAPIReqStarted {
			continue
		}
		if payload, ok := parseAPIReqPayload(entry.Text); ok {
			if payload.Cost == nil && payload.CancelReason == nil {
				return Snapshot{
					State:          StateStreaming,
					RequiredAction: ActionNone,
					Timestamp:      last.Timestamp,
					Description:    describe(StateStreaming, last.Subtype),
					IsRunning:      true,
					IsStreaming:    true,
				}
			}
		}
		break
	}

	return Snapshot{
		State:          StateRunning,
		RequiredAction: ActionNone,
		Timestamp:      last.Timestamp,
		Description:    describe(StateRunning, last.Subtype),
		IsRunning:      true,
	}
}
