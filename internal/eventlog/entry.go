// Package eventlog holds the UI-facing transcript of an agent task: an
// ordered list of entries the user sees, separate from the provider-facing
// history the model sees. Directive entries pause the loop until a specific
// response arrives; info entries just record what happened.
package eventlog

import (
	"encoding/json"

	"github.com/google/uuid"
)

// EntryKind discriminates the two entry families.
type EntryKind string

const (
	KindDirective EntryKind = "directive" // pauses the loop awaiting a response
	KindInfo      EntryKind = "info"      // informational, loop keeps going
)

// Directive subtypes. The set is closed per release but the detector
// tolerates unknown values from newer producers.
const (
	DirectiveFollowup            = "followup"
	DirectiveCommand             = "command"
	DirectiveCommandOutput       = "command_output"
	DirectiveTool                = "tool"
	DirectiveBrowserAction       = "browser_action_launch"
	DirectiveUseMCPServer        = "use_mcp_server"
	DirectiveCondense            = "condense"
	DirectiveReportBug           = "report_bug"
	DirectiveCompletionResult    = "completion_result"
	DirectiveAPIReqFailed        = "api_req_failed"
	DirectiveMistakeLimit        = "mistake_limit_reached"
	DirectiveAutoApprovalLimit   = "auto_approval_max_req_reached"
	DirectiveResumeTask          = "resume_task"
	DirectiveResumeCompletedTask = "resume_completed_task"
)

// Info subtypes used by the engine itself. Producers emit more; the
// detector only interprets the ones below.
const (
	InfoText             = "text"
	InfoError            = "error"
	InfoAPIReqStarted    = "api_req_started"
	InfoUserFeedback     = "user_feedback"
	InfoCommandOutput    = "command_output"
	InfoCompletionResult = "completion_result"
	InfoCondenseContext  = "condense_context"
	InfoTruncationMarker = "truncation_marker"
	InfoCheckpointSaved  = "checkpoint_saved"
)

// Metadata carries cross-references into the provider-facing history.
type Metadata struct {
	CondenseID   string `json:"condenseId,omitempty"`
	TruncationID string `json:"truncationId,omitempty"`
}

// Entry is one UI-facing log record. Timestamps are monotonically
// non-decreasing within the log but are not unique across the two logs.
type Entry struct {
	Kind      EntryKind `json:"kind"`
	Subtype   string    `json:"subtype"`
	Timestamp int64     `json:"ts"`
	Partial   bool      `json:"partial,omitempty"`
	Text      string    `json:"text,omitempty"`
	Metadata  *Metadata `json:"metadata,omitempty"`
}

// CondenseID returns the condensation ID if this entry records one.
func (e Entry) CondenseID() string {
	if e.Metadata == nil {
		return ""
	}
	return e.Metadata.CondenseID
}

// TruncationID returns the truncation ID if this entry records one.
func (e Entry) TruncationID() string {
	if e.Metadata == nil {
		return ""
	}
	return e.Metadata.TruncationID
}

// NewCondenseID mints an identifier shared by a condense_context entry and
// its summary message in the history. Both sides must carry the same ID or
// the rewind sweep will clear them.
func NewCondenseID() string {
	return uuid.NewString()
}

// NewTruncationID mints an identifier pairing a truncation_marker entry with
// its history marker.
func NewTruncationID() string {
	return uuid.NewString()
}

// apiReqPayload is the JSON payload of an api_req_started info entry. The
// producer writes the entry when the request goes out and patches cost (or a
// cancel reason) into the same entry when the exchange settles, so a missing
// cost means the exchange is still producing output.
type apiReqPayload struct {
	Cost         *float64 `json:"cost"`
	CancelReason *string  `json:"cancelReason"`
}

func parseAPIReqPayload(text string) (apiReqPayload, bool) {
	var payload apiReqPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return apiReqPayload{}, false
	}
	return payload, true
}

// Clone returns a copy of the log suitable for handing to persistence while
// the live slice keeps mutating.
func Clone(entries []Entry) []Entry {
	if entries == nil {
		return nil
	}
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = e
		if e.Metadata != nil {
			meta := *e.Metadata
			out[i].Metadata = &meta
		}
	}
	return out
}
