// Package assembler turns the fragmented tool-call stream a model emits into
// finalized invocations. Argument bytes arrive in arbitrary splits, possibly
// mid-token; the assembler concatenates them raw and defers all parsing to
// finalize (or to the read-only preview path).
package assembler

import (
	"fmt"
	"strings"

	"github.com/yohans-kasaw/taskloop/internal/llm"
)

// Invocation is one fully assembled tool call, ready for execution.
type Invocation struct {
	ID               string
	Name             string
	Arguments        []byte
	UsedLegacyFormat bool
}

// ToolCall converts the invocation to its history representation.
func (inv Invocation) ToolCall() llm.ToolCall {
	return llm.ToolCall{
		ID:               inv.ID,
		Name:             inv.Name,
		Arguments:        inv.Arguments,
		UsedLegacyFormat: inv.UsedLegacyFormat,
	}
}

// ParseError reports that a finalized buffer matched neither the canonical
// nor any legacy argument shape. It is a value the caller turns into an
// error tool-result, never a panic.
type ParseError struct {
	ID     string
	Name   string
	Buffer string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("tool call %s (%s): %s", e.ID, e.Name, e.Reason)
}

type invocation struct {
	taskID string
	name   string
	buf    strings.Builder
}

// Assembler owns the table of in-flight invocations. It is an explicit owned
// value passed into every entry point, shared across the asynchronous
// chunk-callback boundary; callers serialize access (the host loop drives
// one turn at a time). IDs are unique among open invocations and released on
// finalize or abort.
type Assembler struct {
	open map[string]*invocation
}

func New() *Assembler {
	return &Assembler{open: make(map[string]*invocation)}
}

// Start registers a new invocation under the given task. A duplicate ID
// replaces the stale entry: the transport contract makes duplicates a
// producer bug, and keeping stale bytes would corrupt the new call.
func (a *Assembler) Start(taskID, id, name string) {
	a.open[id] = &invocation{taskID: taskID, name: name}
}

// Delta appends raw argument bytes. Fragments are concatenated exactly as
// received; nothing is re-parsed per fragment. Deltas for unknown IDs are
// dropped (a finalized or aborted call can race a late fragment).
func (a *Assembler) Delta(id, fragment string) {
	if inv, ok := a.open[id]; ok {
		inv.buf.WriteString(fragment)
	}
}

// Open reports whether an invocation is currently accumulating.
func (a *Assembler) Open(id string) bool {
	_, ok := a.open[id]
	return ok
}

// Finalize releases the ID and parses the accumulated buffer: canonical
// shape first, then the tool's legacy shapes. A buffer matching neither
// returns (nil, *ParseError); the caller synthesizes the error tool-result.
func (a *Assembler) Finalize(id string) (*Invocation, error) {
	inv, ok := a.open[id]
	if !ok {
		return nil, &ParseError{ID: id, Reason: "no open invocation with this id"}
	}
	delete(a.open, id)

	args, usedLegacy, err := normalizeArguments(inv.name, inv.buf.String())
	if err != nil {
		return nil, &ParseError{ID: id, Name: inv.name, Buffer: inv.buf.String(), Reason: err.Error()}
	}
	return &Invocation{
		ID:               id,
		Name:             inv.name,
		Arguments:        args,
		UsedLegacyFormat: usedLegacy,
	}, nil
}

// Abort discards a single invocation without parsing.
func (a *Assembler) Abort(id string) {
	delete(a.open, id)
}

// ClearTask discards every open invocation belonging to one task. Mandatory
// on task abort or switch so a later task cannot inherit in-flight state.
func (a *Assembler) ClearTask(taskID string) {
	for id, inv := range a.open {
		if inv.taskID == taskID {
			delete(a.open, id)
		}
	}
}

// ClearAll releases everything. Intended for teardown and tests.
func (a *Assembler) ClearAll() {
	a.open = make(map[string]*invocation)
}

// PartialArguments returns a best-effort completion of the current buffer
// for live-preview rendering. It tolerates a truncated trailing value and
// never fails: anything unrecoverable yields nil. The authoritative buffer
// is not touched.
func (a *Assembler) PartialArguments(id string) []byte {
	inv, ok := a.open[id]
	if !ok {
		return nil
	}
	completed, ok := completePartialJSON(inv.buf.String())
	if !ok {
		return nil
	}
	return completed
}
