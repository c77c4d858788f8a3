package assembler

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Tool argument normalization. Every tool has one canonical shape; a few
// also accept an older shape kept for backward compatibility. Parsing tries
// canonical first and legacy second, short-circuiting on the first match.
// Legacy results are rewritten into the canonical superset and tagged with a
// "_legacyFormat" discriminant so downstream consumers never re-sniff.

// ReadFileToolName is the one tool in the catalog with a legacy shape.
const ReadFileToolName = "read_file"

// ReadFileArgs is the canonical read_file shape.
type ReadFileArgs struct {
	Path      string `json:"path"`
	StartLine int    `json:"start_line,omitempty"`
	EndLine   int    `json:"end_line,omitempty"`
}

// LineRange is a structured line span, 1-indexed, zero meaning unbounded.
type LineRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// FileSelection is one file in the legacy multi-file shape.
type FileSelection struct {
	Path       string      `json:"path"`
	LineRanges []LineRange `json:"lineRanges,omitempty"`
}

// ReadFileParams is the superset both shapes normalize into for consumers
// that want a single view. LegacyFormat serializes as the discriminant.
type ReadFileParams struct {
	Files        []FileSelection `json:"files"`
	LegacyFormat bool            `json:"_legacyFormat,omitempty"`
}

// legacyParser is a tool-specific fallback for the legacy shape. It returns
// the normalized superset bytes on success.
type legacyParser func(raw []byte) ([]byte, error)

// legacyParsers is the closed set of tools with a legacy shape. Adding a
// tool means adding an entry here, not reflection.
var legacyParsers = map[string]legacyParser{
	ReadFileToolName: parseLegacyReadFile,
}

// normalizeArguments parses a finalized argument buffer for the named tool.
// Returns the argument bytes, whether the legacy shape was used, and an
// error when neither shape matches.
func normalizeArguments(name, buffer string) ([]byte, bool, error) {
	trimmed := strings.TrimSpace(buffer)
	if trimmed == "" {
		return []byte("{}"), false, nil
	}

	if parseCanonical(name, trimmed) {
		return []byte(trimmed), false, nil
	}

	if legacy, ok := legacyParsers[name]; ok {
		normalized, err := legacy([]byte(trimmed))
		if err == nil {
			return normalized, true, nil
		}
		return nil, false, fmt.Errorf("arguments match neither canonical nor legacy %s shape: %v", name, err)
	}
	return nil, false, errors.New("arguments are not a valid JSON object")
}

// parseCanonical reports whether the buffer is a valid canonical payload.
func parseCanonical(name, buffer string) bool {
	if !json.Valid([]byte(buffer)) || !strings.HasPrefix(buffer, "{") {
		return false
	}
	if name != ReadFileToolName {
		return true
	}
	// Canonical read_file is the single-path shape. A "files" key means the
	// legacy multi-file shape even when it happens to be valid JSON.
	var probe struct {
		Path  string          `json:"path"`
		Files json.RawMessage `json:"files"`
	}
	if err := json.Unmarshal([]byte(buffer), &probe); err != nil {
		return false
	}
	return probe.Path != "" && probe.Files == nil
}

// legacyReadFile is the multi-file shape: a "files" list whose entries carry
// line ranges in any of three encodings. Some upstream producers serialize
// the list itself as a JSON string, so a string "files" field is decoded a
// second time before the list parse.
type legacyReadFile struct {
	Files json.RawMessage `json:"files"`
}

type legacyFileEntry struct {
	Path       string            `json:"path"`
	LineRanges []json.RawMessage `json:"lineRanges"`
	LineRange  []json.RawMessage `json:"line_range"`
}

func parseLegacyReadFile(raw []byte) ([]byte, error) {
	var legacy legacyReadFile
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return nil, err
	}
	if len(legacy.Files) == 0 {
		return nil, errors.New("missing files list")
	}

	filesRaw := legacy.Files
	var asString string
	if err := json.Unmarshal(filesRaw, &asString); err == nil {
		// Double-stringified quirk: the field held a JSON string containing
		// the array.
		filesRaw = json.RawMessage(asString)
	}

	var entries []legacyFileEntry
	if err := json.Unmarshal(filesRaw, &entries); err != nil {
		// A single bare file object is also accepted.
		var single legacyFileEntry
		if err2 := json.Unmarshal(filesRaw, &single); err2 != nil {
			return nil, fmt.Errorf("files is neither a list nor a file object: %v", err)
		}
		entries = []legacyFileEntry{single}
	}
	if len(entries) == 0 {
		return nil, errors.New("files list is empty")
	}

	params := ReadFileParams{LegacyFormat: true}
	for _, entry := range entries {
		if entry.Path == "" {
			return nil, errors.New("file entry missing path")
		}
		sel := FileSelection{Path: entry.Path}
		ranges := entry.LineRanges
		if len(ranges) == 0 {
			ranges = entry.LineRange
		}
		for _, rawRange := range ranges {
			lr, err := parseLineRange(rawRange)
			if err != nil {
				return nil, err
			}
			sel.LineRanges = append(sel.LineRanges, lr)
		}
		params.Files = append(params.Files, sel)
	}
	return json.Marshal(params)
}

// parseLineRange accepts the three legacy range encodings: a [start, end]
// pair, a {start, end} object, or a "start-end" string.
func parseLineRange(raw json.RawMessage) (LineRange, error) {
	var pair []int
	if err := json.Unmarshal(raw, &pair); err == nil {
		if len(pair) != 2 {
			return LineRange{}, fmt.Errorf("line range pair has %d elements", len(pair))
		}
		return LineRange{Start: pair[0], End: pair[1]}, nil
	}

	var obj LineRange
	if err := json.Unmarshal(raw, &obj); err == nil && (obj.Start != 0 || obj.End != 0) {
		return obj, nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return parseLineRangeString(text)
	}
	return LineRange{}, fmt.Errorf("unrecognized line range encoding: %s", string(raw))
}

// parseLineRangeString parses "11-22", "11-" and "-22" spans.
func parseLineRangeString(text string) (LineRange, error) {
	start, end, ok := strings.Cut(strings.TrimSpace(text), "-")
	if !ok {
		return LineRange{}, fmt.Errorf("invalid line range %q", text)
	}
	var lr LineRange
	var err error
	if start != "" {
		if lr.Start, err = strconv.Atoi(start); err != nil {
			return LineRange{}, fmt.Errorf("invalid start line %q", start)
		}
	}
	if end != "" {
		if lr.End, err = strconv.Atoi(end); err != nil {
			return LineRange{}, fmt.Errorf("invalid end line %q", end)
		}
	}
	return lr, nil
}

// ParseReadFileParams decodes either read_file shape into the superset view.
// Canonical single-path payloads map to a one-element file list with
// LegacyFormat false.
func ParseReadFileParams(raw []byte) (ReadFileParams, error) {
	var superset ReadFileParams
	if err := json.Unmarshal(raw, &superset); err == nil && len(superset.Files) > 0 {
		return superset, nil
	}

	var canonical ReadFileArgs
	if err := json.Unmarshal(raw, &canonical); err != nil {
		return ReadFileParams{}, err
	}
	if canonical.Path == "" {
		return ReadFileParams{}, errors.New("read_file arguments missing path")
	}
	sel := FileSelection{Path: canonical.Path}
	if canonical.StartLine != 0 || canonical.EndLine != 0 {
		sel.LineRanges = []LineRange{{Start: canonical.StartLine, End: canonical.EndLine}}
	}
	return ReadFileParams{Files: []FileSelection{sel}}, nil
}
