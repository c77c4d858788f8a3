package assembler

import (
	"encoding/json"
	"strings"
)

// completePartialJSON closes an in-progress JSON document so a live preview
// can decode it. A truncated trailing string value is kept (closed), which
// is the whole point: showing a file path while it is still being typed. A
// trailing token that cannot be completed (half a literal, a dangling key,
// a lone comma) is dropped back to the start of the current member or
// element instead. Anything unrecoverable yields (nil, false); it never
// panics and never touches the input.
func completePartialJSON(input string) ([]byte, bool) {
	s := strings.TrimSpace(input)
	if s == "" || (s[0] != '{' && s[0] != '[') {
		return nil, false
	}

	type frame struct {
		open      byte
		openIdx   int // offset of the opening brace/bracket
		itemStart int // offset of the current member/element, -1 if none
		comma     int // offset of the comma before the current item, -1 if first
	}
	var stack []frame
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
			if len(stack) > 0 && stack[len(stack)-1].itemStart < 0 {
				stack[len(stack)-1].itemStart = i
			}
		case '{', '[':
			if len(stack) > 0 && stack[len(stack)-1].itemStart < 0 {
				stack[len(stack)-1].itemStart = i
			}
			stack = append(stack, frame{open: c, openIdx: i, itemStart: -1, comma: -1})
		case '}', ']':
			if len(stack) == 0 {
				return nil, false
			}
			stack = stack[:len(stack)-1]
		case ',':
			if len(stack) > 0 {
				stack[len(stack)-1].itemStart = -1
				stack[len(stack)-1].comma = i
			}
		case ':', ' ', '\t', '\n', '\r':
			// separators and whitespace neither start nor end an item
		default:
			if len(stack) > 0 && stack[len(stack)-1].itemStart < 0 {
				stack[len(stack)-1].itemStart = i
			}
		}
	}

	// A trailing backslash is half an escape sequence; drop it before
	// closing the string.
	if escaped {
		s = s[:len(s)-1]
	}

	closers := make([]byte, len(stack))
	for i, f := range stack {
		if f.open == '{' {
			closers[len(stack)-1-i] = '}'
		} else {
			closers[len(stack)-1-i] = ']'
		}
	}

	candidate := s
	if inString {
		candidate += `"`
	}
	candidate += string(closers)
	if json.Valid([]byte(candidate)) {
		return []byte(candidate), true
	}

	// The trailing item cannot be completed; cut it. The deepest frame's
	// current item contains no container opens (those would have pushed a
	// frame), so the stack of closers is unchanged by the cut.
	if len(stack) == 0 {
		return nil, false
	}
	top := stack[len(stack)-1]
	var cut int
	switch {
	case top.comma >= 0:
		cut = top.comma
	case top.itemStart >= 0:
		cut = top.openIdx + 1
	default:
		return nil, false
	}
	candidate = strings.TrimRight(s[:cut], " \t\n\r") + string(closers)
	if json.Valid([]byte(candidate)) {
		return []byte(candidate), true
	}
	return nil, false
}
