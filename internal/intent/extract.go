// Package intent turns natural-language requests into database actions
// by way of the local LLM.
package intent

import (
	"strings"
)

// ExtractJSON pulls a JSON object or array out of model output that may
// be fenced or wrapped in prose. The fallback order: verbatim balanced
// text, first fenced code block, first balanced brace slice. The brace
// walk does not track JSON string escapes; a brace embedded in a string
// value ends the scan early and the caller's parse fails cleanly.
func ExtractJSON(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) >= 2 {
		first, last := trimmed[0], trimmed[len(trimmed)-1]
		if (first == '{' && last == '}') || (first == '[' && last == ']') {
			return trimmed, true
		}
	}

	if inner, ok := fencedBlock(trimmed); ok {
		return strings.TrimSpace(inner), true
	}

	return balancedSlice(trimmed)
}

// fencedBlock returns the inner text of the first ``` block, tolerating
// a language tag after the opening fence.
func fencedBlock(s string) (string, bool) {
	start := strings.Index(s, "```")
	if start == -1 {
		return "", false
	}

	rest := s[start+3:]
	if nl := strings.IndexByte(rest, '\n'); nl != -1 {
		tag := strings.TrimSpace(rest[:nl])
		if tag == "" || isFenceTag(tag) {
			rest = rest[nl+1:]
		}
	}

	end := strings.Index(rest, "```")
	if end == -1 {
		return "", false
	}

	return rest[:end], true
}

func isFenceTag(tag string) bool {
	for _, r := range tag {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

// balancedSlice finds the first '{' or '[' and returns the slice up to
// the matching close of the same kind.
func balancedSlice(s string) (string, bool) {
	start := strings.IndexAny(s, "{[")
	if start == -1 {
		return "", false
	}

	open := s[start]
	var closer byte = '}'
	if open == '[' {
		closer = ']'
	}

	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case open:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	return "", false
}
