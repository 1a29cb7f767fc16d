// Package extraction adapts external vision providers that turn invoice
// images and PDFs into structured documents.
package extraction

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSON is returned when provider output contains no parseable JSON
var ErrNoJSON = errors.New("no well-formed JSON found in provider response")

// ExtractFirstJSON pulls the first well-formed JSON object or array out
// of free-form provider text. Providers wrap payloads in prose or code
// fences no matter how firmly the prompt says "JSON only", so this step
// is mandatory before parsing.
func ExtractFirstJSON(raw string) (string, error) {
	// A fenced block is the most common wrapping; try its content first.
	if fenced := extractFencedBlock(raw); fenced != "" {
		if candidate, err := scanBalanced(fenced); err == nil {
			return candidate, nil
		}
	}
	return scanBalanced(raw)
}

// extractFencedBlock returns the content of the first ``` fence, with an
// optional language tag, or empty when none is present
func extractFencedBlock(raw string) string {
	start := strings.Index(raw, "```")
	if start < 0 {
		return ""
	}
	rest := raw[start+3:]
	// Skip the language tag up to the first newline
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 && nl < 20 {
		rest = rest[nl+1:]
	}
	end := strings.Index(rest, "```")
	if end < 0 {
		return rest
	}
	return rest[:end]
}

// scanBalanced finds the first balanced {...} or [...] run that is valid
// JSON. Brackets inside JSON strings are ignored.
func scanBalanced(raw string) (string, error) {
	for start := 0; start < len(raw); start++ {
		open := raw[start]
		if open != '{' && open != '[' {
			continue
		}
		if candidate, ok := matchFrom(raw, start); ok {
			return candidate, nil
		}
	}
	return "", ErrNoJSON
}

func matchFrom(raw string, start int) (string, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(raw); i++ {
		c := raw[i]
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
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				candidate := raw[start : i+1]
				if json.Valid([]byte(candidate)) {
					return candidate, true
				}
				return "", false
			}
		}
	}
	return "", false
}
