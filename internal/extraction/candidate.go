package extraction

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownFinder is returned by FinderByName for an unsupported finder name.
var ErrUnknownFinder = errors.New("unknown candidate finder")

// CandidateFinder locates a JSON object candidate inside free-form model output.
type CandidateFinder func(text string) (string, bool)

// FinderByName resolves "first-last" (also the empty string) and "balanced".
func FinderByName(name string) (CandidateFinder, error) {
	switch name {
	case "", "first-last":
		return FirstLastCandidate, nil
	case "balanced":
		return BalancedCandidate, nil
	}
	return nil, fmt.Errorf("%w: %q (valid: first-last, balanced)", ErrUnknownFinder, name)
}

// FirstLastCandidate returns the text between the first "{" and the last "}"
// inclusive. Brace balance is not checked, so a stray "{" in leading prose ends
// up inside the candidate.
func FirstLastCandidate(text string) (string, bool) {
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return "", false
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return "", false
	}

	return text[startIdx : endIdx+1], true
}

// BalancedCandidate returns the first brace-balanced span that is valid JSON.
// Braces inside JSON strings are ignored while matching.
func BalancedCandidate(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	for start != -1 {
		if end, ok := matchingBrace(text, start); ok {
			span := text[start : end+1]
			if json.Valid([]byte(span)) {
				return span, true
			}
		}

		next := strings.IndexByte(text[start+1:], '{')
		if next == -1 {
			break
		}
		start += next + 1
	}
	return "", false
}

func matchingBrace(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]
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
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
