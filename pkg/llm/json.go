package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

// thinkBlock matches a leading <think> block emitted by reasoning models.
var thinkBlock = regexp.MustCompile(`(?s)^\s*<think>.*?</think>\s*`)

// ErrNoJSON is returned when a response holds no parseable JSON value.
var ErrNoJSON = errors.New("no valid JSON found in response")

// ExtractJSON returns the first balanced JSON object or array in a model
// response, ignoring think blocks, code fences and surrounding prose.
func ExtractJSON(response string) (string, error) {
	cleaned := thinkBlock.ReplaceAllString(response, "")

	for start := 0; start < len(cleaned); start++ {
		var closer byte
		switch cleaned[start] {
		case '{':
			closer = '}'
		case '[':
			closer = ']'
		default:
			continue
		}
		if end, ok := balancedEnd(cleaned[start:], cleaned[start], closer); ok {
			candidate := cleaned[start : start+end]
			if json.Valid([]byte(candidate)) {
				return candidate, nil
			}
		}
	}

	return "", ErrNoJSON
}

// balancedEnd returns the length of the bracketed value at the start of s,
// skipping brackets inside string literals.
func balancedEnd(s string, opener, closer byte) (int, bool) {
	depth := 0
	inString, escaped := false, false

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == opener:
			depth++
		case c == closer:
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}

// ParseJSONResponse extracts JSON from a response and unmarshals it into T.
func ParseJSONResponse[T any](response string) (T, error) {
	var result T

	raw, err := ExtractJSON(response)
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return result, fmt.Errorf("unmarshal JSON: %w", err)
	}
	return result, nil
}
