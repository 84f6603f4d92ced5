package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ParseError reports that a reply could not be decoded into the expected
// shape. Callers treat it as a signal to take their heuristic path; it is
// never surfaced to the end user as fatal.
type ParseError struct {
	Reply string
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed understanding-service reply: %v", e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// ExtractObject locates the first JSON object embedded in a reply that may
// carry surrounding prose or markdown fences. Returns ok=false when nothing
// parseable is found.
func ExtractObject(reply string) (string, bool) {
	return extractDelimited(reply, '{', '}')
}

// ExtractArray locates the first JSON array embedded in a reply.
func ExtractArray(reply string) (string, bool) {
	return extractDelimited(reply, '[', ']')
}

func extractDelimited(reply string, open, close byte) (string, bool) {
	trimmed := stripFences(reply)
	if trimmed == "" {
		return "", false
	}
	if trimmed[0] == open && gjson.Valid(trimmed) {
		return trimmed, true
	}

	start := strings.IndexByte(trimmed, open)
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(trimmed); i++ {
		c := trimmed[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == open:
			depth++
		case c == close:
			depth--
			if depth == 0 {
				candidate := trimmed[start : i+1]
				if gjson.Valid(candidate) {
					return candidate, true
				}
				return "", false
			}
		}
	}
	return "", false
}

func stripFences(reply string) string {
	trimmed := strings.TrimSpace(reply)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}

// DecodeObject extracts a JSON object from the reply and unmarshals it
// strictly into v. Returns a *ParseError on any failure.
func DecodeObject(reply string, v any) error {
	raw, ok := ExtractObject(reply)
	if !ok {
		return &ParseError{Reply: reply, Cause: fmt.Errorf("no JSON object found")}
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return &ParseError{Reply: reply, Cause: err}
	}
	return nil
}

// DecodeArray extracts a JSON array from the reply and unmarshals it
// strictly into v. Returns a *ParseError on any failure.
func DecodeArray(reply string, v any) error {
	raw, ok := ExtractArray(reply)
	if !ok {
		return &ParseError{Reply: reply, Cause: fmt.Errorf("no JSON array found")}
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return &ParseError{Reply: reply, Cause: err}
	}
	return nil
}

// Field reads a single path from a JSON document located inside the reply.
// Missing documents or paths yield a zero gjson.Result.
func Field(reply, path string) gjson.Result {
	raw, ok := ExtractObject(reply)
	if !ok {
		return gjson.Result{}
	}
	return gjson.Get(raw, path)
}
