package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ParseError reports a model reply that is not the JSON shape asked for.
type ParseError struct {
	Op  string
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: malformed response: %v", e.Op, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsParseError reports whether err is or wraps a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// decodeJSON extracts the first JSON value opening with open from text,
// tolerating code fences and prose around it, and decodes it into v.
func decodeJSON(op, text string, open byte, v any) error {
	raw, ok := extractJSON(text, open)
	if !ok {
		return &ParseError{Op: op, Raw: text, Err: errors.New("no JSON found")}
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return &ParseError{Op: op, Raw: text, Err: err}
	}
	return nil
}

func extractJSON(text string, open byte) (string, bool) {
	var closing byte = '}'
	if open == '[' {
		closing = ']'
	}
	start := strings.IndexByte(text, open)
	end := strings.LastIndexByte(text, closing)
	if start < 0 || end < start {
		return "", false
	}
	return text[start : end+1], true
}
