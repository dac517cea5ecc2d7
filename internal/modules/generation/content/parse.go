package content

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

type Strategy string

const (
	StrategyFenced   Strategy = "fenced"
	StrategyBraces   Strategy = "braces"
	StrategyWholeRaw Strategy = "whole"
)

var fencedBlock = regexp.MustCompile("(?s)```[a-zA-Z0-9_-]*[ \\t]*\\r?\\n?(.*?)```")

// Parse extracts a JSON object from raw model text. It tries, in order, the
// first fenced code block, the first balanced {...} span, and the whole
// trimmed text; the first candidate that decodes to an object wins.
func Parse(raw string) (map[string]any, Strategy, error) {
	if m := fencedBlock.FindStringSubmatch(raw); m != nil {
		if obj, ok := decodeObject(m[1]); ok {
			return obj, StrategyFenced, nil
		}
	}
	if span, ok := firstBalancedObject(raw); ok {
		if obj, ok := decodeObject(span); ok {
			return obj, StrategyBraces, nil
		}
	}
	if obj, ok := decodeObject(raw); ok {
		return obj, StrategyWholeRaw, nil
	}
	return nil, "", fmt.Errorf("%w (len=%d)", ErrOutputParse, len(raw))
}

func decodeObject(s string) (map[string]any, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s[0] != '{' {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, false
	}
	return obj, obj != nil
}

// firstBalancedObject returns the span from the first '{' to its matching
// '}', skipping braces inside JSON strings.
func firstBalancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
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
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
