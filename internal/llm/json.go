package llm

import (
	"encoding/json"
	"strings"
)

// CleanJSON strips surrounding whitespace and markdown code fences.
func CleanJSON(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	endIdx := len(lines)
	for i := len(lines) - 1; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			endIdx = i
			break
		}
	}
	if len(lines) < 2 {
		return strings.Trim(text, "`")
	}
	return strings.TrimSpace(strings.Join(lines[1:endIdx], "\n"))
}

// ParseJSONValue parses any JSON value (object, array or scalar).
func ParseJSONValue(text string) (any, bool) {
	text = CleanJSON(text)
	if text == "" {
		return nil, false
	}

	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, false
	}
	return v, true
}
