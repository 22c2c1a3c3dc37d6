package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseResult extracts and parses a JSON object from a response that may
// contain surrounding text or markdown fences.
func parseResult(response string) (*Result, error) {
	// First try direct parsing
	var result Result
	if err := json.Unmarshal([]byte(response), &result); err == nil {
		return &result, nil
	}

	// Find JSON object in response (look for { ... })
	start := strings.Index(response, "{")
	if start == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	// Find matching closing brace
	depth := 0
	end := -1
	inString := false
	escaped := false
	for i := start; i < len(response); i++ {
		c := response[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					end = i + 1
				}
			}
		}
		if end != -1 {
			break
		}
	}

	if end == -1 {
		return nil, fmt.Errorf("no matching closing brace found")
	}

	if err := json.Unmarshal([]byte(response[start:end]), &result); err != nil {
		return nil, fmt.Errorf("failed to parse extracted JSON: %w", err)
	}

	return &result, nil
}
