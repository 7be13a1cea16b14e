package workflow

import (
	"encoding/json"

	"github.com/Renuka-M1115/multi-agent/pkg/api"
)

// ParseEvaluation extracts the critic's structured judgment from free-form
// model text. It scans for the first balanced brace-delimited span that
// unmarshals as an evaluation object and returns it verbatim; score ranges
// and missing sub-fields are deliberately not re-validated. When no span
// parses, the fixed fallback is returned. This function never fails.
func ParseEvaluation(text string) *api.EvaluationResult {
	for start := 0; start < len(text); start++ {
		if text[start] != '{' {
			continue
		}
		end := matchBrace(text, start)
		if end < 0 {
			break
		}
		var eval api.EvaluationResult
		if err := json.Unmarshal([]byte(text[start:end+1]), &eval); err == nil {
			return &eval
		}
		// An unparseable span may still contain a nested object that
		// parses on its own; keep scanning past this opening brace.
	}
	return api.FallbackEvaluation()
}

// matchBrace returns the index of the brace closing the one at start,
// skipping braces inside JSON string literals, or -1 if unbalanced.
func matchBrace(text string, start int) int {
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
				return i
			}
		}
	}
	return -1
}
