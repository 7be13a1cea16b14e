package workflow

import (
	"regexp"
	"strings"
)

var (
	pythonFenceRE = regexp.MustCompile("(?s)```python[ \t]*\n(.*?)\n[ \t]*```")
	anyFenceRE    = regexp.MustCompile("(?s)```[a-zA-Z0-9_+-]*[ \t]*\n(.*?)\n[ \t]*```")
)

// ExtractCode pulls a runnable source fragment out of free-form model text.
// Preference order: the first python-tagged fenced block, then the first
// fenced block of any kind, then the raw text unchanged. The result is not
// validated; syntax errors surface at execution.
func ExtractCode(text string) string {
	if m := pythonFenceRE.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := anyFenceRE.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return text
}
