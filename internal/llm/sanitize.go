package llm

import (
	"regexp"
	"strings"
)

// fencePattern matches a completion wrapped in a markdown code fence,
// with or without a language tag: ```json { ... } ```
var fencePattern = regexp.MustCompile("(?is)^```(?:json)?\\s*(.*?)\\s*```$")

// StripFences removes markdown code-fence decoration from a completion so
// the remainder can be parsed as JSON. Models frequently fence their output
// despite instructions not to. When no fence is present the input is
// returned trimmed, unchanged.
func StripFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if matches := fencePattern.FindStringSubmatch(trimmed); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}
	return trimmed
}
