// Package template substitutes {{name}} placeholders in summarization
// prompts.
package template

import (
	"regexp"
)

// variablePattern matches {{name}} placeholders and captures the name.
var variablePattern = regexp.MustCompile(`\{\{([a-zA-Z_][a-zA-Z0-9_]*)\}\}`)

// Render replaces each known placeholder in prompt with its value. Unknown
// placeholders are left as-is. Substituted values are not scanned again, so
// issue text containing braces passes through untouched.
func Render(prompt string, vars map[string]string) string {
	if len(vars) == 0 {
		return prompt
	}

	return variablePattern.ReplaceAllStringFunc(prompt, func(match string) string {
		name := match[2 : len(match)-2]
		if value, ok := vars[name]; ok {
			return value
		}
		return match
	})
}

// Placeholders returns the distinct placeholder names in prompt in order of
// first appearance.
func Placeholders(prompt string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range variablePattern.FindAllStringSubmatch(prompt, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// Contains reports whether prompt references the named placeholder.
func Contains(prompt, name string) bool {
	for _, n := range Placeholders(prompt) {
		if n == name {
			return true
		}
	}
	return false
}
