// Package prompt loads a custom summarization prompt in place of the
// built-in one.
package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alaws-scottlogic/issue-scoring/internal/template"
)

// IssueVariable is replaced by the issue text. A prompt that omits it has
// the text appended.
const IssueVariable = "issue"

// ProjectPromptPath is where a project-local prompt is looked up, relative
// to the working directory.
var ProjectPromptPath = filepath.Join(".issue-scoring", "PROMPT.md")

// Load reads the prompt at path. The file must be non-empty and may only
// reference {{issue}}.
func Load(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt %s: %w", path, err)
	}
	return parse(path, data)
}

// LoadProject reads ProjectPromptPath under workDir. Returns an empty
// string with nil error if the file does not exist.
func LoadProject(workDir string) (string, error) {
	path := filepath.Join(workDir, ProjectPromptPath)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read project prompt %s: %w", path, err)
	}

	return parse(path, data)
}

// Resolve returns the prompt at configured when set, otherwise the project
// prompt under workDir if there is one. An empty result means the built-in
// prompt applies.
func Resolve(configured, workDir string) (string, error) {
	if configured != "" {
		return Load(configured)
	}
	return LoadProject(workDir)
}

func parse(path string, data []byte) (string, error) {
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("prompt %s is empty", path)
	}
	for _, name := range template.Placeholders(text) {
		if name != IssueVariable {
			return "", fmt.Errorf("prompt %s: unknown placeholder {{%s}}", path, name)
		}
	}
	if !template.Contains(text, IssueVariable) {
		text += "\n\n"
	}
	return text, nil
}
