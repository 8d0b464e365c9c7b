// Package wizard provides interactive prompts for CLI commands.
package wizard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/alaws-scottlogic/issue-scoring/internal/github"
	"github.com/alaws-scottlogic/issue-scoring/internal/settings"
)

// PromptSettings asks for the repository URL and credentials, pre-filled
// with current. Credentials are echoed as password fields.
func PromptSettings(current settings.Settings) (settings.Settings, error) {
	next := current

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Triage Settings").
				Description("Values are stored in " + settings.DefaultPath() + ".\nCredentials may also be gcp-secret: references."),

			huh.NewInput().
				Title("Repository URL").
				Placeholder("https://github.com/owner/repo").
				Value(&next.RepoURL).
				Validate(validateRepoURL),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("GitHub Token (optional)").
				Description("Raises the API rate limit and allows private repositories.").
				EchoMode(huh.EchoModePassword).
				Value(&next.GitHubToken).
				Validate(validateCredential),

			huh.NewInput().
				Title("Gemini API Key").
				EchoMode(huh.EchoModePassword).
				Value(&next.GeminiAPIKey).
				Validate(validateCredential),
		),
	)

	if err := form.Run(); err != nil {
		return current, fmt.Errorf("prompt cancelled: %w", err)
	}

	return normalize(next), nil
}

func validateRepoURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	_, err := github.ParseRepoURL(s)
	return err
}

func validateCredential(s string) error {
	if strings.ContainsAny(strings.TrimSpace(s), " \t\n") {
		return errors.New("must not contain whitespace")
	}
	return nil
}

func normalize(s settings.Settings) settings.Settings {
	s.RepoURL = strings.TrimSpace(s.RepoURL)
	s.GitHubToken = strings.TrimSpace(s.GitHubToken)
	s.GeminiAPIKey = strings.TrimSpace(s.GeminiAPIKey)
	return s
}
