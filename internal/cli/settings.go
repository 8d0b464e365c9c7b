package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alaws-scottlogic/issue-scoring/internal/security"
	"github.com/alaws-scottlogic/issue-scoring/internal/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect or change saved settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print saved settings with credentials masked",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Save a single setting",
	Long: `Save a single setting. Keys: ` + strings.Join(settings.Keys, ", ") + `.

Example:
  issue-scoring settings set repo_url https://github.com/org/myapp
  issue-scoring settings set gemini_api_key gcp-secret:gemini-key`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the settings file location",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), settings.NewStore(settingsFile).Path())
	},
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd, settingsPathCmd)
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	store, err := openSettings()
	if err != nil {
		return err
	}
	s := store.Settings()

	repo := s.RepoURL
	if repo == "" {
		repo = "(not set)"
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Settings file: %s\n\n", store.Path())
	fmt.Fprintf(out, "  %-16s %s\n", settings.KeyRepoURL, repo)
	fmt.Fprintf(out, "  %-16s %s\n", settings.KeyGitHubToken, security.Mask(s.GitHubToken))
	fmt.Fprintf(out, "  %-16s %s\n", settings.KeyGeminiAPIKey, security.Mask(s.GeminiAPIKey))
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	store, err := openSettings()
	if err != nil {
		return err
	}

	key, value := args[0], strings.TrimSpace(args[1])
	if err := store.Set(key, value); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s to %s\n", key, store.Path())
	return nil
}
