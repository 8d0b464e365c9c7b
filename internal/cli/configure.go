package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alaws-scottlogic/issue-scoring/internal/cli/wizard"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Interactively set the repository URL and credentials",
	Long: `Prompt for the repository URL, GitHub token and Gemini API key and save
them to the settings file. Current values are offered as defaults.

Example:
  issue-scoring configure`,
	RunE: runConfigure,
}

func init() {
	rootCmd.AddCommand(configureCmd)
}

func runConfigure(cmd *cobra.Command, args []string) error {
	store, err := openSettings()
	if err != nil {
		return err
	}

	next, err := wizard.PromptSettings(store.Settings())
	if err != nil {
		return err
	}

	if err := store.Save(next); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Saved settings to %s\n", store.Path())
	return nil
}
