package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/alaws-scottlogic/issue-scoring/internal/config"
)

const projectConfigName = ".issue-scoring.yaml"

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize project configuration",
	Long: `Initialize issue-scoring configuration for the current directory.

This creates a .issue-scoring.yaml file with sensible defaults that you can
customize. Credentials are not written; use 'issue-scoring configure' or the
ISSUE_SCORING_* environment variables for those.

Example:
  issue-scoring init
  issue-scoring init --repo https://github.com/org/myapp --target 10`,
	RunE: initProject,
}

func init() {
	rootCmd.AddCommand(initCmd)
	addInitFlags(initCmd)
}

func addInitFlags(cmd *cobra.Command) {
	cmd.Flags().String("repo", "", "GitHub repository URL")
	cmd.Flags().Int("target", 15, "Fully scored issues per session")
	cmd.Flags().String("out", ".", "Report output directory")
	cmd.Flags().String("dir", ".", "Directory to write the config file in")
	cmd.Flags().Bool("force", false, "Overwrite existing config")
}

type projectConfig struct {
	Session struct {
		Repository string `yaml:"repository"`
		Target     int    `yaml:"target"`
	} `yaml:"session"`
	Report struct {
		Dir string `yaml:"dir"`
	} `yaml:"report"`
	GitHub struct {
		APIURL  string `yaml:"api_url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"github"`
	Summarizer struct {
		Timeout     string   `yaml:"timeout"`
		RetryDelays []string `yaml:"retry_delays"`
	} `yaml:"summarizer"`
}

func initProject(cmd *cobra.Command, args []string) error {
	dir, _ := cmd.Flags().GetString("dir")
	configPath := filepath.Join(dir, projectConfigName)

	force, _ := cmd.Flags().GetBool("force")
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", configPath)
	}

	defaults, err := config.LoadFrom(defaultViper())
	if err != nil {
		return err
	}

	cfg := projectConfig{}
	cfg.Session.Repository, _ = cmd.Flags().GetString("repo")
	cfg.Session.Target, _ = cmd.Flags().GetInt("target")
	cfg.Report.Dir, _ = cmd.Flags().GetString("out")
	cfg.GitHub.APIURL = defaults.GitHub.APIURL
	cfg.GitHub.Timeout = defaults.GitHub.Timeout
	cfg.Summarizer.Timeout = defaults.Summarizer.Timeout
	cfg.Summarizer.RetryDelays = defaults.Summarizer.RetryDelays

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := `# issue-scoring configuration
# Credentials belong in the settings file ('issue-scoring configure') or in
# ISSUE_SCORING_GITHUB_TOKEN / ISSUE_SCORING_SUMMARIZER_API_KEY.

`

	if err := os.WriteFile(configPath, append([]byte(header), data...), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created %s\n\n", configPath)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  1. Set the repository URL if you did not pass --repo")
	fmt.Fprintln(out, "  2. Run 'issue-scoring configure' to store your GitHub token and Gemini API key")
	fmt.Fprintln(out, "  3. Run 'issue-scoring triage' to start a session")

	return nil
}

// defaultViper holds only the built-in defaults, ignoring files and
// environment.
func defaultViper() *viper.Viper {
	v := viper.New()
	config.SetDefaults(v)
	return v
}
