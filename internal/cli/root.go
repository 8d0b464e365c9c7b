package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/alaws-scottlogic/issue-scoring/internal/config"
	"github.com/alaws-scottlogic/issue-scoring/internal/settings"
	"github.com/alaws-scottlogic/issue-scoring/internal/version"
)

var (
	cfgFile      string
	settingsFile string
)

var rootCmd = &cobra.Command{
	Use:   "issue-scoring",
	Short: "issue-scoring - Human-in-the-loop triage of GitHub issues",
	Long: `issue-scoring walks through a repository's open issues that have no linked
pull request, oldest first. Issues already referenced by an open pull request
are skipped, each remaining issue's discussion is summarized by Gemini, and
you rate its type, ambiguity, scale and novelty. The session ends once enough
issues are fully scored and the ratings can be exported as CSV.

Example:
  issue-scoring triage --repo https://github.com/org/myapp`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Set version for --version flag
	rootCmd.Version = version.Short()
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .issue-scoring.yaml)")
	rootCmd.PersistentFlags().StringVar(&settingsFile, "settings", "", "settings file (default is "+settings.DefaultPath()+")")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable verbose output")
	_ = viper.BindPFlag("logging.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error getting working directory:", err)
			os.Exit(1)
		}

		viper.AddConfigPath(cwd)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".issue-scoring")
	}

	config.SetDefaults(viper.GetViper())
	config.ConfigureEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("logging.verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// openSettings loads the settings store selected by --settings.
func openSettings() (*settings.Store, error) {
	store := settings.NewStore(settingsFile)
	if err := store.Load(); err != nil {
		return nil, err
	}
	return store, nil
}
