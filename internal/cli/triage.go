package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/alaws-scottlogic/issue-scoring/internal/cloud/gcp"
	"github.com/alaws-scottlogic/issue-scoring/internal/config"
	"github.com/alaws-scottlogic/issue-scoring/internal/github"
	"github.com/alaws-scottlogic/issue-scoring/internal/observability"
	"github.com/alaws-scottlogic/issue-scoring/internal/prompt"
	"github.com/alaws-scottlogic/issue-scoring/internal/retry"
	"github.com/alaws-scottlogic/issue-scoring/internal/triage"
	"github.com/alaws-scottlogic/issue-scoring/internal/tui"
)

const tracerShutdownTimeout = 10 * time.Second

var triageCmd = &cobra.Command{
	Use:   "triage",
	Short: "Start an interactive triage session",
	Long: `Start an interactive triage session against a GitHub repository.

Open issues without a linked pull request are fetched oldest first. Each one
is checked for an open cross-referencing pull request, summarized, and shown
for rating. The session completes after the target number of fully scored
issues (default 15), when the batch runs out, or when you finish early.

Flag values pre-fill the input form and override saved settings for this run
only. Edits made in the form are saved.

Example:
  issue-scoring triage
  issue-scoring triage --repo https://github.com/org/myapp --target 10 --out reports`,
	RunE: runTriage,
}

func init() {
	rootCmd.AddCommand(triageCmd)

	triageCmd.Flags().String("repo", "", "GitHub repository URL (https://github.com/owner/repo)")
	triageCmd.Flags().String("token", "", "GitHub personal access token")
	triageCmd.Flags().String("api-key", "", "Gemini API key")
	triageCmd.Flags().Int("target", 0, "number of fully scored issues that completes the session (default 15)")
	triageCmd.Flags().String("out", "", "directory the CSV report is written to")

	_ = viper.BindPFlag("session.repository", triageCmd.Flags().Lookup("repo"))
	_ = viper.BindPFlag("github.token", triageCmd.Flags().Lookup("token"))
	_ = viper.BindPFlag("summarizer.api_key", triageCmd.Flags().Lookup("api-key"))
	_ = viper.BindPFlag("session.target", triageCmd.Flags().Lookup("target"))
	_ = viper.BindPFlag("report.dir", triageCmd.Flags().Lookup("out"))
}

func runTriage(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := openSettings()
	if err != nil {
		return err
	}

	logs, err := openLogs(ctx, cfg.Logging)
	if err != nil {
		return err
	}
	defer logs.Close()

	secrets := gcp.NewSecretManagerResolver(cfg.Secrets.GCPProject, cfg.Secrets.CredentialsFile)
	defer func() {
		if err := secrets.Close(); err != nil {
			logs.logger.Printf("Warning: failed to close Secret Manager client: %v", err)
		}
	}()

	appTokens, err := newAppTokenSource(ctx, cfg, secrets)
	if err != nil {
		return err
	}

	delays, err := cfg.RetryDelays()
	if err != nil {
		return err
	}
	policy := retry.Policy{
		Delays: delays,
		Clock:  retry.RealClock{},
		OnRetry: func(attempt int, delay time.Duration, err error) {
			logs.logger.Printf("Warning: summarizer attempt %d failed, retrying in %s: %v", attempt, delay, err)
		},
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	summaryPrompt, err := prompt.Resolve(cfg.Summarizer.PromptFile, cwd)
	if err != nil {
		return err
	}

	tracer := newTracer(cfg.Langfuse, logs)
	defer func() {
		stopCtx, stop := context.WithTimeout(context.Background(), tracerShutdownTimeout)
		defer stop()
		if err := tracer.Stop(stopCtx); err != nil {
			logs.logger.Printf("Warning: failed to flush traces: %v", err)
		}
	}()

	factory := triage.NewBackendFactory(triage.BackendOptions{
		GitHubBaseURL:      cfg.GitHub.APIURL,
		GitHubTimeout:      cfg.GitHubTimeout(),
		AppTokens:          appTokens,
		SummarizerEndpoint: cfg.Summarizer.Endpoint,
		SummarizerTimeout:  cfg.SummarizerTimeout(),
		RetryPolicy:        &policy,
		SummarizerPrompt:   summaryPrompt,
		Secrets:            secrets,
	})

	engineOpts := []triage.EngineOption{
		triage.WithLogger(logs.logger),
		triage.WithTracer(tracer),
	}
	if logs.cloud != nil {
		engineOpts = append(engineOpts, triage.WithCloudLogger(logs.cloud))
	}
	engine := triage.NewEngine(factory, engineOpts...)

	err = tui.Run(ctx, tui.Options{
		Engine:    engine,
		Settings:  store,
		Target:    cfg.Session.Target,
		ReportDir: cfg.Report.Dir,
		RepoURL:   cfg.Session.Repository,
		Token:     cfg.GitHub.Token,
		APIKey:    cfg.Summarizer.APIKey,
	})
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Interrupted.")
		return nil
	}
	return err
}

func newTracer(cfg config.LangfuseConfig, logs *sessionLogs) observability.Tracer {
	if cfg.Disabled {
		return &observability.NoOpTracer{}
	}
	return observability.NewTracer(observability.LangfuseConfig{
		PublicKey: cfg.PublicKey,
		SecretKey: cfg.SecretKey,
		BaseURL:   cfg.BaseURL,
	}, logs.logger)
}

// newAppTokenSource returns nil when no GitHub App is configured. The private
// key comes from a file or, failing that, from Secret Manager.
func newAppTokenSource(ctx context.Context, cfg *config.Config, secrets *gcp.SecretResolver) (github.TokenSource, error) {
	if !cfg.UsesGitHubApp() {
		return nil, nil
	}

	var key []byte
	if cfg.GitHub.PrivateKeyPath != "" {
		data, err := os.ReadFile(cfg.GitHub.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read GitHub App private key: %w", err)
		}
		key = data
	} else {
		ref := cfg.GitHub.PrivateKeySecret
		if !gcp.IsSecretRef(ref) {
			ref = gcp.SecretRefPrefix + ref
		}
		value, err := secrets.Resolve(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch GitHub App private key: %w", err)
		}
		key = []byte(value)
	}

	src, err := github.NewAppTokenSource(github.AppCredentials{
		AppID:          strconv.FormatInt(cfg.GitHub.AppID, 10),
		InstallationID: cfg.GitHub.InstallationID,
		PrivateKey:     key,
	}, github.WithAppBaseURL(cfg.GitHub.APIURL))
	if err != nil {
		return nil, fmt.Errorf("invalid GitHub App credentials: %w", err)
	}
	return src, nil
}
