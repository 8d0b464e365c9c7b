// Package config loads issue-scoring's configuration from the config file,
// ISSUE_SCORING_* environment variables and command flags through viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// EnvPrefix is prepended to every environment override, for example
	// ISSUE_SCORING_SESSION_TARGET.
	EnvPrefix = "ISSUE_SCORING"

	defaultGitHubAPIURL = "https://api.github.com/"
	defaultEndpoint     = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent"
	defaultTarget       = 15
	maxTarget           = 100
)

var defaultRetryDelays = []string{"1s", "2s", "4s"}

// Config represents the full issue-scoring configuration
type Config struct {
	GitHub     GitHubConfig     `mapstructure:"github"`
	Summarizer SummarizerConfig `mapstructure:"summarizer"`
	Session    SessionConfig    `mapstructure:"session"`
	Report     ReportConfig     `mapstructure:"report"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Langfuse   LangfuseConfig   `mapstructure:"langfuse"`
	Secrets    SecretsConfig    `mapstructure:"secrets"`
}

// GitHubConfig contains API and authentication settings. Token takes
// precedence over the GitHub App fields.
type GitHubConfig struct {
	APIURL           string `mapstructure:"api_url"`
	Token            string `mapstructure:"token"`
	AppID            int64  `mapstructure:"app_id"`
	InstallationID   int64  `mapstructure:"installation_id"`
	PrivateKeyPath   string `mapstructure:"private_key_path"`
	PrivateKeySecret string `mapstructure:"private_key_secret"`
	Timeout          string `mapstructure:"timeout"`
}

// SummarizerConfig contains generateContent settings
type SummarizerConfig struct {
	Endpoint    string   `mapstructure:"endpoint"`
	APIKey      string   `mapstructure:"api_key"`
	Timeout     string   `mapstructure:"timeout"`
	RetryDelays []string `mapstructure:"retry_delays"`
	PromptFile  string   `mapstructure:"prompt_file"`
}

// SessionConfig contains per-session settings
type SessionConfig struct {
	Repository string `mapstructure:"repository"`
	Target     int    `mapstructure:"target"`
}

// ReportConfig controls where CSV reports are written
type ReportConfig struct {
	Dir string `mapstructure:"dir"`
}

// LoggingConfig contains the local log file and the optional Cloud Logging
// sink.
type LoggingConfig struct {
	File            string `mapstructure:"file"`
	Verbose         bool   `mapstructure:"verbose"`
	GCPProject      string `mapstructure:"gcp_project"`
	LogID           string `mapstructure:"log_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// LangfuseConfig contains tracing credentials. Tracing is off unless both
// keys are set.
type LangfuseConfig struct {
	PublicKey string `mapstructure:"public_key"`
	SecretKey string `mapstructure:"secret_key"`
	BaseURL   string `mapstructure:"base_url"`
	Disabled  bool   `mapstructure:"disabled"`
}

// SecretsConfig controls resolution of gcp-secret: references
type SecretsConfig struct {
	GCPProject      string `mapstructure:"gcp_project"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// SetDefaults registers every key with v so environment variables are
// picked up by Unmarshal even when the config file omits the key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("github.api_url", defaultGitHubAPIURL)
	v.SetDefault("github.token", "")
	v.SetDefault("github.app_id", 0)
	v.SetDefault("github.installation_id", 0)
	v.SetDefault("github.private_key_path", "")
	v.SetDefault("github.private_key_secret", "")
	v.SetDefault("github.timeout", "30s")
	v.SetDefault("summarizer.endpoint", defaultEndpoint)
	v.SetDefault("summarizer.api_key", "")
	v.SetDefault("summarizer.timeout", "60s")
	v.SetDefault("summarizer.retry_delays", defaultRetryDelays)
	v.SetDefault("summarizer.prompt_file", "")
	v.SetDefault("session.repository", "")
	v.SetDefault("session.target", defaultTarget)
	v.SetDefault("report.dir", ".")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.verbose", false)
	v.SetDefault("logging.gcp_project", "")
	v.SetDefault("logging.log_id", "issue-scoring")
	v.SetDefault("logging.credentials_file", "")
	v.SetDefault("langfuse.public_key", "")
	v.SetDefault("langfuse.secret_key", "")
	v.SetDefault("langfuse.base_url", "")
	v.SetDefault("langfuse.disabled", false)
	v.SetDefault("secrets.gcp_project", "")
	v.SetDefault("secrets.credentials_file", "")
}

// ConfigureEnv enables ISSUE_SCORING_* overrides on v.
func ConfigureEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load loads configuration from the global viper instance
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom loads configuration from v
func LoadFrom(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults sets default values for unset fields
func applyDefaults(cfg *Config) {
	if cfg.GitHub.APIURL == "" {
		cfg.GitHub.APIURL = defaultGitHubAPIURL
	}
	if cfg.GitHub.Timeout == "" {
		cfg.GitHub.Timeout = "30s"
	}

	if cfg.Summarizer.Endpoint == "" {
		cfg.Summarizer.Endpoint = defaultEndpoint
	}
	if cfg.Summarizer.Timeout == "" {
		cfg.Summarizer.Timeout = "60s"
	}
	if len(cfg.Summarizer.RetryDelays) == 0 {
		cfg.Summarizer.RetryDelays = append([]string(nil), defaultRetryDelays...)
	}

	if cfg.Session.Target == 0 {
		cfg.Session.Target = defaultTarget
	}

	if cfg.Report.Dir == "" {
		cfg.Report.Dir = "."
	}

	if cfg.Logging.File == "" {
		cfg.Logging.File = DefaultLogFile()
	}
	if cfg.Logging.LogID == "" {
		cfg.Logging.LogID = "issue-scoring"
	}

	// Langfuse keys are also honored under their conventional names.
	if os.Getenv("LANGFUSE_ENABLED") == "false" {
		cfg.Langfuse.Disabled = true
	}
	if cfg.Langfuse.PublicKey == "" {
		cfg.Langfuse.PublicKey = os.Getenv("LANGFUSE_PUBLIC_KEY")
	}
	if cfg.Langfuse.SecretKey == "" {
		cfg.Langfuse.SecretKey = os.Getenv("LANGFUSE_SECRET_KEY")
	}
	if cfg.Langfuse.BaseURL == "" {
		cfg.Langfuse.BaseURL = os.Getenv("LANGFUSE_BASE_URL")
	}

	if cfg.Secrets.GCPProject == "" {
		cfg.Secrets.GCPProject = cfg.Logging.GCPProject
	}
	if cfg.Secrets.CredentialsFile == "" {
		cfg.Secrets.CredentialsFile = cfg.Logging.CredentialsFile
	}
}

// DefaultLogFile returns issue-scoring.log under the user's state
// directory. The TUI owns stdout, so logs never go there.
func DefaultLogFile() string {
	dir := os.Getenv("XDG_STATE_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "issue-scoring.log"
		}
		dir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(dir, "issue-scoring", "issue-scoring.log")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Session.Target < 1 || c.Session.Target > maxTarget {
		return fmt.Errorf("invalid session target: %d (must be between 1 and %d)", c.Session.Target, maxTarget)
	}

	if _, err := parseDuration("github.timeout", c.GitHub.Timeout); err != nil {
		return err
	}
	if _, err := parseDuration("summarizer.timeout", c.Summarizer.Timeout); err != nil {
		return err
	}
	if _, err := c.RetryDelays(); err != nil {
		return err
	}

	if c.GitHub.AppID != 0 || c.GitHub.InstallationID != 0 {
		if c.GitHub.AppID == 0 {
			return fmt.Errorf("GitHub App ID is required when installation_id is set")
		}
		if c.GitHub.InstallationID == 0 {
			return fmt.Errorf("GitHub App Installation ID is required when app_id is set")
		}
		if c.GitHub.PrivateKeyPath == "" && c.GitHub.PrivateKeySecret == "" {
			return fmt.Errorf("GitHub App private key path or secret is required")
		}
	}

	if (c.Langfuse.PublicKey == "") != (c.Langfuse.SecretKey == "") {
		return fmt.Errorf("langfuse public_key and secret_key must be set together")
	}

	return nil
}

// UsesGitHubApp reports whether GitHub App credentials are configured.
func (c *Config) UsesGitHubApp() bool {
	return c.GitHub.AppID != 0 && c.GitHub.InstallationID != 0
}

// GitHubTimeout returns the parsed GitHub request timeout.
func (c *Config) GitHubTimeout() time.Duration {
	d, _ := parseDuration("github.timeout", c.GitHub.Timeout)
	return d
}

// SummarizerTimeout returns the parsed per-attempt summarizer timeout.
func (c *Config) SummarizerTimeout() time.Duration {
	d, _ := parseDuration("summarizer.timeout", c.Summarizer.Timeout)
	return d
}

// RetryDelays returns the summarizer backoff schedule.
func (c *Config) RetryDelays() ([]time.Duration, error) {
	delays := make([]time.Duration, 0, len(c.Summarizer.RetryDelays))
	for _, s := range c.Summarizer.RetryDelays {
		d, err := parseDuration("summarizer.retry_delays", s)
		if err != nil {
			return nil, err
		}
		delays = append(delays, d)
	}
	return delays, nil
}

func parseDuration(key, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: %s is negative", key, s)
	}
	return d, nil
}
