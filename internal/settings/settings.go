// Package settings persists the values typed into the session form: the
// repository URL, the GitHub token and the Gemini API key.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Fixed setting names, shared by the file format and the CLI.
const (
	KeyRepoURL      = "repo_url"
	KeyGitHubToken  = "github_token"
	KeyGeminiAPIKey = "gemini_api_key"
)

// Keys lists every setting in display order.
var Keys = []string{KeyRepoURL, KeyGitHubToken, KeyGeminiAPIKey}

// ErrUnknownKey is returned for a name outside Keys.
var ErrUnknownKey = errors.New("unknown setting")

// Settings is the persisted form.
type Settings struct {
	RepoURL      string `yaml:"repo_url,omitempty"`
	GitHubToken  string `yaml:"github_token,omitempty"`
	GeminiAPIKey string `yaml:"gemini_api_key,omitempty"`
}

// Get returns the value stored under key.
func (s Settings) Get(key string) (string, error) {
	switch key {
	case KeyRepoURL:
		return s.RepoURL, nil
	case KeyGitHubToken:
		return s.GitHubToken, nil
	case KeyGeminiAPIKey:
		return s.GeminiAPIKey, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
}

func (s *Settings) set(key, value string) error {
	switch key {
	case KeyRepoURL:
		s.RepoURL = value
	case KeyGitHubToken:
		s.GitHubToken = value
	case KeyGeminiAPIKey:
		s.GeminiAPIKey = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return nil
}

// DefaultPath returns settings.yaml under $XDG_CONFIG_HOME/issue-scoring,
// falling back to ~/.config.
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "issue-scoring", "settings.yaml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "issue-scoring", "settings.yaml")
}

// Store is a settings file. Every change is written through immediately.
type Store struct {
	path string

	mu       sync.Mutex
	settings Settings
}

// NewStore returns a Store backed by path. Call Load to read it.
func NewStore(path string) *Store {
	if path == "" {
		path = DefaultPath()
	}
	return &Store{path: path}
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Load reads the file. A missing file leaves the settings empty.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read settings: %w", err)
	}

	var loaded Settings
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("parse settings %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.settings = loaded
	s.mu.Unlock()
	return nil
}

// Settings returns a copy of the current values.
func (s *Store) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Get returns a single value.
func (s *Store) Get(key string) (string, error) {
	return s.Settings().Get(key)
}

// Set changes one value and persists the file if it changed.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.settings
	if err := next.set(key, value); err != nil {
		return err
	}
	return s.commit(next)
}

// Save replaces every value and persists the file if anything changed.
func (s *Store) Save(next Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(next)
}

func (s *Store) commit(next Settings) error {
	if next == s.settings {
		return nil
	}
	if err := write(s.path, next); err != nil {
		return err
	}
	s.settings = next
	return nil
}

// write stores values with owner-only permissions; the file holds
// credentials.
func write(path string, values Settings) error {
	data, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".settings-*.yaml")
	if err != nil {
		return fmt.Errorf("create settings file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}
