package settings

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	want := filepath.Join("/xdg", "issue-scoring", "settings.yaml")
	if got := DefaultPath(); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestStore_LoadMissingFile(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "missing.yaml"))
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Settings() != (Settings{}) {
		t.Errorf("expected empty settings, got %+v", s.Settings())
	}
}

func TestStore_SetPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.yaml")
	s := NewStore(path)

	if err := s.Set(KeyRepoURL, "https://github.com/acme/widget"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(KeyGeminiAPIKey, "gemini-key"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("expected 0600, got %o", perm)
	}

	reloaded := NewStore(path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Settings{RepoURL: "https://github.com/acme/widget", GeminiAPIKey: "gemini-key"}
	if reloaded.Settings() != want {
		t.Errorf("expected %+v, got %+v", want, reloaded.Settings())
	}

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), KeyGitHubToken) {
		t.Errorf("empty values should be omitted, got:\n%s", data)
	}
}

func TestStore_UnchangedValueDoesNotWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	s := NewStore(path)

	if err := s.Set(KeyGitHubToken, ""); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected no file for an unchanged value, got %v", err)
	}
}

func TestStore_Save(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	s := NewStore(path)
	values := Settings{RepoURL: "r", GitHubToken: "t", GeminiAPIKey: "k"}

	if err := s.Save(values); err != nil {
		t.Fatalf("Save: %v", err)
	}
	for _, key := range Keys {
		got, err := s.Get(key)
		if err != nil {
			t.Fatalf("Get(%s): %v", key, err)
		}
		want, _ := values.Get(key)
		if got != want {
			t.Errorf("Get(%s) = %q, want %q", key, got, want)
		}
	}
}

func TestStore_UnknownKey(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "settings.yaml"))
	if err := s.Set("password", "x"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("expected ErrUnknownKey, got %v", err)
	}
	if _, err := s.Get("password"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("expected ErrUnknownKey, got %v", err)
	}
}

func TestStore_LoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte("repo_url: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := NewStore(path).Load(); err == nil {
		t.Error("expected parse error")
	}
}
