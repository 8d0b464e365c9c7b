package wizard

import (
	"testing"

	"github.com/alaws-scottlogic/issue-scoring/internal/settings"
)

func TestValidateRepoURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "empty is allowed", input: "", wantErr: false},
		{name: "whitespace only", input: "   ", wantErr: false},
		{name: "full URL", input: "https://github.com/acme/widget", wantErr: false},
		{name: "trailing slash", input: "https://github.com/acme/widget/", wantErr: false},
		{name: "owner/repo", input: "acme/widget", wantErr: false},
		{name: "single segment", input: "widget", wantErr: true},
		{name: "double trailing slash", input: "https://github.com/acme/widget//", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateRepoURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateRepoURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateCredential(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "empty", input: "", wantErr: false},
		{name: "token", input: "ghp_abc123", wantErr: false},
		{name: "surrounding whitespace", input: "  ghp_abc123 \n", wantErr: false},
		{name: "secret reference", input: "gcp-secret:gemini-key", wantErr: false},
		{name: "inner space", input: "ghp abc", wantErr: true},
		{name: "inner tab", input: "ghp\tabc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateCredential(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateCredential(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	got := normalize(settings.Settings{
		RepoURL:      " https://github.com/acme/widget ",
		GitHubToken:  "ghp_abc\n",
		GeminiAPIKey: "\tkey",
	})
	want := settings.Settings{
		RepoURL:      "https://github.com/acme/widget",
		GitHubToken:  "ghp_abc",
		GeminiAPIKey: "key",
	}
	if got != want {
		t.Errorf("normalize() = %+v, want %+v", got, want)
	}
}
