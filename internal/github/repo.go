// Package github talks to the GitHub REST API on behalf of a triage session:
// issue search, PR-liveness checks via the issue timeline, comment fetches,
// and the credentials those calls carry.
package github

import (
	"errors"
	"strings"
)

// ErrInvalidRepoURL is returned when a repository URL has fewer than two
// path segments after trimming.
var ErrInvalidRepoURL = errors.New("invalid repository URL (expected https://github.com/owner/repo)")

// RepoRef identifies a repository by owner and name.
type RepoRef struct {
	Owner string
	Repo  string
}

// String returns the "owner/repo" form used in search qualifiers.
func (r RepoRef) String() string {
	return r.Owner + "/" + r.Repo
}

// ParseRepoURL extracts owner and repo from the last two path segments of
// raw. Only a single trailing slash is trimmed. The repository is not
// checked for existence; the first API call confirms it.
func ParseRepoURL(raw string) (RepoRef, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, "/")

	parts := strings.Split(s, "/")
	if len(parts) < 2 {
		return RepoRef{}, ErrInvalidRepoURL
	}

	owner := parts[len(parts)-2]
	repo := strings.TrimSuffix(parts[len(parts)-1], ".git")
	if owner == "" || repo == "" {
		return RepoRef{}, ErrInvalidRepoURL
	}

	return RepoRef{Owner: owner, Repo: repo}, nil
}
