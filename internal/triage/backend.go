package triage

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/alaws-scottlogic/issue-scoring/internal/github"
	"github.com/alaws-scottlogic/issue-scoring/internal/retry"
	"github.com/alaws-scottlogic/issue-scoring/internal/summarizer"
)

// SecretResolver expands credential references such as gcp-secret:name.
type SecretResolver interface {
	Resolve(ctx context.Context, value string) (string, error)
}

// BackendOptions configures NewBackendFactory.
type BackendOptions struct {
	GitHubBaseURL string
	GitHubTimeout time.Duration

	// AppTokens authenticates as a GitHub App when the session has no
	// personal access token.
	AppTokens github.TokenSource

	SummarizerEndpoint string
	SummarizerTimeout  time.Duration
	RetryPolicy        *retry.Policy

	// SummarizerPrompt replaces the built-in prompt when non-empty.
	SummarizerPrompt string

	Secrets SecretResolver
}

// NewBackendFactory returns a BackendFactory that builds a go-github client
// and a summarizer client for each session's credentials.
func NewBackendFactory(opts BackendOptions) BackendFactory {
	return func(ctx context.Context, creds Credentials) (Backend, error) {
		token, apiKey := creds.Token, creds.APIKey
		if opts.Secrets != nil {
			var err error
			if token, err = opts.Secrets.Resolve(ctx, token); err != nil {
				return Backend{}, fmt.Errorf("GitHub token: %w", err)
			}
			if apiKey, err = opts.Secrets.Resolve(ctx, apiKey); err != nil {
				return Backend{}, fmt.Errorf("API key: %w", err)
			}
		}

		ghOpts := []github.Option{}
		if opts.GitHubBaseURL != "" {
			ghOpts = append(ghOpts, github.WithBaseURL(opts.GitHubBaseURL))
		}
		if opts.GitHubTimeout > 0 {
			ghOpts = append(ghOpts, github.WithHTTPClient(&http.Client{Timeout: opts.GitHubTimeout}))
		}
		switch {
		case token != "":
			ghOpts = append(ghOpts, github.WithTokenSource(github.StaticToken(token)))
		case opts.AppTokens != nil:
			ghOpts = append(ghOpts, github.WithTokenSource(opts.AppTokens))
		}

		issues, err := github.NewClient(ghOpts...)
		if err != nil {
			return Backend{}, err
		}

		sumOpts := []summarizer.Option{}
		if opts.SummarizerEndpoint != "" {
			sumOpts = append(sumOpts, summarizer.WithEndpoint(opts.SummarizerEndpoint))
		}
		if opts.SummarizerTimeout > 0 {
			sumOpts = append(sumOpts, summarizer.WithHTTPClient(&http.Client{Timeout: opts.SummarizerTimeout}))
		}
		if opts.RetryPolicy != nil {
			sumOpts = append(sumOpts, summarizer.WithRetryPolicy(*opts.RetryPolicy))
		}
		if opts.SummarizerPrompt != "" {
			sumOpts = append(sumOpts, summarizer.WithPrompt(opts.SummarizerPrompt))
		}

		sum, err := summarizer.New(apiKey, sumOpts...)
		if err != nil {
			return Backend{}, &UserInputError{Field: "API key", Err: err}
		}

		return Backend{Issues: issues, Summarizer: sum}, nil
	}
}
