// Package summarizer asks a Gemini generateContent endpoint for a one
// paragraph digest of an issue thread.
package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alaws-scottlogic/issue-scoring/internal/github"
	"github.com/alaws-scottlogic/issue-scoring/internal/prompt"
	"github.com/alaws-scottlogic/issue-scoring/internal/retry"
	"github.com/alaws-scottlogic/issue-scoring/internal/template"
)

const (
	// DefaultEndpoint is the generateContent URL for the default model.
	DefaultEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent"

	// FallbackSummary is returned when a successful response carries no text.
	FallbackSummary = "Could not generate summary."

	// Prompt is prepended to the issue text.
	Prompt = "Summarize the following GitHub issue and its discussion as a single dense paragraph. " +
		"Do not use bullet points, headings or lists. Focus on the problem, the proposed " +
		"solutions and any open questions.\n\n"

	maxResponseBytes = 1 << 20
)

// ErrMissingAPIKey is returned by New when no key is supplied.
var ErrMissingAPIKey = errors.New("summarizer API key is required")

// StatusError is a non-2xx response from the endpoint.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("summarizer returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("summarizer returned status %d: %s", e.StatusCode, e.Message)
}

// Client calls the generateContent endpoint with the configured retry policy.
type Client struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	policy     retry.Policy
	prompt     string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithEndpoint overrides the generateContent URL.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// WithRetryPolicy replaces the default 1s/2s/4s schedule.
func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Client) {
		c.policy = p
	}
}

// WithPrompt replaces Prompt. A {{issue}} placeholder marks where the issue
// text goes; without one the text is appended. Empty keeps the default.
func WithPrompt(p string) Option {
	return func(c *Client) {
		if p != "" {
			c.prompt = p
		}
	}
}

// New creates a Client for apiKey.
func New(apiKey string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	c := &Client{
		apiKey:     apiKey,
		endpoint:   DefaultEndpoint,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		policy:     retry.DefaultPolicy(),
		prompt:     Prompt,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Model returns the model name embedded in the endpoint path, for tracing.
func (c *Client) Model() string {
	path := c.endpoint
	if u, err := url.Parse(c.endpoint); err == nil {
		path = u.Path
	}
	name := path[strings.LastIndex(path, "/")+1:]
	if i := strings.Index(name, ":"); i >= 0 {
		name = name[:i]
	}
	return name
}

// BuildInput renders an issue and its comments as the text to summarize.
func BuildInput(issue github.Issue, comments []github.Comment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n\n", issue.Title)
	if issue.Body != "" {
		fmt.Fprintf(&b, "Body:\n%s\n", issue.Body)
	}
	if len(comments) > 0 {
		b.WriteString("\nComments:\n")
		for _, c := range comments {
			fmt.Fprintf(&b, "- User %s: %s\n", c.Login, c.Body)
		}
	}
	return b.String()
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Summarize returns a one paragraph summary of text. Each non-2xx response
// or transport failure is retried on the policy's schedule; the last error
// is returned once the schedule is exhausted.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: c.input(text)}}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	return retry.Do(ctx, c.policy, func(ctx context.Context) (string, error) {
		return c.generate(ctx, body)
	})
}

func (c *Client) input(text string) string {
	if !template.Contains(c.prompt, prompt.IssueVariable) {
		return c.prompt + text
	}
	return template.Render(c.prompt, map[string]string{prompt.IssueVariable: text})
}

func (c *Client) generate(ctx context.Context, body []byte) (string, error) {
	endpoint, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid summarizer endpoint: %w", err)
	}
	q := endpoint.Query()
	q.Set("key", c.apiKey)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// url.Error embeds the request URL, which carries the key.
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return "", fmt.Errorf("summarizer request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.Unmarshal(raw, &apiErr)
		return "", &StatusError{StatusCode: resp.StatusCode, Message: apiErr.Error.Message}
	}

	var parsed generateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return FallbackSummary, nil
	}
	text := strings.TrimSpace(parsed.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return FallbackSummary, nil
	}
	return text, nil
}
