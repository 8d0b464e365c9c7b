package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gh "github.com/google/go-github/v72/github"
)

const (
	// DefaultBaseURL is the public GitHub REST endpoint.
	DefaultBaseURL = "https://api.github.com/"

	// BatchSize caps a session to a single page of search results.
	BatchSize = 100

	mediaTypeV3 = "application/vnd.github.v3+json"
)

// Issue is the subset of a search result the session works with.
type Issue struct {
	Number      int
	Title       string
	Body        string
	HTMLURL     string
	URL         string
	CommentsURL string
	CreatedAt   time.Time
	Comments    int
}

// Comment is one entry of an issue's discussion thread.
type Comment struct {
	Login string
	Body  string
}

// Result is the outcome of a PR-liveness check. Blocked is false whenever Err
// is set: a failed check never holds up the session.
type Result struct {
	Blocked bool
	Err     error
}

// Client wraps a go-github client configured for one session's credentials.
type Client struct {
	gh *gh.Client
}

type clientOptions struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenSource
}

// Option configures a Client.
type Option func(*clientOptions)

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(client *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = client
	}
}

// WithBaseURL points the client at a different API root (GitHub Enterprise
// or a test server).
func WithBaseURL(u string) Option {
	return func(o *clientOptions) {
		o.baseURL = u
	}
}

// WithTokenSource authenticates every request with the source's token.
func WithTokenSource(src TokenSource) Option {
	return func(o *clientOptions) {
		o.tokens = src
	}
}

// NewClient creates a Client. Without a token source requests are
// unauthenticated and subject to the anonymous rate limit.
func NewClient(opts ...Option) (*Client, error) {
	o := &clientOptions{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(o)
	}

	hc := *o.httpClient
	hc.Transport = &authTransport{base: o.httpClient.Transport, tokens: o.tokens}

	client := gh.NewClient(&hc)

	base := o.baseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid GitHub API URL %q: %w", o.baseURL, err)
	}
	client.BaseURL = u

	return &Client{gh: client}, nil
}

// SearchQuery returns the search qualifier for open issues of ref that have
// no linked pull request.
func SearchQuery(ref RepoRef) string {
	return fmt.Sprintf("repo:%s is:issue is:open -linked:pr", ref)
}

// SearchIssues runs the single batch search for a session, oldest first.
// There is no retry here: one failed attempt fails the fetch. The request
// carries the v3 media type, not the reactions preview Search.Issues sends.
func (c *Client) SearchIssues(ctx context.Context, ref RepoRef) ([]Issue, error) {
	params := url.Values{}
	params.Set("q", SearchQuery(ref))
	params.Set("sort", "created")
	params.Set("order", "asc")
	params.Set("per_page", strconv.Itoa(BatchSize))

	req, err := c.gh.NewRequest(http.MethodGet, "search/issues?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Accept", mediaTypeV3)

	result := new(gh.IssuesSearchResult)
	if resp, err := c.gh.Do(ctx, req, result); err != nil {
		return nil, classifyError(resp, err)
	}
	if len(result.Issues) == 0 {
		return nil, ErrNoIssues
	}

	issues := make([]Issue, 0, len(result.Issues))
	for _, it := range result.Issues {
		issues = append(issues, Issue{
			Number:      it.GetNumber(),
			Title:       it.GetTitle(),
			Body:        it.GetBody(),
			HTMLURL:     it.GetHTMLURL(),
			URL:         it.GetURL(),
			CommentsURL: it.GetCommentsURL(),
			CreatedAt:   it.GetCreatedAt().Time,
			Comments:    it.GetComments(),
		})
	}
	return issues, nil
}

// HasOpenPR reports whether an open pull request cross-references issue.
// Transport and decoding failures are returned in Result.Err with Blocked
// left false.
func (c *Client) HasOpenPR(ctx context.Context, issue Issue) Result {
	if issue.URL == "" {
		return Result{Err: fmt.Errorf("issue #%d has no API URL", issue.Number)}
	}

	req, err := c.gh.NewRequest(http.MethodGet, issue.URL+"/timeline?per_page=100", nil)
	if err != nil {
		return Result{Err: fmt.Errorf("build timeline request: %w", err)}
	}
	req.Header.Set("Accept", mediaTypeV3)

	var events []*gh.Timeline
	if resp, err := c.gh.Do(ctx, req, &events); err != nil {
		return Result{Err: classifyError(resp, err)}
	}

	return Result{Blocked: hasOpenCrossReference(events)}
}

func hasOpenCrossReference(events []*gh.Timeline) bool {
	for _, ev := range events {
		if ev == nil || ev.GetEvent() != "cross-referenced" || ev.Source == nil {
			continue
		}
		src := ev.Source.Issue
		if src == nil || src.PullRequestLinks == nil {
			continue
		}
		if src.GetState() == "open" {
			return true
		}
	}
	return false
}

// ListComments fetches the first page of an issue's comments.
func (c *Client) ListComments(ctx context.Context, issue Issue) ([]Comment, error) {
	if issue.CommentsURL == "" {
		return nil, nil
	}

	req, err := c.gh.NewRequest(http.MethodGet, issue.CommentsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build comments request: %w", err)
	}
	req.Header.Set("Accept", mediaTypeV3)

	var raw []*gh.IssueComment
	if resp, err := c.gh.Do(ctx, req, &raw); err != nil {
		return nil, classifyError(resp, err)
	}

	comments := make([]Comment, 0, len(raw))
	for _, rc := range raw {
		comments = append(comments, Comment{
			Login: rc.GetUser().GetLogin(),
			Body:  rc.GetBody(),
		})
	}
	return comments, nil
}
