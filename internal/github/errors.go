package github

import (
	"errors"
	"fmt"
	"net/http"

	gh "github.com/google/go-github/v72/github"
)

// ErrNoIssues is returned when the search succeeds but matches nothing.
var ErrNoIssues = errors.New("no open issues without linked PRs found in this repository")

// ErrorKind classifies a failed GitHub API call.
type ErrorKind int

const (
	// KindAPI covers transport failures and any unexpected status.
	KindAPI ErrorKind = iota
	// KindRateLimited is a 403; usually the unauthenticated quota.
	KindRateLimited
	// KindNotFound is a 404 for the repository.
	KindNotFound
	// KindValidation is a 422, typically a malformed owner/repo.
	KindValidation
)

func (k ErrorKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	default:
		return "api"
	}
}

// APIError is the error surfaced by Client calls that the session reports to
// the operator.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	switch e.Kind {
	case KindRateLimited:
		return "GitHub API rate limit exceeded: provide a personal access token to continue"
	case KindNotFound:
		return "repository not found: check the owner and name, or provide a token for private repositories"
	case KindValidation:
		return "GitHub rejected the search query: check the repository URL"
	}
	if e.StatusCode == 0 {
		return fmt.Sprintf("GitHub API request failed: %v", e.Err)
	}
	return fmt.Sprintf("GitHub API error (status %d)", e.StatusCode)
}

func (e *APIError) Unwrap() error { return e.Err }

// Retryable reports whether re-running the whole fetch may succeed without
// the operator changing the repository URL.
func (e *APIError) Retryable() bool {
	return e.Kind == KindRateLimited || e.Kind == KindAPI
}

// classifyError maps a go-github error into an APIError. resp may be nil.
func classifyError(resp *gh.Response, err error) error {
	if err == nil {
		return nil
	}

	status := 0
	if resp != nil && resp.Response != nil {
		status = resp.StatusCode
	}

	var rateErr *gh.RateLimitError
	var abuseErr *gh.AbuseRateLimitError
	var respErr *gh.ErrorResponse
	switch {
	case errors.As(err, &rateErr):
		return &APIError{Kind: KindRateLimited, StatusCode: http.StatusForbidden, Err: err}
	case errors.As(err, &abuseErr):
		return &APIError{Kind: KindRateLimited, StatusCode: http.StatusForbidden, Err: err}
	case errors.As(err, &respErr) && respErr.Response != nil:
		status = respErr.Response.StatusCode
	}

	switch status {
	case http.StatusForbidden:
		return &APIError{Kind: KindRateLimited, StatusCode: status, Err: err}
	case http.StatusNotFound:
		return &APIError{Kind: KindNotFound, StatusCode: status, Err: err}
	case http.StatusUnprocessableEntity:
		return &APIError{Kind: KindValidation, StatusCode: status, Err: err}
	default:
		return &APIError{Kind: KindAPI, StatusCode: status, Err: err}
	}
}
