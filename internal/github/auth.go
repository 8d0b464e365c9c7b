package github

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// TokenSource supplies the credential sent with each GitHub request. An
// empty token means the request goes out unauthenticated.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a personal access token entered by the operator.
type StaticToken string

// Token returns the trimmed token.
func (s StaticToken) Token(context.Context) (string, error) {
	return strings.TrimSpace(string(s)), nil
}

// authTransport adds the v3 Accept header and "Authorization: token ..." to
// every request.
type authTransport struct {
	base   http.RoundTripper
	tokens TokenSource
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}

	out := req.Clone(req.Context())
	if out.Header.Get("Accept") == "" {
		out.Header.Set("Accept", mediaTypeV3)
	}

	if t.tokens != nil {
		token, err := t.tokens.Token(req.Context())
		if err != nil {
			return nil, fmt.Errorf("resolve GitHub token: %w", err)
		}
		if token != "" {
			out.Header.Set("Authorization", "token "+token)
		}
	}

	return base.RoundTrip(out)
}
