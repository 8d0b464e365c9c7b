package github

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// refreshBuffer is how long before expiry an installation token is replaced.
const refreshBuffer = 5 * time.Minute

// AppCredentials identify a GitHub App installation.
type AppCredentials struct {
	AppID          string
	InstallationID int64
	PrivateKey     []byte
}

// AppTokenSource authenticates as a GitHub App installation, caching the
// installation token until it is close to expiry.
type AppTokenSource struct {
	mu sync.Mutex

	installationID int64
	signer         *appSigner
	httpClient     *http.Client
	baseURL        string
	now            func() time.Time

	token     string
	expiresAt time.Time
}

// AppOption configures an AppTokenSource.
type AppOption func(*AppTokenSource)

// WithAppHTTPClient sets the client used for the token exchange.
func WithAppHTTPClient(client *http.Client) AppOption {
	return func(s *AppTokenSource) {
		s.httpClient = client
	}
}

// WithAppBaseURL points the token exchange at a different API root.
func WithAppBaseURL(u string) AppOption {
	return func(s *AppTokenSource) {
		s.baseURL = u
	}
}

// WithAppClock replaces time.Now, for tests.
func WithAppClock(now func() time.Time) AppOption {
	return func(s *AppTokenSource) {
		s.now = now
	}
}

// NewAppTokenSource validates creds and returns a source that mints tokens
// on demand.
func NewAppTokenSource(creds AppCredentials, opts ...AppOption) (*AppTokenSource, error) {
	if creds.InstallationID <= 0 {
		return nil, fmt.Errorf("GitHub App installation ID must be positive")
	}
	if len(creds.PrivateKey) == 0 {
		return nil, fmt.Errorf("GitHub App private key is required")
	}

	signer, err := newAppSigner(creds.AppID, creds.PrivateKey)
	if err != nil {
		return nil, err
	}

	s := &AppTokenSource{
		installationID: creds.InstallationID,
		signer:         signer,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		baseURL:        DefaultBaseURL,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Token returns a cached installation token or exchanges a fresh one.
func (s *AppTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.token != "" && s.expiresAt.After(now.Add(refreshBuffer)) {
		return s.token, nil
	}

	signed, err := s.signer.sign(now, maxAppJWTLifetime)
	if err != nil {
		return "", err
	}

	tok, err := exchangeInstallationToken(ctx, s.httpClient, s.baseURL, signed, s.installationID)
	if err != nil {
		return "", err
	}

	s.token = tok.Token
	s.expiresAt = tok.ExpiresAt
	return s.token, nil
}
