package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// installationToken is the body of a successful access_tokens response.
type installationToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// exchangeInstallationToken trades an App JWT for an installation token.
func exchangeInstallationToken(ctx context.Context, client *http.Client, baseURL, appJWT string, installationID int64) (installationToken, error) {
	endpoint := fmt.Sprintf("%s/app/installations/%d/access_tokens", strings.TrimSuffix(baseURL, "/"), installationID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return installationToken{}, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+appJWT)

	resp, err := client.Do(req)
	if err != nil {
		return installationToken{}, fmt.Errorf("request installation token: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return installationToken{}, fmt.Errorf("read token response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated {
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(body, &apiErr)
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return installationToken{}, fmt.Errorf("installation token exchange failed (status %d): %s", resp.StatusCode, apiErr.Message)
	}

	var tok installationToken
	if err := json.Unmarshal(body, &tok); err != nil {
		return installationToken{}, fmt.Errorf("parse token response: %w", err)
	}
	if tok.Token == "" {
		return installationToken{}, fmt.Errorf("token response did not contain a token")
	}
	return tok, nil
}
