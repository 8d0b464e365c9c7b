// Package gcp holds the optional Google Cloud integrations: Cloud Logging
// as a structured log sink and Secret Manager for credential references.
package gcp

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/option"
)

// SecretRefPrefix marks a setting or config value that names a Secret
// Manager secret instead of holding the credential itself.
const SecretRefPrefix = "gcp-secret:"

// SecretManagerClient wraps the GCP Secret Manager client
type SecretManagerClient struct {
	client    *secretmanager.Client
	projectID string
}

// SecretFetcher defines the interface for fetching secrets
type SecretFetcher interface {
	FetchSecret(ctx context.Context, secretPath string) (string, error)
	Close() error
}

// NewSecretManagerClient creates a Secret Manager client. projectID is used
// to expand bare secret names; when empty it falls back to the usual
// project environment variables.
func NewSecretManagerClient(ctx context.Context, projectID string, opts ...option.ClientOption) (*SecretManagerClient, error) {
	if projectID == "" {
		projectID = projectFromEnv()
	}

	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret manager client: %w", err)
	}

	return &SecretManagerClient{
		client:    client,
		projectID: projectID,
	}, nil
}

func projectFromEnv() string {
	for _, key := range []string{"GOOGLE_CLOUD_PROJECT", "GCP_PROJECT", "GCLOUD_PROJECT"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

// FetchSecret retrieves a secret from GCP Secret Manager.
// secretPath can be in one of the following formats:
//   - projects/PROJECT_ID/secrets/SECRET_NAME/versions/VERSION
//   - projects/PROJECT_ID/secrets/SECRET_NAME (defaults to latest)
//   - SECRET_NAME (requires a project ID)
func (c *SecretManagerClient) FetchSecret(ctx context.Context, secretPath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	name, err := c.normalizeSecretPath(secretPath)
	if err != nil {
		return "", err
	}

	result, err := c.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return "", fmt.Errorf("failed to access secret version: %w", err)
	}
	return strings.TrimSpace(string(result.Payload.Data)), nil
}

func (c *SecretManagerClient) normalizeSecretPath(secretPath string) (string, error) {
	if strings.HasPrefix(secretPath, "projects/") && strings.Contains(secretPath, "/versions/") {
		return secretPath, nil
	}
	if strings.HasPrefix(secretPath, "projects/") && strings.Contains(secretPath, "/secrets/") {
		return secretPath + "/versions/latest", nil
	}
	if c.projectID == "" {
		return "", fmt.Errorf("secret %q needs a GCP project (set secrets.gcp_project or GOOGLE_CLOUD_PROJECT)", secretPath)
	}
	return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", c.projectID, path.Base(secretPath)), nil
}

// Close closes the Secret Manager client
func (c *SecretManagerClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsSecretRef reports whether value is a gcp-secret: reference.
func IsSecretRef(value string) bool {
	return strings.HasPrefix(strings.TrimSpace(value), SecretRefPrefix)
}

// SecretResolver expands gcp-secret: references. The underlying fetcher is
// created on first use so sessions that hold plain credentials never dial
// Secret Manager.
type SecretResolver struct {
	newFetcher func(ctx context.Context) (SecretFetcher, error)

	mu      sync.Mutex
	fetcher SecretFetcher
	cache   map[string]string
}

// NewSecretResolver creates a resolver that builds its fetcher with
// newFetcher.
func NewSecretResolver(newFetcher func(ctx context.Context) (SecretFetcher, error)) *SecretResolver {
	return &SecretResolver{newFetcher: newFetcher, cache: make(map[string]string)}
}

// NewSecretManagerResolver creates a resolver backed by Secret Manager.
func NewSecretManagerResolver(projectID, credentialsFile string) *SecretResolver {
	return NewSecretResolver(func(ctx context.Context) (SecretFetcher, error) {
		var opts []option.ClientOption
		if credentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(credentialsFile))
		}
		return NewSecretManagerClient(ctx, projectID, opts...)
	})
}

// Resolve returns value unchanged unless it is a gcp-secret: reference, in
// which case the referenced secret's payload is returned.
func (r *SecretResolver) Resolve(ctx context.Context, value string) (string, error) {
	value = strings.TrimSpace(value)
	if !IsSecretRef(value) {
		return value, nil
	}
	ref := strings.TrimSpace(strings.TrimPrefix(value, SecretRefPrefix))
	if ref == "" {
		return "", fmt.Errorf("empty %s reference", SecretRefPrefix)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.cache[ref]; ok {
		return v, nil
	}
	if r.fetcher == nil {
		if r.newFetcher == nil {
			return "", fmt.Errorf("no secret backend configured for %q", ref)
		}
		f, err := r.newFetcher(ctx)
		if err != nil {
			return "", err
		}
		r.fetcher = f
	}

	v, err := r.fetcher.FetchSecret(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("resolve secret %q: %w", ref, err)
	}
	r.cache[ref] = v
	return v, nil
}

// Close releases the fetcher if one was created.
func (r *SecretResolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.fetcher == nil {
		return nil
	}
	err := r.fetcher.Close()
	r.fetcher = nil
	return err
}
