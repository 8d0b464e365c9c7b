// Package security keeps credentials out of logs and terminal output.
package security

import (
	"regexp"
	"strings"
)

var (
	// GitHub personal, OAuth, user-to-server, server-to-server and
	// refresh tokens, plus fine-grained PATs.
	githubTokenPattern = regexp.MustCompile(`(gh[pousr]_[a-zA-Z0-9]{36}|github_pat_[a-zA-Z0-9]{22}_[a-zA-Z0-9]{59})`)

	// Google API keys as used by the Gemini endpoint.
	googleAPIKeyPattern = regexp.MustCompile(`AIza[0-9A-Za-z_\-]{35}`)

	// key=... query parameters on generateContent URLs.
	keyQueryPattern = regexp.MustCompile(`([?&]key=)[^&\s"']+`)

	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey|api[_-]?secret|api[_-]?token)[[:space:]]*[:=][[:space:]]*['"` + "`" + `]?([a-zA-Z0-9_\-]{16,})`)

	// Authorization header values, both "token X" and "Bearer X".
	authHeaderPattern  = regexp.MustCompile(`(?i)(authorization:?[[:space:]]*token)[[:space:]]+[a-zA-Z0-9_\-\.]+`)
	bearerTokenPattern = regexp.MustCompile(`(?i)bearer[[:space:]]+([a-zA-Z0-9_\-\.]+)`)

	privateKeyPattern = regexp.MustCompile(`(?s)-----BEGIN[[:space:]]+(?:RSA[[:space:]]+)?PRIVATE[[:space:]]+KEY-----.*?-----END[[:space:]]+(?:RSA[[:space:]]+)?PRIVATE[[:space:]]+KEY-----`)

	urlPasswordPattern = regexp.MustCompile(`(?i)(https?)://[^:/\s]+:([^@\s]+)@`)

	jwtPattern = regexp.MustCompile(`eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`)

	gcpServiceAccountPattern = regexp.MustCompile(`"private_key":\s*"[^"]+"|"client_email":\s*"[^"]+@[^"]+\.iam\.gserviceaccount\.com"`)
)

// LogSanitizer masks credentials in log messages.
type LogSanitizer struct {
	literals []string
}

// NewLogSanitizer creates a sanitizer with the built-in patterns.
func NewLogSanitizer() *LogSanitizer {
	return &LogSanitizer{}
}

// AddSecret registers a literal value, such as a token the operator typed
// in, to be redacted wherever it appears. Values shorter than 8 characters
// are ignored.
func (ls *LogSanitizer) AddSecret(secret string) {
	secret = strings.TrimSpace(secret)
	if len(secret) < 8 {
		return
	}
	for _, s := range ls.literals {
		if s == secret {
			return
		}
	}
	ls.literals = append(ls.literals, secret)
}

// Sanitize returns message with sensitive values masked.
func (ls *LogSanitizer) Sanitize(message string) string {
	for _, s := range ls.literals {
		message = strings.ReplaceAll(message, s, "[REDACTED]")
	}

	message = githubTokenPattern.ReplaceAllString(message, "[REDACTED-GITHUB-TOKEN]")
	message = googleAPIKeyPattern.ReplaceAllString(message, "[REDACTED-API-KEY]")
	message = keyQueryPattern.ReplaceAllString(message, "${1}[REDACTED]")
	message = apiKeyPattern.ReplaceAllString(message, "${1}=[REDACTED]")
	message = authHeaderPattern.ReplaceAllString(message, "${1} [REDACTED]")
	message = bearerTokenPattern.ReplaceAllString(message, "Bearer [REDACTED]")
	message = privateKeyPattern.ReplaceAllString(message, "[REDACTED-PRIVATE-KEY]")
	message = urlPasswordPattern.ReplaceAllString(message, "${1}://[REDACTED]@")
	message = jwtPattern.ReplaceAllString(message, "[REDACTED-JWT]")
	message = gcpServiceAccountPattern.ReplaceAllString(message, "[REDACTED-GCP-CREDENTIALS]")
	return message
}

// Mask renders a secret for display: empty stays "(not set)", short values
// are fully hidden and longer ones keep their last four characters.
func Mask(secret string) string {
	secret = strings.TrimSpace(secret)
	switch {
	case secret == "":
		return "(not set)"
	case len(secret) <= 8:
		return "********"
	default:
		return "********" + secret[len(secret)-4:]
	}
}
