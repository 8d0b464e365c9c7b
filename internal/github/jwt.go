package github

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// maxAppJWTLifetime is GitHub's upper bound for App JWT expiry.
const maxAppJWTLifetime = 10 * time.Minute

// clockSkew backdates iat so a slightly fast local clock is not rejected.
const clockSkew = 60 * time.Second

// appSigner signs JWTs that identify a GitHub App.
type appSigner struct {
	appID string
	key   *rsa.PrivateKey
}

func newAppSigner(appID string, privateKeyPEM []byte) (*appSigner, error) {
	if appID == "" {
		return nil, fmt.Errorf("GitHub App ID is required")
	}
	key, err := parseRSAPrivateKey(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse GitHub App private key: %w", err)
	}
	return &appSigner{appID: appID, key: key}, nil
}

// sign returns a JWT valid from now-clockSkew until now+ttl.
func (s *appSigner) sign(now time.Time, ttl time.Duration) (string, error) {
	if ttl <= 0 || ttl > maxAppJWTLifetime {
		return "", fmt.Errorf("JWT lifetime %v outside (0, %v]", ttl, maxAppJWTLifetime)
	}

	claims := jwt.RegisteredClaims{
		Issuer:    s.appID,
		IssuedAt:  jwt.NewNumericDate(now.Add(-clockSkew)),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign JWT: %w", err)
	}
	return signed, nil
}

// parseRSAPrivateKey accepts PKCS#1 ("RSA PRIVATE KEY") and PKCS#8
// ("PRIVATE KEY") PEM blocks.
func parseRSAPrivateKey(pemData []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}

	if block.Type == "RSA PRIVATE KEY" {
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is not RSA")
	}
	return rsaKey, nil
}
