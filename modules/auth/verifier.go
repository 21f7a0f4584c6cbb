package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// CredentialVerifier checks an external bearer credential and returns the
// identity claims it carries. Implementations must reject, never guess:
// any failure to positively verify the credential is an error.
type CredentialVerifier interface {
	Verify(ctx context.Context, credential string) (*Claims, error)
}

// BearerVerifierConfig configures the remote verification endpoint.
type BearerVerifierConfig struct {
	Endpoint     string        `env:"AUTH_VERIFY_ENDPOINT,required"`
	CheckRevoked bool          `env:"AUTH_CHECK_REVOKED" envDefault:"true"`
	Timeout      time.Duration `env:"AUTH_VERIFY_TIMEOUT" envDefault:"5s"`
}

// BearerVerifier verifies credentials against a remote introspection
// endpoint. Every failure path collapses into ErrInvalidCredential so the
// caller stays fail-closed: a transport error, a non-200 status, a revoked
// credential, and a malformed response all reject the sign-in. Verification
// is never retried.
type BearerVerifier struct {
	endpoint     string
	checkRevoked bool
	client       *http.Client
}

func NewBearerVerifier(cfg BearerVerifierConfig) *BearerVerifier {
	return &BearerVerifier{
		endpoint:     cfg.Endpoint,
		checkRevoked: cfg.CheckRevoked,
		client:       &http.Client{Timeout: cfg.Timeout},
	}
}

type verifyResponse struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	Revoked       bool   `json:"revoked"`
}

func (v *BearerVerifier) Verify(ctx context.Context, credential string) (*Claims, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, ErrInvalidCredential
	}

	form := url.Values{"token": {credential}}
	if v.checkRevoked {
		form.Set("check_revoked", "true")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: verification endpoint returned %d", ErrInvalidCredential, resp.StatusCode)
	}

	var body verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}
	if body.Subject == "" || body.Revoked {
		return nil, ErrInvalidCredential
	}

	return &Claims{
		Subject:       body.Subject,
		Email:         body.Email,
		EmailVerified: body.EmailVerified,
		Name:          body.Name,
		Image:         body.Picture,
	}, nil
}

var _ CredentialVerifier = (*BearerVerifier)(nil)
