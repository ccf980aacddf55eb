// Package captcha provides loginGuard.CaptchaVerifier implementations.
package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultVerifyURL is Google's reCAPTCHA siteverify endpoint.
const DefaultVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

var (
	// ErrSecretMissing is returned by NewRecaptcha for an empty secret.
	ErrSecretMissing = errors.New("captcha: recaptcha secret is empty")
	// ErrProviderUnavailable wraps transport and non-200 failures.
	ErrProviderUnavailable = errors.New("captcha: provider unavailable")
)

// Recaptcha verifies tokens against the reCAPTCHA siteverify API.
type Recaptcha struct {
	secret    string
	verifyURL string
	client    *http.Client
}

// Option configures a [Recaptcha].
type Option func(*Recaptcha)

// WithVerifyURL overrides the siteverify endpoint.
func WithVerifyURL(u string) Option {
	return func(r *Recaptcha) { r.verifyURL = u }
}

// WithHTTPClient overrides the HTTP client (default: 5s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(r *Recaptcha) { r.client = c }
}

func NewRecaptcha(secret string, opts ...Option) (*Recaptcha, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrSecretMissing
	}
	r := &Recaptcha{
		secret:    secret,
		verifyURL: DefaultVerifyURL,
		client:    &http.Client{Timeout: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

type siteVerifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify posts the token and reports the provider's verdict. A rejected
// token is (false, nil); only transport and decoding failures are errors.
func (r *Recaptcha) Verify(ctx context.Context, token string) (bool, error) {
	form := url.Values{}
	form.Set("secret", r.secret)
	form.Set("response", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return false, fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var out siteVerifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&out); err != nil {
		return false, fmt.Errorf("captcha: decode siteverify response: %w", err)
	}
	return out.Success, nil
}
