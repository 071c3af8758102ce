package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"geosm/internal/observability"
)

// CaptchaVerifier checks a client captcha token.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token string) (bool, error)
}

// DefaultSiteVerifyURL is Google's reCAPTCHA endpoint.
const DefaultSiteVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

// Recaptcha verifies tokens against the siteverify API.
type Recaptcha struct {
	Secret   string
	Endpoint string
	Client   *http.Client
}

// NewRecaptcha returns a verifier for secret with a 5s timeout.
func NewRecaptcha(secret string) *Recaptcha {
	return &Recaptcha{
		Secret:   secret,
		Endpoint: DefaultSiteVerifyURL,
		Client:   &http.Client{Timeout: 5 * time.Second},
	}
}

type siteVerifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

func (r *Recaptcha) Verify(ctx context.Context, token string) (_ bool, err error) {
	if strings.TrimSpace(token) == "" {
		return false, nil
	}
	ctx, span := observability.StartClient(ctx, "recaptcha", "siteverify")
	defer func() { observability.EndClient(span, err) }()

	form := url.Values{"secret": {r.Secret}, "response": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("build captcha request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.Client.Do(req)
	if err != nil {
		return false, fmt.Errorf("captcha request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("captcha endpoint returned %d", resp.StatusCode)
	}

	var body siteVerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("decode captcha response: %w", err)
	}
	return body.Success, nil
}

// FlagChecker reports whether a named feature is on.
type FlagChecker interface {
	Enabled(name string, userID uint) bool
}

// CaptchaFlag is the feature flag that turns captcha enforcement on.
const CaptchaFlag = "captcha"

// Gated skips verification while the captcha flag is off.
type Gated struct {
	Flags FlagChecker
	Next  CaptchaVerifier
}

func (g Gated) Verify(ctx context.Context, token string) (bool, error) {
	if g.Flags == nil || !g.Flags.Enabled(CaptchaFlag, 0) || g.Next == nil {
		return true, nil
	}
	return g.Next.Verify(ctx, token)
}
