// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/telekom/form-relay/pkg/config"
	"github.com/telekom/form-relay/pkg/metrics"
	"github.com/telekom/form-relay/pkg/version"
)

// TokenField is the form field hCaptcha's widget writes the response token into.
const TokenField = "h-captcha-response"

// Verdict is the decoded siteverify answer. Only Success gates a submission;
// the rest is kept for logging.
type Verdict struct {
	Success     bool     `json:"success"`
	ChallengeTS string   `json:"challenge_ts,omitempty"`
	Hostname    string   `json:"hostname,omitempty"`
	ErrorCodes  []string `json:"error-codes,omitempty"`
}

type Verifier interface {
	// Verify exchanges token for a verdict. A non-nil error means the endpoint
	// could not be asked, never that the token was rejected.
	Verify(ctx context.Context, token, remoteIP string) (Verdict, error)
}

type HCaptchaVerifier struct {
	client    *resty.Client
	secret    string
	verifyURL string
	log       *zap.SugaredLogger
}

type Option func(*HCaptchaVerifier)

// withHTTPClient replaces the transport.
func withHTTPClient(hc *http.Client) Option {
	return func(v *HCaptchaVerifier) {
		v.client = resty.NewWithClient(hc)
	}
}

// NewHCaptchaVerifier refuses to build a verifier without secret and endpoint;
// the returned error matches config.ErrMisconfigured.
func NewHCaptchaVerifier(cfg config.Captcha, log *zap.SugaredLogger, opts ...Option) (*HCaptchaVerifier, error) {
	var missing []string
	if cfg.SecretKey == "" {
		missing = append(missing, "HCAPTCHA_SECRET_KEY")
	}
	if cfg.VerifyURL == "" {
		missing = append(missing, "HCAPTCHA_VERIFY_API")
	}
	if err := config.Missing(missing...); err != nil {
		return nil, err
	}

	v := &HCaptchaVerifier{
		client:    resty.New(),
		secret:    cfg.SecretKey,
		verifyURL: cfg.VerifyURL,
		log:       log.Named("captcha"),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.client.SetHeader("User-Agent", version.UserAgent())
	return v, nil
}

func (v *HCaptchaVerifier) Verify(ctx context.Context, token, remoteIP string) (Verdict, error) {
	form := map[string]string{
		"secret":   v.secret,
		"response": token,
	}
	if remoteIP != "" {
		form["remoteip"] = remoteIP
	}

	resp, err := v.client.R().
		SetContext(ctx).
		SetFormData(form).
		Post(v.verifyURL)
	if err != nil {
		metrics.CaptchaVerifications.WithLabelValues("error").Inc()
		return Verdict{}, fmt.Errorf("calling captcha verify endpoint: %w", err)
	}
	if resp.IsError() {
		metrics.CaptchaVerifications.WithLabelValues("error").Inc()
		return Verdict{}, fmt.Errorf("captcha verify endpoint returned %s", resp.Status())
	}

	var verdict Verdict
	if err := json.Unmarshal(resp.Body(), &verdict); err != nil {
		metrics.CaptchaVerifications.WithLabelValues("error").Inc()
		return Verdict{}, fmt.Errorf("decoding captcha verify response: %w", err)
	}

	if verdict.Success {
		metrics.CaptchaVerifications.WithLabelValues("success").Inc()
		v.log.Debugw("Captcha verified", "hostname", verdict.Hostname, "challengeTS", verdict.ChallengeTS)
	} else {
		metrics.CaptchaVerifications.WithLabelValues("failure").Inc()
		v.log.Infow("Captcha rejected", "errorCodes", verdict.ErrorCodes)
	}
	return verdict, nil
}
