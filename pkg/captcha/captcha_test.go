package captcha

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/telekom/form-relay/pkg/config"
)

type capturedRequest struct {
	Method    string
	PostForm  url.Values
	UserAgent string
}

func newVerifyServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32, *capturedRequest) {
	t.Helper()
	var calls atomic.Int32
	last := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		last.Method = r.Method
		last.PostForm = r.PostForm
		last.UserAgent = r.UserAgent()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls, last
}

func TestNewHCaptchaVerifierRequiresConfig(t *testing.T) {
	log := zaptest.NewLogger(t).Sugar()

	tests := []struct {
		name    string
		cfg     config.Captcha
		missing []string
	}{
		{name: "no secret", cfg: config.Captcha{Enabled: true, VerifyURL: "https://example.com"}, missing: []string{"HCAPTCHA_SECRET_KEY"}},
		{name: "no url", cfg: config.Captcha{Enabled: true, SecretKey: "s"}, missing: []string{"HCAPTCHA_VERIFY_API"}},
		{name: "nothing", cfg: config.Captcha{Enabled: true}, missing: []string{"HCAPTCHA_SECRET_KEY", "HCAPTCHA_VERIFY_API"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := NewHCaptchaVerifier(tt.cfg, log)
			assert.Nil(t, v)
			require.ErrorIs(t, err, config.ErrMisconfigured)

			var missing *config.MissingKeysError
			require.True(t, errors.As(err, &missing))
			assert.Equal(t, tt.missing, missing.Keys)
		})
	}
}

func TestVerifySuccess(t *testing.T) {
	srv, calls, last := newVerifyServer(t, http.StatusOK,
		`{"success":true,"challenge_ts":"2026-01-01T00:00:00Z","hostname":"example.com"}`)

	v, err := NewHCaptchaVerifier(config.Captcha{SecretKey: "top-secret", VerifyURL: srv.URL}, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)

	verdict, err := v.Verify(context.Background(), "token-123", "203.0.113.7")
	require.NoError(t, err)
	assert.True(t, verdict.Success)
	assert.Equal(t, "example.com", verdict.Hostname)
	assert.EqualValues(t, 1, calls.Load())

	assert.Equal(t, http.MethodPost, last.Method)
	assert.Equal(t, "top-secret", last.PostForm.Get("secret"))
	assert.Equal(t, "token-123", last.PostForm.Get("response"))
	assert.Equal(t, "203.0.113.7", last.PostForm.Get("remoteip"))
	assert.Contains(t, last.UserAgent, "form-relay/")
}

func TestVerifyFailureIsNotAnError(t *testing.T) {
	srv, _, last := newVerifyServer(t, http.StatusOK, `{"success":false,"error-codes":["invalid-input-response"]}`)

	v, err := NewHCaptchaVerifier(config.Captcha{SecretKey: "s", VerifyURL: srv.URL}, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)

	verdict, err := v.Verify(context.Background(), "bad", "")
	require.NoError(t, err)
	assert.False(t, verdict.Success)
	assert.Equal(t, []string{"invalid-input-response"}, verdict.ErrorCodes)
	_, sent := last.PostForm["remoteip"]
	assert.False(t, sent, "remoteip should be omitted when unknown")
}

func TestVerifyEndpointErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusBadGateway, body: `upstream down`},
		{name: "malformed json", status: http.StatusOK, body: `<html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, _ := newVerifyServer(t, tt.status, tt.body)
			v, err := NewHCaptchaVerifier(config.Captcha{SecretKey: "s", VerifyURL: srv.URL}, zaptest.NewLogger(t).Sugar())
			require.NoError(t, err)

			_, err = v.Verify(context.Background(), "token", "")
			assert.Error(t, err)
			assert.NotErrorIs(t, err, config.ErrMisconfigured)
		})
	}
}

func TestVerifyNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	closedURL := srv.URL
	srv.Close()

	v, err := NewHCaptchaVerifier(config.Captcha{SecretKey: "s", VerifyURL: closedURL}, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), "token", "")
	assert.Error(t, err)
}

func TestVerifyWithInjectedHTTPClient(t *testing.T) {
	srv, calls, _ := newVerifyServer(t, http.StatusOK, `{"success":true}`)

	v, err := NewHCaptchaVerifier(config.Captcha{SecretKey: "s", VerifyURL: srv.URL}, zaptest.NewLogger(t).Sugar(),
		withHTTPClient(srv.Client()))
	require.NoError(t, err)

	verdict, err := v.Verify(context.Background(), "token", "")
	require.NoError(t, err)
	assert.True(t, verdict.Success)
	assert.EqualValues(t, 1, calls.Load())
}
