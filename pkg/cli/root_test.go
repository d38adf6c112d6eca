package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gopkg.in/yaml.v2"

	"github.com/telekom/form-relay/pkg/config"
	"github.com/telekom/form-relay/pkg/version"
)

var relayEnvKeys = []string{
	"LISTEN_ADDRESS", "TLS_CERT_FILE", "TLS_KEY_FILE", "CORS_ALLOWED_ORIGINS", "TRUSTED_PROXIES",
	"DISABLE_METRICS", "MAX_UPLOAD_SIZE_MB", "FILE_UPLOAD_FIELD_KEY", "HCAPTCHA_ENABLED",
	"HCAPTCHA_SECRET_KEY", "HCAPTCHA_VERIFY_API", "SMTP_SERVER", "SMTP_PORT", "SMTP_USERNAME",
	"SMTP_PASSWORD", "SMTP_SSL", "SMTP_INSECURE_SKIP_VERIFY", "SMTP_FROM", "SMTP_RCPT",
	"SMTP_SUBJECT", "SMTP_SENDER_NAME", "MAIL_RAW_HTML", "MAIL_EXCLUDE_FIELDS",
	"FORM_RELAY_CONFIG", "FORM_RELAY_DEBUG", "FORM_RELAY_SHUTDOWN_TIMEOUT",
}

func clearRelayEnv(t *testing.T) {
	t.Helper()
	for _, k := range relayEnvKeys {
		t.Setenv(k, "")
	}
}

func setRelayEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SMTP_SERVER", "smtp.example.com")
	t.Setenv("SMTP_PORT", "465")
	t.Setenv("SMTP_USERNAME", "relay")
	t.Setenv("SMTP_PASSWORD", "secret")
	t.Setenv("SMTP_FROM", "noreply@example.com")
	t.Setenv("SMTP_RCPT", "inbox@example.com")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCommand(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	origVersion := version.Version
	origGitCommit := version.GitCommit
	origBuildDate := version.BuildDate
	defer func() {
		version.Version = origVersion
		version.GitCommit = origGitCommit
		version.BuildDate = origBuildDate
	}()

	version.Version = "v1.2.3"
	version.GitCommit = "abc123-dirty"
	version.BuildDate = "2026-01-17T15:00:00Z"

	tests := []struct {
		name         string
		args         []string
		wantContains []string
		validateJSON bool
		validateYAML bool
		wantErr      bool
	}{
		{
			name:         "default output format",
			args:         []string{"version"},
			wantContains: []string{"form-relay v1.2.3", "commit abc123-dirty", "built 2026-01-17T15:00:00Z"},
		},
		{
			name:         "json output format",
			args:         []string{"version", "-o", "json"},
			validateJSON: true,
			wantContains: []string{"v1.2.3", "abc123-dirty", "2026-01-17T15:00:00Z"},
		},
		{
			name:         "yaml output format",
			args:         []string{"version", "--output", "yaml"},
			validateYAML: true,
			wantContains: []string{"version: v1.2.3", "gitcommit: abc123-dirty"},
		},
		{
			name:    "unknown output format",
			args:    []string{"version", "-o", "xml"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			for _, want := range tt.wantContains {
				assert.Contains(t, out, want)
			}
			if tt.validateJSON {
				var info version.BuildInfo
				require.NoError(t, json.Unmarshal([]byte(out), &info))
				assert.Equal(t, "v1.2.3", info.Version)
			}
			if tt.validateYAML {
				var parsed map[string]interface{}
				require.NoError(t, yaml.Unmarshal([]byte(out), &parsed))
				assert.Equal(t, "v1.2.3", parsed["version"])
			}
		})
	}
}

func TestCheckConfigCommand_OK(t *testing.T) {
	clearRelayEnv(t)
	setRelayEnv(t)

	out, err := execute(t, "check-config")
	require.NoError(t, err)
	assert.Contains(t, out, "configuration OK")
	assert.Contains(t, out, "smtp.example.com:465")
	assert.Contains(t, out, "noreply@example.com -> inbox@example.com")
	assert.NotContains(t, out, "secret", "credentials must not be printed")
}

func TestCheckConfigCommand_ReportsAllMissingKeys(t *testing.T) {
	clearRelayEnv(t)
	t.Setenv("SMTP_SERVER", "smtp.example.com")

	_, err := execute(t, "check-config")
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrMisconfigured))
	for _, key := range []string{"SMTP_PORT", "SMTP_USERNAME", "SMTP_PASSWORD", "SMTP_FROM", "SMTP_RCPT"} {
		assert.Contains(t, err.Error(), key)
	}
	assert.NotContains(t, err.Error(), "SMTP_SERVER")
}

func TestCheckConfigCommand_ConfigFile(t *testing.T) {
	clearRelayEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := strings.Join([]string{
		"smtp:",
		"  host: mail.example.org",
		"  port: 587",
		"  username: relay",
		"  password: secret",
		"  ssl: false",
		"mail:",
		"  from: web@example.org",
		"  to: team@example.org",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	out, err := execute(t, "check-config", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "mail.example.org:587 (ssl: false)")
}

func TestServe_FailsFastOnMissingConfig(t *testing.T) {
	clearRelayEnv(t)

	_, err := execute(t, "serve")
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrMisconfigured))
}

func TestNewServer_WiresCaptchaOnlyWhenEnabled(t *testing.T) {
	cfg := config.Config{}
	cfg.Defaults()
	cfg.SMTP = config.SMTP{Host: "smtp.example.com", Port: 465, Username: "u", Password: "p", SSL: true}
	cfg.Mail.From = "noreply@example.com"
	cfg.Mail.To = "inbox@example.com"

	flags := &Config{ShutdownTimeout: "1s"}
	logger := zaptest.NewLogger(t)

	server, err := newServer(logger, cfg, flags)
	require.NoError(t, err)
	assert.NotNil(t, server)

	cfg.Captcha.Enabled = true
	_, err = newServer(logger, cfg, flags)
	require.Error(t, err, "captcha enabled without secret must not start")
	assert.True(t, errors.Is(err, config.ErrMisconfigured))

	cfg.Captcha.SecretKey = "0x00"
	cfg.Captcha.VerifyURL = "https://hcaptcha.example/siteverify"
	server, err = newServer(logger, cfg, flags)
	require.NoError(t, err)
	assert.NotNil(t, server)
}
