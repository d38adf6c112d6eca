// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"
)

const (
	// DefaultListenAddress is the address the HTTP server binds to when none is configured.
	DefaultListenAddress = ":3000"
	// DefaultMaxUploadSizeMB is the upload limit applied when MAX_UPLOAD_SIZE_MB is unset.
	DefaultMaxUploadSizeMB = 1
	// MaxUploadSizeMBLimit bounds MAX_UPLOAD_SIZE_MB so the byte limit, plus request
	// headroom, stays far inside int64.
	MaxUploadSizeMBLimit = 1 << 20
	// DefaultUploadFieldKey is the multipart field name carrying the optional file.
	DefaultUploadFieldKey = "file"
	// DefaultSenderName is used as From display name when the submission has no name field.
	DefaultSenderName = "Contact Form"
)

type Server struct {
	ListenAddress string `yaml:"listenAddress"`
	TLSCertFile   string `yaml:"tlsCertFile"`
	TLSKeyFile    string `yaml:"tlsKeyFile"`
	// AllowedOrigins enables CORS for the listed origins. Empty disables CORS handling.
	AllowedOrigins []string `yaml:"allowedOrigins"`
	TrustedProxies []string `yaml:"trustedProxies"` // IPs/CIDRs to trust for X-Forwarded-For headers
	DisableMetrics bool     `yaml:"disableMetrics"`
}

type Upload struct {
	// MaxSizeMB may be fractional, e.g. 0.5 for 512 KiB.
	MaxSizeMB float64 `yaml:"maxSizeMB"`
	FieldKey  string  `yaml:"fieldKey"`
}

// validSize reports whether MaxSizeMB is a finite, positive value within MaxUploadSizeMBLimit.
func (u Upload) validSize() bool {
	return !math.IsNaN(u.MaxSizeMB) && !math.IsInf(u.MaxSizeMB, 0) &&
		u.MaxSizeMB > 0 && u.MaxSizeMB <= MaxUploadSizeMBLimit
}

// MaxBytes returns the upload limit in bytes.
func (u Upload) MaxBytes() int64 {
	return int64(u.MaxSizeMB * 1024 * 1024)
}

type Captcha struct {
	Enabled   bool   `yaml:"enabled"`
	SecretKey string `yaml:"secretKey"`
	VerifyURL string `yaml:"verifyURL"`
}

// Missing returns the environment names of unset captcha settings.
// A disabled captcha never reports missing keys.
func (c Captcha) Missing() []string {
	if !c.Enabled {
		return nil
	}
	var keys []string
	if c.SecretKey == "" {
		keys = append(keys, "HCAPTCHA_SECRET_KEY")
	}
	if c.VerifyURL == "" {
		keys = append(keys, "HCAPTCHA_VERIFY_API")
	}
	return keys
}

type SMTP struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// SSL selects implicit TLS on connect. When false the dialer upgrades via STARTTLS if offered.
	SSL                bool `yaml:"ssl"`
	InsecureSkipVerify bool `yaml:"insecureSkipVerify"`
}

type Mail struct {
	From       string `yaml:"from"`
	To         string `yaml:"to"`
	Subject    string `yaml:"subject"`
	SenderName string `yaml:"senderName"`
	// RawHTML disables HTML escaping of submitted keys and values in the mail body.
	RawHTML       bool     `yaml:"rawHTML"`
	ExcludeFields []string `yaml:"excludeFields"`
}

type Config struct {
	Server  Server  `yaml:"server"`
	Upload  Upload  `yaml:"upload"`
	Captcha Captcha `yaml:"captcha"`
	SMTP    SMTP    `yaml:"smtp"`
	Mail    Mail    `yaml:"mail"`
}

// MissingRelayKeys returns the environment names of unset settings the mail
// dispatcher cannot work without.
func (c Config) MissingRelayKeys() []string {
	var keys []string
	if c.SMTP.Host == "" {
		keys = append(keys, "SMTP_SERVER")
	}
	if c.SMTP.Port == 0 {
		keys = append(keys, "SMTP_PORT")
	}
	if c.SMTP.Username == "" {
		keys = append(keys, "SMTP_USERNAME")
	}
	if c.SMTP.Password == "" {
		keys = append(keys, "SMTP_PASSWORD")
	}
	if c.Mail.From == "" {
		keys = append(keys, "SMTP_FROM")
	}
	if c.Mail.To == "" {
		keys = append(keys, "SMTP_RCPT")
	}
	return keys
}

// Load loads the configuration from an optional YAML file and overlays it with
// environment variables. An empty path skips the file layer entirely.
func Load(configPath ...string) (Config, error) {
	config := Config{}
	config.Defaults()

	if len(configPath) > 0 && configPath[0] != "" {
		path := configPath[0]
		content, err := os.ReadFile(path)
		if err != nil {
			return config, fmt.Errorf("trying to open form-relay config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(content, &config); err != nil {
			return config, fmt.Errorf("error unmarshaling YAML %s: %w", path, err)
		}
	}

	if err := config.applyEnv(); err != nil {
		return config, err
	}
	config.normalize()
	return config, nil
}

// Defaults fills in the values a fresh Config starts from.
func (c *Config) Defaults() {
	c.Server.ListenAddress = DefaultListenAddress
	c.Upload.MaxSizeMB = DefaultMaxUploadSizeMB
	c.Upload.FieldKey = DefaultUploadFieldKey
	c.SMTP.SSL = true
	c.Mail.SenderName = DefaultSenderName
}

// normalize repairs values a YAML file may have blanked out.
func (c *Config) normalize() {
	if c.Server.ListenAddress == "" {
		c.Server.ListenAddress = DefaultListenAddress
	}
	if c.Upload.MaxSizeMB <= 0 {
		c.Upload.MaxSizeMB = DefaultMaxUploadSizeMB
	}
	if c.Upload.FieldKey == "" {
		c.Upload.FieldKey = DefaultUploadFieldKey
	}
	if c.Mail.SenderName == "" {
		c.Mail.SenderName = DefaultSenderName
	}
}

// applyEnv overrides configuration with environment variable values.
// Only non-empty variables override; malformed numbers and booleans are errors.
func (c *Config) applyEnv() error {
	stringVars := map[string]*string{
		"LISTEN_ADDRESS":        &c.Server.ListenAddress,
		"TLS_CERT_FILE":         &c.Server.TLSCertFile,
		"TLS_KEY_FILE":          &c.Server.TLSKeyFile,
		"FILE_UPLOAD_FIELD_KEY": &c.Upload.FieldKey,
		"HCAPTCHA_SECRET_KEY":   &c.Captcha.SecretKey,
		"HCAPTCHA_VERIFY_API":   &c.Captcha.VerifyURL,
		"SMTP_SERVER":           &c.SMTP.Host,
		"SMTP_USERNAME":         &c.SMTP.Username,
		"SMTP_PASSWORD":         &c.SMTP.Password,
		"SMTP_FROM":             &c.Mail.From,
		"SMTP_RCPT":             &c.Mail.To,
		"SMTP_SUBJECT":          &c.Mail.Subject,
		"SMTP_SENDER_NAME":      &c.Mail.SenderName,
	}
	for key, target := range stringVars {
		if v := os.Getenv(key); v != "" {
			*target = v
		}
	}

	boolVars := map[string]*bool{
		"HCAPTCHA_ENABLED":          &c.Captcha.Enabled,
		"SMTP_SSL":                  &c.SMTP.SSL,
		"SMTP_INSECURE_SKIP_VERIFY": &c.SMTP.InsecureSkipVerify,
		"MAIL_RAW_HTML":             &c.Mail.RawHTML,
		"DISABLE_METRICS":           &c.Server.DisableMetrics,
	}
	for key, target := range boolVars {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		b, err := ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*target = b
	}

	if v := os.Getenv("SMTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("invalid SMTP_PORT %q: must be a TCP port number", v)
		}
		c.SMTP.Port = port
	}
	if v := os.Getenv("MAX_UPLOAD_SIZE_MB"); v != "" {
		size, err := strconv.ParseFloat(v, 64)
		if err != nil || !(Upload{MaxSizeMB: size}).validSize() {
			return fmt.Errorf("invalid MAX_UPLOAD_SIZE_MB %q: must be a positive number up to %d", v, MaxUploadSizeMBLimit)
		}
		c.Upload.MaxSizeMB = size
	}

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("TRUSTED_PROXIES"); v != "" {
		c.Server.TrustedProxies = splitList(v)
	}
	if v := os.Getenv("MAIL_EXCLUDE_FIELDS"); v != "" {
		c.Mail.ExcludeFields = splitList(v)
	}
	return nil
}

// ParseBool accepts "true", "1", "yes" and "false", "0", "no" (case-insensitive).
func ParseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	}
	return false, fmt.Errorf("%q is not a boolean", v)
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
