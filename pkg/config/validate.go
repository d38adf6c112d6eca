// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/telekom/form-relay/pkg/utils"
)

// ErrMisconfigured marks errors caused by absent or contradictory settings,
// as opposed to failures of the collaborators those settings point at.
var ErrMisconfigured = errors.New("form-relay is misconfigured")

// MissingKeysError lists every required setting that is absent, by environment name.
type MissingKeysError struct {
	Keys []string
}

func (e *MissingKeysError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", strings.Join(e.Keys, ", "))
}

func (e *MissingKeysError) Is(target error) bool {
	return target == ErrMisconfigured
}

// Missing wraps keys in a *MissingKeysError, or returns nil when keys is empty.
func Missing(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return &MissingKeysError{Keys: keys}
}

// Validate checks the whole configuration at once so an operator sees every
// missing key in one report instead of one failing request at a time.
func (c Config) Validate() error {
	var keys []string
	keys = append(keys, c.MissingRelayKeys()...)
	keys = append(keys, c.Captcha.Missing()...)
	if err := Missing(keys...); err != nil {
		return err
	}

	if (c.Server.TLSCertFile == "") != (c.Server.TLSKeyFile == "") {
		return fmt.Errorf("%w: TLS_CERT_FILE and TLS_KEY_FILE must be set together", ErrMisconfigured)
	}
	if !c.Upload.validSize() {
		return fmt.Errorf("%w: upload size %v MB must be positive and at most %d", ErrMisconfigured, c.Upload.MaxSizeMB, MaxUploadSizeMBLimit)
	}
	if c.SMTP.Port < 0 || c.SMTP.Port > 65535 {
		return fmt.Errorf("%w: smtp port %d out of range", ErrMisconfigured, c.SMTP.Port)
	}
	if invalid := utils.InvalidGlobs(c.Mail.ExcludeFields); len(invalid) > 0 {
		return fmt.Errorf("%w: invalid MAIL_EXCLUDE_FIELDS patterns: %s", ErrMisconfigured, strings.Join(invalid, ", "))
	}
	return nil
}
