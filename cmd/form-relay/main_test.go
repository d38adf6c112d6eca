package main

import "testing"

func TestRunVersionCommand(t *testing.T) {
	if code := run([]string{"version"}); code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
}

func TestRunUnknownCommand(t *testing.T) {
	if code := run([]string{"unknown-command"}); code == 0 {
		t.Fatalf("expected non-zero exit code for unknown command")
	}
}

func TestRunCheckConfigMissingKeys(t *testing.T) {
	for _, k := range []string{"SMTP_SERVER", "SMTP_PORT", "SMTP_USERNAME", "SMTP_PASSWORD", "SMTP_FROM", "SMTP_RCPT", "FORM_RELAY_CONFIG"} {
		t.Setenv(k, "")
	}
	if code := run([]string{"check-config"}); code != 1 {
		t.Fatalf("expected exit code 1 for incomplete configuration, got %d", code)
	}
}
