package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/telekom/form-relay/pkg/api"
)

// Config holds the process-level flags. Relay settings live in config.Config.
type Config struct {
	// Application flags
	Debug bool

	// Configuration flags
	ConfigPath string

	// Interval flags
	ShutdownTimeout string
}

// BindFlags registers the flags on fs. Every flag falls back to an environment
// variable so container deployments need no command line.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&c.Debug, "debug", getEnvBool("FORM_RELAY_DEBUG", false), "Enable debug level logging")
	fs.StringVar(&c.ConfigPath, "config", getEnvString("FORM_RELAY_CONFIG", ""),
		"Path to an optional YAML configuration file; environment variables override its values")
	fs.StringVar(&c.ShutdownTimeout, "shutdown-timeout", getEnvString("FORM_RELAY_SHUTDOWN_TIMEOUT", api.DefaultShutdownTimeout.String()),
		"How long in-flight submissions may finish after SIGTERM (e.g., '15s', '1m')")
}

func (c *Config) Print(log *zap.SugaredLogger) {
	log.Infow("CLI Configuration",
		"debug", c.Debug,
		"config_path", c.ConfigPath,
		"shutdown_timeout", c.ShutdownTimeout,
	)
}

func ParseShutdownTimeout(timeout string, log *zap.SugaredLogger) time.Duration {
	// Determine shutdown timeout from CLI flag (fallback to 15s)
	d, err := parseDuration("shutdown-timeout", timeout, api.DefaultShutdownTimeout)
	if err != nil {
		log.Warn(err)
	}
	return d
}

func parseDuration(name, value string, def time.Duration) (time.Duration, error) {
	duration := def
	if value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			duration = d
		} else {
			return duration, fmt.Errorf("invalid %s %q; using default %s: %w", name, value, def.String(), err)
		}
	}

	return duration, nil
}

// getEnvString returns the value of an environment variable, or the provided default if not set.
func getEnvString(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvBool returns the value of an environment variable as a bool, or the provided default if not set.
// Valid true values are "true", "1", "yes" (case-insensitive).
func getEnvBool(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(val) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return defaultVal
}
