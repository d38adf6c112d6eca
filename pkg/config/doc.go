// Package config loads the form-relay configuration from an optional YAML file
// overlaid with environment variables, and validates it once at startup.
package config
