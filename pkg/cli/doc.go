// Package cli builds the form-relay cobra command tree (serve, check-config,
// version) and its environment-backed process flags.
package cli
