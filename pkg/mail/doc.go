// Package mail turns a submission into an HTML mail envelope and relays it
// through an SMTP server with a single delivery attempt.
package mail
