// Package api hosts the Gin HTTP server of form-relay: the POST /submit
// pipeline plus health, version and metrics endpoints.
package api
