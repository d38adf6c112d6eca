// Package apiresponses provides the JSON response helpers used by the
// form-relay HTTP handlers.
package apiresponses
