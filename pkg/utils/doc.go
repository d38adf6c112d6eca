// Package utils holds small helpers shared across form-relay packages.
package utils
