// Package captcha verifies hCaptcha response tokens against a siteverify endpoint.
package captcha
