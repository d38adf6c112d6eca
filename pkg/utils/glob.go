package utils

import (
	"path"
	"strings"
)

// GlobMatch checks if a form field name matches a glob pattern.
// Patterns support these wildcards (path.Match semantics):
//   - "*" matches any sequence of characters except "/"
//   - "?" matches any single character except "/"
//   - "[...]" matches character classes
//
// Special cases:
//   - Pattern "*" matches everything
//   - Pattern without wildcards uses exact, case-sensitive matching
//   - Invalid patterns return false and the error
//
// Examples:
//
//	GlobMatch("*-captcha-response", "h-captcha-response") → true, nil
//	GlobMatch("utm_*", "utm_source")                      → true, nil
//	GlobMatch("email", "Email")                           → false, nil
//	GlobMatch("[invalid", "test")                         → false, syntax error
func GlobMatch(pattern, value string) (bool, error) {
	if pattern == "*" {
		return true, nil
	}

	// path.Match rather than filepath.Match: field names are not file paths.
	if strings.ContainsAny(pattern, "*?[") {
		matched, err := path.Match(pattern, value)
		if err != nil {
			return false, err
		}
		return matched, nil
	}

	return pattern == value, nil
}

// GlobMatchAny checks if any pattern in the list matches the value.
// Patterns that fail to parse are skipped.
func GlobMatchAny(patterns []string, value string) bool {
	for _, pattern := range patterns {
		if matched, _ := GlobMatch(pattern, value); matched {
			return true
		}
	}
	return false
}

// InvalidGlobs returns the patterns GlobMatch cannot parse, for startup validation.
func InvalidGlobs(patterns []string) []string {
	var invalid []string
	for _, pattern := range patterns {
		if _, err := path.Match(pattern, ""); err != nil {
			invalid = append(invalid, pattern)
		}
	}
	return invalid
}
