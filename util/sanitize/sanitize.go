package sanitize

import (
	"regexp"
	"strings"
)

var (
	// nonPathSafeRegex matches characters unsafe in a path segment
	nonPathSafeRegex = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

	// multiDashRegex matches multiple consecutive dashes
	multiDashRegex = regexp.MustCompile(`-+`)
)

// ForPathSegment sanitizes a string (typically a branch name) for use as a
// single directory or file name. Slashes become dashes so "feature/login"
// maps to "feature-login".
func ForPathSegment(s string) string {
	if s == "" {
		return ""
	}

	s = strings.ReplaceAll(s, "/", "-")
	s = nonPathSafeRegex.ReplaceAllString(s, "-")
	s = multiDashRegex.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-.")

	return s
}

// ForWindowTitle sanitizes a string for use as a terminal window title. The
// Ghostty backend matches windows by title substring, so titles must not
// contain quoting-sensitive characters.
func ForWindowTitle(s string) string {
	s = strings.NewReplacer("\"", "", "'", "", "\n", " ", "\t", " ").Replace(s)
	return strings.TrimSpace(s)
}
