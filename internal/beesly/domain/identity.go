package domain

import (
	"html"
	"regexp"
)

// usernamePattern accepts 2-33 character identifiers starting with a letter.
// Only lowercase alphanumerics and -_.@ are allowed after the first
// character; this matches what the identity backend accepts and must not be
// loosened without changing which identities the service admits.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z][-_.@a-z0-9]{1,32}$`)

// SanitizeUsername neutralizes markup in untrusted input before it is
// validated, logged or echoed in a response.
func SanitizeUsername(raw string) string {
	return html.EscapeString(raw)
}

// ValidateUsername reports whether a sanitized username is acceptable.
// Escaped characters (&lt; etc.) fail the pattern, so hostile input is
// rejected rather than unescaped.
func ValidateUsername(username string) bool {
	return usernamePattern.MatchString(username)
}
