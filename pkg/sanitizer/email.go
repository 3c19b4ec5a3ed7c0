package sanitizer

import (
	"regexp"
	"strings"
)

var dotRegex = regexp.MustCompile(`\.{2,}`)

// NormalizeEmail lowercases and trims the address and consolidates
// consecutive dots in the local part. Strings that do not look like an
// email address are returned trimmed and lowercased as-is.
func NormalizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return email
	}

	local := dotRegex.ReplaceAllString(parts[0], ".")
	local = strings.Trim(local, ".")

	return local + "@" + parts[1]
}

// ExtractEmailDomain returns the lowercased domain part, or "" when the
// input is not a single-@ address.
func ExtractEmailDomain(email string) string {
	parts := strings.Split(strings.TrimSpace(email), "@")
	if len(parts) != 2 {
		return ""
	}
	return strings.ToLower(parts[1])
}

// MaskEmail hides the local part except its first character, keeping the
// full domain so users can still recognize their own address in logs and
// notification copy.
func MaskEmail(email string) string {
	email = strings.TrimSpace(email)
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return email
	}

	local := parts[0]
	switch len(local) {
	case 0:
		return email
	case 1:
		return "*@" + parts[1]
	}
	return string(local[0]) + strings.Repeat("*", len(local)-1) + "@" + parts[1]
}
