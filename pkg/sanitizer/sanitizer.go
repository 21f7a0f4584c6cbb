package sanitizer

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var dotRegex = regexp.MustCompile(`\.{2,}`)

// NormalizeEmail lowercases and trims an email address and collapses
// consecutive dots in the local part. Addresses that don't look like emails
// are returned trimmed and lowercased as-is.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	email = strings.ToLower(email)

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return email
	}

	local := parts[0]
	domain := parts[1]

	local = dotRegex.ReplaceAllString(local, ".")
	local = strings.Trim(local, ".")

	return local + "@" + domain
}

// NormalizeName trims surrounding whitespace and applies Unicode NFC
// normalization so equal-looking names compare equal regardless of how the
// client composed them. Used for profile names and todo titles.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}
