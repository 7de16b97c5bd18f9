package domain

import "strings"

// NormalizeHumanName trims leading/trailing whitespace and collapses internal whitespace runs.
// It is used for full name normalization.
func NormalizeHumanName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeEmail returns the lookup key for an email address.
// Emails are unique case-insensitively, so every store indexes users by this form.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeRoleName returns the lookup key for a role name.
func NormalizeRoleName(r RoleName) string {
	return strings.ToUpper(strings.TrimSpace(string(r)))
}
