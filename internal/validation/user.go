// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)

// Usernames that collide with literal URL path segments under /users and
// related routes. Registering one would shadow a fixed endpoint.
var reservedUsernames = map[string]struct{}{
	"admin":         {},
	"api":           {},
	"auth":          {},
	"bookmarks":     {},
	"health":        {},
	"login":         {},
	"logout":        {},
	"me":            {},
	"media":         {},
	"metrics":       {},
	"notifications": {},
	"profile":       {},
	"refresh":       {},
	"register":      {},
	"search":        {},
	"suggestions":   {},
	"trends":        {},
	"tweets":        {},
	"upload":        {},
	"users":         {},
	"ws":            {},
}

// Profile field limits, counted in runes.
const (
	NameMaxLen     = 50
	BioMaxLen      = 160
	LocationMaxLen = 30
	WebsiteMaxLen  = 100
)

// ValidateUsername checks username format and reserved names. Usernames are
// case-sensitive; reservation is checked case-insensitively.
func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username must be 3-20 characters and contain only letters, numbers, and underscores")
	}

	if _, exists := reservedUsernames[strings.ToLower(username)]; exists {
		return fmt.Errorf("username is reserved")
	}

	return nil
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	if len(email) > 254 {
		return fmt.Errorf("email must not exceed 254 characters")
	}

	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}

	return nil
}

// NormalizeEmail canonicalizes an email address for storage and uniqueness
// comparison: trimmed, lower-cased, and with dots stripped from the local
// part of gmail.com addresses (Gmail ignores them, so a.b@gmail.com and
// ab@gmail.com are the same mailbox).
func NormalizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))

	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}

	local, domain := email[:at], email[at+1:]
	if domain == "gmail.com" {
		local = strings.ReplaceAll(local, ".", "")
	}

	return local + "@" + domain
}

// ValidateProfileField checks a profile text field against its rune limit.
func ValidateProfileField(field, value string, maxLen int) error {
	if utf8.RuneCountInString(value) > maxLen {
		return fmt.Errorf("%s must not exceed %d characters", field, maxLen)
	}
	return nil
}
