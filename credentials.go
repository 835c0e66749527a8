package loginhub

import (
	"regexp"
	"strings"
)

// Validation patterns for sign-up form fields.
var (
	// Names: at least two characters, letters (including accented),
	// spaces, hyphens and apostrophes. Consecutive spaces are rejected
	// separately since Go's regexp has no lookahead.
	nameRegex = regexp.MustCompile(`^[A-Za-zÀ-ÿ '\-]{2,}$`)

	emailRegex = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)

	// Phone numbers: 10 to 15 digits, no spaces or formatting.
	phoneRegex = regexp.MustCompile(`^\d{10,15}$`)
)

// IsValidName reports whether name is at least two characters of letters,
// spaces, hyphens or apostrophes, with no consecutive spaces.
func IsValidName(name string) bool {
	value := strings.TrimSpace(name)
	if strings.Contains(value, "  ") {
		return false
	}
	return nameRegex.MatchString(value)
}

// IsValidEmail reports whether email is a standard email address with no
// whitespace.
func IsValidEmail(email string) bool {
	value := strings.TrimSpace(email)
	if strings.ContainsAny(value, " \t\n") {
		return false
	}
	return emailRegex.MatchString(value)
}

// IsValidPhoneNumber reports whether phone is 10 to 15 digits.
func IsValidPhoneNumber(phone string) bool {
	return phoneRegex.MatchString(strings.TrimSpace(phone))
}

// IsValidPassword reports whether password is at least 8 characters and
// contains no spaces.
func IsValidPassword(password string) bool {
	value := strings.TrimSpace(password)
	return len(value) >= 8 && !strings.Contains(value, " ")
}
