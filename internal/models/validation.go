package models

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Content limits enforced before anything reaches the store.
const (
	MaxMessageLength     = 1000
	MaxDisplayNameLength = 50
)

// ValidationResult is the outcome of a local, pre-submission check. It is
// pure state; no remote call is made for an invalid input.
type ValidationResult struct {
	Valid bool
	Error string
}

func valid() ValidationResult {
	return ValidationResult{Valid: true}
}

func invalid(msg string) ValidationResult {
	return ValidationResult{Valid: false, Error: msg}
}

// ValidateMessage checks message content: non-empty after trimming and at
// most MaxMessageLength characters.
func ValidateMessage(content string) ValidationResult {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return invalid("Message cannot be empty")
	}
	if utf8.RuneCountInString(trimmed) > MaxMessageLength {
		return invalid(fmt.Sprintf("Message exceeds %d character limit", MaxMessageLength))
	}
	return valid()
}

// ValidateDisplayName checks a profile display name: non-empty after
// trimming and at most MaxDisplayNameLength characters.
func ValidateDisplayName(name string) ValidationResult {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return invalid("Display name cannot be empty")
	}
	if utf8.RuneCountInString(trimmed) > MaxDisplayNameLength {
		return invalid(fmt.Sprintf("Display name must be %d characters or less", MaxDisplayNameLength))
	}
	return valid()
}
