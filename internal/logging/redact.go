package logging

import (
	"regexp"
	"strconv"
	"strings"
)

// Message bodies are private: they never appear in logs, only their length.
// Key material is redacted wherever it could leak through error strings.

// RedactedValue is the replacement for sensitive values.
const RedactedValue = "[REDACTED]"

// Sensitive field names that should be redacted.
var sensitiveFields = []string{
	"password",
	"secret",
	"token",
	"authorization",
	"auth",
	"credential",
	"private_key",
	"privatekey",
	"seed",
}

var secretPatterns = []*regexp.Regexp{
	// PEM-encoded key material (identity key files)
	regexp.MustCompile(`(?s)-----BEGIN [A-Z ]*PRIVATE KEY-----.*?-----END [A-Z ]*PRIVATE KEY-----`),

	// Bearer tokens
	regexp.MustCompile(`(?i)bearer\s+([a-zA-Z0-9._-]{20,})`),

	// Generic long base64 strings attached to a secret-ish key
	regexp.MustCompile(`(?i)(key|token|secret|password|seed)[=:]["']?([a-zA-Z0-9+/=_-]{32,})["']?`),
}

// Redact replaces key material and credentials in a string.
func Redact(s string) string {
	result := s
	for _, pattern := range secretPatterns {
		result = pattern.ReplaceAllString(result, RedactedValue)
	}
	return result
}

// BodyDigest summarizes message content for logs without exposing it: only
// the character count is reported.
func BodyDigest(content string) string {
	return "<" + strconv.Itoa(len([]rune(content))) + " chars>"
}

// IsSensitiveField checks if a field name is considered sensitive.
func IsSensitiveField(name string) bool {
	lowerName := strings.ToLower(name)
	for _, field := range sensitiveFields {
		if strings.Contains(lowerName, field) {
			return true
		}
	}
	return false
}

