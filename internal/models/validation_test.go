package models

import (
	"strings"
	"testing"
)

func TestValidateMessage(t *testing.T) {
	tests := []struct {
		name    string
		content string
		valid   bool
	}{
		{name: "simple", content: "hello", valid: true},
		{name: "single char", content: "x", valid: true},
		{name: "empty", content: "", valid: false},
		{name: "whitespace only", content: "   \t\n", valid: false},
		{name: "at limit", content: strings.Repeat("a", 1000), valid: true},
		{name: "over limit", content: strings.Repeat("a", 1001), valid: false},
		{name: "padding trimmed before limit check", content: "  " + strings.Repeat("a", 1000) + "  ", valid: true},
		{name: "multibyte counted as runes", content: strings.Repeat("é", 1000), valid: true},
		{name: "multibyte over limit", content: strings.Repeat("é", 1001), valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateMessage(tt.content)
			if got.Valid != tt.valid {
				t.Errorf("ValidateMessage(%s).Valid = %v, want %v", tt.name, got.Valid, tt.valid)
			}
			if !got.Valid && got.Error == "" {
				t.Error("invalid result must carry an error message")
			}
			if got.Valid && got.Error != "" {
				t.Errorf("valid result must not carry an error, got %q", got.Error)
			}
		})
	}
}

func TestValidateMessageLengthError(t *testing.T) {
	got := ValidateMessage(strings.Repeat("a", 1001))
	if got.Valid {
		t.Fatal("expected invalid")
	}
	if !strings.Contains(got.Error, "1000") {
		t.Errorf("length error should cite the limit, got %q", got.Error)
	}
}

func TestValidateDisplayName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{name: "simple", input: "Alice", valid: true},
		{name: "empty", input: "", valid: false},
		{name: "whitespace only", input: "  ", valid: false},
		{name: "at limit", input: strings.Repeat("n", 50), valid: true},
		{name: "over limit", input: strings.Repeat("n", 51), valid: false},
		{name: "trimmed to limit", input: " " + strings.Repeat("n", 50) + " ", valid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateDisplayName(tt.input)
			if got.Valid != tt.valid {
				t.Errorf("ValidateDisplayName(%q).Valid = %v, want %v", tt.input, got.Valid, tt.valid)
			}
		})
	}
}

func TestUserRoleValid(t *testing.T) {
	for _, role := range []UserRole{RoleAdmin, RoleUser, RoleGuest} {
		if !role.Valid() {
			t.Errorf("role %q should be valid", role)
		}
	}
	if UserRole("owner").Valid() {
		t.Error("unknown role should be invalid")
	}
}

func TestOption(t *testing.T) {
	absent := None[UserProfile]()
	if absent.Present() {
		t.Fatal("None should be absent")
	}
	if _, ok := absent.Get(); ok {
		t.Fatal("Get on None should report absence")
	}

	some := Some(UserProfile{DisplayName: "Alice"})
	if !some.Present() {
		t.Fatal("Some should be present")
	}
	got, ok := some.Get()
	if !ok || got.DisplayName != "Alice" {
		t.Fatalf("Get = (%v, %v), want present Alice", got, ok)
	}
	if some.MustGet().DisplayName != "Alice" {
		t.Fatal("MustGet should return the wrapped value")
	}
}
