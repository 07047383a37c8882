// Package models defines the domain types shared by the courier client,
// daemon, and wire protocol.
package models

import (
	"github.com/courier-im/courier/internal/principal"
)

// UserProfile is the per-principal profile. A principal has zero or one
// profile; absence is a valid, observable state.
type UserProfile struct {
	DisplayName string `json:"displayName"`
}

// ChatMessage is a single direct message. Immutable after creation except for
// IsRead, which transitions false to true exactly once and never reverses.
type ChatMessage struct {
	// ID is assigned by the store and is unique and monotonic per store.
	ID int64 `json:"id"`

	Sender   principal.Principal `json:"sender"`
	Receiver principal.Principal `json:"receiver"`

	// Content is 1-1000 characters after trimming.
	Content string `json:"content"`

	IsRead bool `json:"isRead"`

	// Timestamp is a nanosecond-scale logical clock value assigned by the
	// store. Strictly increasing per store.
	Timestamp int64 `json:"timestamp"`
}

// ChatListEntry is one raw chat-list row as returned by the store: the
// unordered participant pair and the timestamp of the latest message
// between them. The store does not sort these; the client does.
type ChatListEntry struct {
	Participants [2]principal.Principal `json:"participants"`
	LastActivity int64                  `json:"lastActivity"`
}

// Thread is the viewer-relative projection of a ChatListEntry: the other
// participant plus the last-activity timestamp.
type Thread struct {
	Other        principal.Principal `json:"other"`
	LastActivity int64               `json:"lastActivity"`
}

// UserRole is the coarse role assigned to a principal by the store.
type UserRole string

// Known roles.
const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
	RoleGuest UserRole = "guest"
)

// Valid reports whether the role is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleGuest:
		return true
	}
	return false
}
