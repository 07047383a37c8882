// Package store defines the RPC contract of the remote message store as
// consumed by the courier client. Implementations live elsewhere: the wire
// client in internal/remote, the sqlite-backed daemon store in internal/db.
package store

import (
	"context"

	"github.com/courier-im/courier/internal/models"
	"github.com/courier-im/courier/internal/principal"
)

// RemoteStore is the boundary to the identity-addressed message store. All
// calls are issued on behalf of an authenticated caller; the caller principal
// is bound at construction time, not passed per call.
//
// Fetch operations are idempotent and side-effect-free. Absence of a profile
// is a valid result, not an error.
type RemoteStore interface {
	// GetCallerUserProfile returns the caller's own profile, or absent if
	// one has never been saved.
	GetCallerUserProfile(ctx context.Context) (models.Option[models.UserProfile], error)

	// GetUserProfile returns the profile of an arbitrary principal.
	GetUserProfile(ctx context.Context, user principal.Principal) (models.Option[models.UserProfile], error)

	// SaveCallerUserProfile creates or replaces the caller's profile.
	SaveCallerUserProfile(ctx context.Context, profile models.UserProfile) error

	// GetChatList returns the caller's conversations as unordered
	// participant pairs with last-activity timestamps. Unsorted.
	GetChatList(ctx context.Context) ([]models.ChatListEntry, error)

	// GetMessages returns all messages between the caller and the given
	// principal. Order is unspecified; callers must sort.
	GetMessages(ctx context.Context, withUser principal.Principal) ([]models.ChatMessage, error)

	// SendMessage sends content to the receiver. The store assigns the
	// message id and timestamp.
	SendMessage(ctx context.Context, receiver principal.Principal, content string) error

	// GetUnreadMessageCount returns how many messages from the given
	// principal to the caller are unread.
	GetUnreadMessageCount(ctx context.Context, withUser principal.Principal) (int64, error)

	// MarkMessagesAsRead marks all messages from the given principal to
	// the caller as read.
	MarkMessagesAsRead(ctx context.Context, withUser principal.Principal) error

	// GetCallerUserRole returns the caller's role.
	GetCallerUserRole(ctx context.Context) (models.UserRole, error)

	// AssignCallerUserRole assigns a role to a principal. Admin only.
	AssignCallerUserRole(ctx context.Context, user principal.Principal, role models.UserRole) error

	// IsCallerAdmin reports whether the caller holds the admin role.
	IsCallerAdmin(ctx context.Context) (bool, error)
}
