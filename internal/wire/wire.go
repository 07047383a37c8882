// Package wire defines the newline-delimited JSON protocol spoken between
// the courier client and the store daemon. One request line, one response
// line, per operation.
package wire

import (
	"strings"

	"github.com/courier-im/courier/internal/models"
)

// Operation names. These mirror the store contract one to one.
const (
	OpGetCallerUserProfile  = "getCallerUserProfile"
	OpGetUserProfile        = "getUserProfile"
	OpSaveCallerUserProfile = "saveCallerUserProfile"
	OpGetChatList           = "getChatList"
	OpGetMessages           = "getMessages"
	OpSendMessage           = "sendMessage"
	OpGetUnreadMessageCount = "getUnreadMessageCount"
	OpMarkMessagesAsRead    = "markMessagesAsRead"
	OpGetCallerUserRole     = "getCallerUserRole"
	OpAssignCallerUserRole  = "assignCallerUserRole"
	OpIsCallerAdmin         = "isCallerAdmin"
)

// Error codes carried on failed responses.
const (
	CodeBadRequest   = "bad_request"
	CodeUnauthorized = "unauthorized"
	CodeForbidden    = "forbidden"
	CodeInvalid      = "invalid"
	CodeInternal     = "internal"
)

// Request is one client call. Caller identity is proven by an ed25519
// signature over SignBase with the public key the caller principal was
// derived from.
type Request struct {
	ID     string `json:"id"`
	Op     string `json:"op"`
	Caller string `json:"caller"`
	PubKey string `json:"pubkey"`
	Sig    string `json:"sig"`

	// Operation parameters; which are set depends on Op.
	User    string              `json:"user,omitempty"`
	Content string              `json:"content,omitempty"`
	Profile *models.UserProfile `json:"profile,omitempty"`
	Role    string              `json:"role,omitempty"`
}

// Error is the failure payload of a response.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Code + ": " + e.Message
}

// Response is one daemon reply. Exactly one of the payload fields is set on
// success, matching the request's Op.
type Response struct {
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	Error *Error `json:"error,omitempty"`

	Profile  *models.UserProfile    `json:"profile,omitempty"`
	ChatList []models.ChatListEntry `json:"chatList,omitempty"`
	Messages []models.ChatMessage   `json:"messages,omitempty"`
	Count    *int64                 `json:"count,omitempty"`
	Role     string                 `json:"role,omitempty"`
	Admin    *bool                  `json:"admin,omitempty"`
}

// SignBase returns the canonical byte string a request signature covers:
// every field that influences the operation, joined unambiguously.
func SignBase(req Request) []byte {
	displayName := ""
	if req.Profile != nil {
		displayName = req.Profile.DisplayName
	}
	return []byte(strings.Join([]string{
		req.ID,
		req.Op,
		req.Caller,
		req.User,
		req.Content,
		displayName,
		req.Role,
	}, "\n"))
}
