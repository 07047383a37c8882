// Package remote implements the wire client for the courier store daemon.
// Client satisfies store.RemoteStore; every call dials the daemon, sends one
// signed request line, and reads one response line.
package remote

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/courier-im/courier/internal/identity"
	"github.com/courier-im/courier/internal/logging"
	"github.com/courier-im/courier/internal/models"
	"github.com/courier-im/courier/internal/principal"
	"github.com/courier-im/courier/internal/store"
	"github.com/courier-im/courier/internal/wire"
)

const defaultDialTimeout = 5 * time.Second

// maxLineSize mirrors the daemon's request line bound.
const maxLineSize = 1 << 20

// Client is the wire implementation of the remote store. The caller identity
// is bound at construction; every request is signed with it.
type Client struct {
	addr        string
	id          *identity.Identity
	dialTimeout time.Duration
	log         zerolog.Logger
}

var _ store.RemoteStore = (*Client)(nil)

// New creates a Client that talks to the daemon at addr on behalf of id.
func New(addr string, id *identity.Identity) *Client {
	return &Client{
		addr:        addr,
		id:          id,
		dialTimeout: defaultDialTimeout,
		log:         logging.Component("remote").With().Str("principal", id.Principal.String()).Logger(),
	}
}

// GetCallerUserProfile returns the caller's own profile, or absent.
func (c *Client) GetCallerUserProfile(ctx context.Context) (models.Option[models.UserProfile], error) {
	resp, err := c.call(ctx, wire.Request{Op: wire.OpGetCallerUserProfile})
	if err != nil {
		return models.None[models.UserProfile](), err
	}
	return profileFromResponse(resp), nil
}

// GetUserProfile returns the profile of an arbitrary principal, or absent.
func (c *Client) GetUserProfile(ctx context.Context, user principal.Principal) (models.Option[models.UserProfile], error) {
	resp, err := c.call(ctx, wire.Request{Op: wire.OpGetUserProfile, User: user.String()})
	if err != nil {
		return models.None[models.UserProfile](), err
	}
	return profileFromResponse(resp), nil
}

// SaveCallerUserProfile creates or replaces the caller's profile.
func (c *Client) SaveCallerUserProfile(ctx context.Context, profile models.UserProfile) error {
	_, err := c.call(ctx, wire.Request{Op: wire.OpSaveCallerUserProfile, Profile: &profile})
	return err
}

// GetChatList returns the caller's conversations, unsorted.
func (c *Client) GetChatList(ctx context.Context) ([]models.ChatListEntry, error) {
	resp, err := c.call(ctx, wire.Request{Op: wire.OpGetChatList})
	if err != nil {
		return nil, err
	}
	return resp.ChatList, nil
}

// GetMessages returns all messages between the caller and user.
func (c *Client) GetMessages(ctx context.Context, withUser principal.Principal) ([]models.ChatMessage, error) {
	resp, err := c.call(ctx, wire.Request{Op: wire.OpGetMessages, User: withUser.String()})
	if err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// SendMessage sends content to the receiver.
func (c *Client) SendMessage(ctx context.Context, receiver principal.Principal, content string) error {
	_, err := c.call(ctx, wire.Request{Op: wire.OpSendMessage, User: receiver.String(), Content: content})
	return err
}

// GetUnreadMessageCount returns the caller's unread count from user.
func (c *Client) GetUnreadMessageCount(ctx context.Context, withUser principal.Principal) (int64, error) {
	resp, err := c.call(ctx, wire.Request{Op: wire.OpGetUnreadMessageCount, User: withUser.String()})
	if err != nil {
		return 0, err
	}
	if resp.Count == nil {
		return 0, models.NewRemoteError(wire.OpGetUnreadMessageCount, fmt.Errorf("response missing count"))
	}
	return *resp.Count, nil
}

// MarkMessagesAsRead marks all messages from user to the caller as read.
func (c *Client) MarkMessagesAsRead(ctx context.Context, withUser principal.Principal) error {
	_, err := c.call(ctx, wire.Request{Op: wire.OpMarkMessagesAsRead, User: withUser.String()})
	return err
}

// GetCallerUserRole returns the caller's role.
func (c *Client) GetCallerUserRole(ctx context.Context) (models.UserRole, error) {
	resp, err := c.call(ctx, wire.Request{Op: wire.OpGetCallerUserRole})
	if err != nil {
		return "", err
	}
	return models.UserRole(resp.Role), nil
}

// AssignCallerUserRole assigns a role to a principal. Admin only.
func (c *Client) AssignCallerUserRole(ctx context.Context, user principal.Principal, role models.UserRole) error {
	_, err := c.call(ctx, wire.Request{Op: wire.OpAssignCallerUserRole, User: user.String(), Role: string(role)})
	return err
}

// IsCallerAdmin reports whether the caller holds the admin role.
func (c *Client) IsCallerAdmin(ctx context.Context) (bool, error) {
	resp, err := c.call(ctx, wire.Request{Op: wire.OpIsCallerAdmin})
	if err != nil {
		return false, err
	}
	return resp.Admin != nil && *resp.Admin, nil
}

// call signs and sends one request and reads the matching response. Transport
// and protocol failures both come back as RemoteError for the operation.
func (c *Client) call(ctx context.Context, req wire.Request) (wire.Response, error) {
	req.ID = uuid.NewString()
	req.Caller = c.id.Principal.String()
	req.PubKey = base64.StdEncoding.EncodeToString(c.id.Public())
	req.Sig = base64.StdEncoding.EncodeToString(c.id.Sign(wire.SignBase(req)))

	resp, err := c.roundTrip(ctx, req)
	if err != nil {
		c.log.Debug().Str("op", req.Op).Str("error", logging.Redact(err.Error())).Msg("transport failure")
		return wire.Response{}, models.NewRemoteError(req.Op, err)
	}
	if !resp.OK {
		respErr := resp.Error
		if respErr == nil {
			respErr = &wire.Error{Code: wire.CodeInternal, Message: "unspecified failure"}
		}
		c.log.Debug().Str("op", req.Op).Str("code", respErr.Code).Msg("request rejected")
		return wire.Response{}, models.NewRemoteError(req.Op, respErr)
	}
	if resp.ID != req.ID {
		return wire.Response{}, models.NewRemoteError(req.Op, fmt.Errorf("response id mismatch"))
	}
	return resp, nil
}

func (c *Client) roundTrip(ctx context.Context, req wire.Request) (wire.Response, error) {
	dialer := net.Dialer{Timeout: c.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return wire.Response{}, err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(c.dialTimeout))
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return wire.Response{}, err
	}
	if _, err := conn.Write(append(payload, '\n')); err != nil {
		return wire.Response{}, err
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return wire.Response{}, err
		}
		return wire.Response{}, fmt.Errorf("connection closed before response")
	}

	var resp wire.Response
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return wire.Response{}, fmt.Errorf("malformed response: %w", err)
	}
	return resp, nil
}

func profileFromResponse(resp wire.Response) models.Option[models.UserProfile] {
	if resp.Profile == nil {
		return models.None[models.UserProfile]()
	}
	return models.Some(*resp.Profile)
}
