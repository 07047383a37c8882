// Package courierd implements the store daemon: a newline-delimited JSON
// protocol over TCP, backed by the sqlite repositories.
package courierd

import (
	"bufio"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"github.com/courier-im/courier/internal/db"
	"github.com/courier-im/courier/internal/logging"
	"github.com/courier-im/courier/internal/models"
	"github.com/courier-im/courier/internal/principal"
	"github.com/courier-im/courier/internal/wire"
)

// maxLineSize bounds a single request line. Generous relative to the message
// content limit, tight enough to shed garbage input.
const maxLineSize = 1 << 20

// Server accepts client connections and serves store operations.
type Server struct {
	messages *db.MessageRepository
	profiles *db.ProfileRepository
	roles    *db.RoleRepository
	log      zerolog.Logger

	mu       sync.Mutex
	listener net.Listener
	closed   bool
	wg       sync.WaitGroup
}

// New creates a Server over an opened store database.
func New(database *db.DB) *Server {
	return &Server{
		messages: db.NewMessageRepository(database),
		profiles: db.NewProfileRepository(database),
		roles:    db.NewRoleRepository(database),
		log:      logging.Component("courierd"),
	}
}

// Serve accepts connections on the listener until Shutdown. It always returns
// a non-nil error; after Shutdown the error is net.ErrClosed.
func (s *Server) Serve(listener net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return net.ErrClosed
	}
	s.listener = listener
	s.mu.Unlock()

	s.log.Info().Str("addr", listener.Addr().String()).Msg("listening")

	for {
		conn, err := listener.Accept()
		if err != nil {
			return err
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

// Shutdown stops accepting connections and waits for in-flight handlers.
func (s *Server) Shutdown() {
	s.mu.Lock()
	s.closed = true
	listener := s.listener
	s.mu.Unlock()

	if listener != nil {
		_ = listener.Close()
	}
	s.wg.Wait()
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	log := s.log.With().Str("remote", conn.RemoteAddr().String()).Logger()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	encoder := json.NewEncoder(conn)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req wire.Request
		if err := json.Unmarshal(line, &req); err != nil {
			log.Warn().Err(err).Msg("malformed request line")
			_ = encoder.Encode(wire.Response{
				OK:    false,
				Error: &wire.Error{Code: wire.CodeBadRequest, Message: "malformed request"},
			})
			continue
		}

		resp := s.dispatch(context.Background(), log, req)
		resp.ID = req.ID
		if err := encoder.Encode(resp); err != nil {
			log.Debug().Err(err).Msg("write failed, dropping connection")
			return
		}
	}
	if err := scanner.Err(); err != nil {
		log.Debug().Err(err).Msg("connection read error")
	}
}

func (s *Server) dispatch(ctx context.Context, log zerolog.Logger, req wire.Request) wire.Response {
	caller, errResp := authenticate(req)
	if errResp != nil {
		log.Warn().Str("op", req.Op).Str("claimed", req.Caller).Msg("authentication failed")
		return *errResp
	}

	log.Debug().Str("op", req.Op).Str("caller", caller.String()).Msg("request")

	switch req.Op {
	case wire.OpGetCallerUserProfile:
		return s.handleGetProfile(ctx, caller)

	case wire.OpGetUserProfile:
		user, resp := parseUser(req.User)
		if resp != nil {
			return *resp
		}
		return s.handleGetProfile(ctx, user)

	case wire.OpSaveCallerUserProfile:
		if req.Profile == nil {
			return fail(wire.CodeBadRequest, "missing profile")
		}
		if err := s.profiles.Save(ctx, caller, *req.Profile); err != nil {
			return failFromStore(err)
		}
		return ok()

	case wire.OpGetChatList:
		entries, err := s.messages.ChatList(ctx, caller)
		if err != nil {
			return failFromStore(err)
		}
		return wire.Response{OK: true, ChatList: entries}

	case wire.OpGetMessages:
		user, resp := parseUser(req.User)
		if resp != nil {
			return *resp
		}
		messages, err := s.messages.Between(ctx, caller, user)
		if err != nil {
			return failFromStore(err)
		}
		return wire.Response{OK: true, Messages: messages}

	case wire.OpSendMessage:
		user, resp := parseUser(req.User)
		if resp != nil {
			return *resp
		}
		if _, err := s.messages.Send(ctx, caller, user, req.Content); err != nil {
			return failFromStore(err)
		}
		return ok()

	case wire.OpGetUnreadMessageCount:
		user, resp := parseUser(req.User)
		if resp != nil {
			return *resp
		}
		count, err := s.messages.UnreadCount(ctx, caller, user)
		if err != nil {
			return failFromStore(err)
		}
		return wire.Response{OK: true, Count: &count}

	case wire.OpMarkMessagesAsRead:
		user, resp := parseUser(req.User)
		if resp != nil {
			return *resp
		}
		if err := s.messages.MarkRead(ctx, caller, user); err != nil {
			return failFromStore(err)
		}
		return ok()

	case wire.OpGetCallerUserRole:
		role, err := s.roles.Get(ctx, caller)
		if err != nil {
			return failFromStore(err)
		}
		return wire.Response{OK: true, Role: string(role)}

	case wire.OpAssignCallerUserRole:
		user, resp := parseUser(req.User)
		if resp != nil {
			return *resp
		}
		callerRole, err := s.roles.Get(ctx, caller)
		if err != nil {
			return failFromStore(err)
		}
		if callerRole != models.RoleAdmin {
			return fail(wire.CodeForbidden, "admin role required")
		}
		if err := s.roles.Assign(ctx, user, models.UserRole(req.Role)); err != nil {
			return failFromStore(err)
		}
		return ok()

	case wire.OpIsCallerAdmin:
		role, err := s.roles.Get(ctx, caller)
		if err != nil {
			return failFromStore(err)
		}
		admin := role == models.RoleAdmin
		return wire.Response{OK: true, Admin: &admin}

	default:
		return fail(wire.CodeBadRequest, "unknown operation: "+req.Op)
	}
}

func (s *Server) handleGetProfile(ctx context.Context, user principal.Principal) wire.Response {
	profile, err := s.profiles.Get(ctx, user)
	if err != nil {
		return failFromStore(err)
	}
	resp := wire.Response{OK: true}
	if p, present := profile.Get(); present {
		resp.Profile = &p
	}
	return resp
}

// authenticate verifies the request signature and returns the proven caller
// principal. The claimed caller must match the principal derived from the
// signing key.
func authenticate(req wire.Request) (principal.Principal, *wire.Response) {
	pub, err := base64.StdEncoding.DecodeString(req.PubKey)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		resp := fail(wire.CodeUnauthorized, "malformed public key")
		return "", &resp
	}
	sig, err := base64.StdEncoding.DecodeString(req.Sig)
	if err != nil {
		resp := fail(wire.CodeUnauthorized, "malformed signature")
		return "", &resp
	}
	if !ed25519.Verify(ed25519.PublicKey(pub), wire.SignBase(req), sig) {
		resp := fail(wire.CodeUnauthorized, "signature verification failed")
		return "", &resp
	}

	derived := principal.FromPublicKey(pub)
	if req.Caller != derived.String() {
		resp := fail(wire.CodeUnauthorized, "caller does not match signing key")
		return "", &resp
	}
	return derived, nil
}

func parseUser(text string) (principal.Principal, *wire.Response) {
	user, err := principal.FromText(text)
	if err != nil {
		resp := fail(wire.CodeBadRequest, "invalid user principal")
		return "", &resp
	}
	return user, nil
}

func ok() wire.Response {
	return wire.Response{OK: true}
}

func fail(code, message string) wire.Response {
	return wire.Response{OK: false, Error: &wire.Error{Code: code, Message: message}}
}

// failFromStore maps repository errors to protocol error codes. Validation
// failures are the client's fault; everything else is internal.
func failFromStore(err error) wire.Response {
	switch {
	case errors.Is(err, db.ErrInvalidContent),
		errors.Is(err, db.ErrSelfMessage),
		errors.Is(err, db.ErrInvalidDisplayName),
		errors.Is(err, db.ErrInvalidRole):
		return fail(wire.CodeInvalid, err.Error())
	default:
		return fail(wire.CodeInternal, err.Error())
	}
}
