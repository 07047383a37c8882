// Package session assembles a running courier client: identity resolution,
// the remote store connection, the sync engine, the read-state coordinator,
// and the message composer, with a single lifecycle.
package session

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/courier-im/courier/internal/chatlist"
	"github.com/courier-im/courier/internal/compose"
	"github.com/courier-im/courier/internal/config"
	"github.com/courier-im/courier/internal/engine"
	"github.com/courier-im/courier/internal/identity"
	"github.com/courier-im/courier/internal/logging"
	"github.com/courier-im/courier/internal/models"
	"github.com/courier-im/courier/internal/principal"
	"github.com/courier-im/courier/internal/readstate"
	"github.com/courier-im/courier/internal/remote"
	"github.com/courier-im/courier/internal/store"
)

// StoreFactory builds the remote store for a resolved identity. The default
// dials the configured daemon; tests substitute fakes.
type StoreFactory func(id *identity.Identity) store.RemoteStore

// Session is the assembled client. Zero value is unusable; build with New.
// Every accessor fails with ErrUnavailable until Start has resolved the
// identity, and again after Close.
type Session struct {
	cfg     *config.Config
	factory StoreFactory
	logger  zerolog.Logger

	idCtx    *identity.Context
	engine   *engine.Engine
	reads    *readstate.Coordinator
	composer *compose.Composer
	started  bool
}

// Option configures a Session.
type Option func(*Session)

// WithStoreFactory substitutes the remote store construction. Tests.
func WithStoreFactory(factory StoreFactory) Option {
	return func(s *Session) {
		if factory != nil {
			s.factory = factory
		}
	}
}

// New builds an unstarted session from configuration.
func New(cfg *config.Config, opts ...Option) *Session {
	s := &Session{
		cfg:    cfg,
		logger: logging.Component("session"),
		idCtx:  identity.NewContext(),
	}
	s.factory = func(id *identity.Identity) store.RemoteStore {
		return remote.New(cfg.Server.Addr, id)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start resolves the local identity (generating a keypair on first run),
// connects the engine to the remote store, and begins polling.
func (s *Session) Start(ctx context.Context) error {
	if s.started {
		return engine.ErrAlreadyRunning
	}

	id, err := identity.LoadOrGenerate(s.cfg.IdentityKeyPath())
	if err != nil {
		return fmt.Errorf("failed to resolve identity: %w", err)
	}
	s.idCtx.Resolve(id)

	s.engine = engine.New(s.factory(id), engine.Intervals{
		ChatList:         s.cfg.Sync.ChatListInterval,
		Messages:         s.cfg.Sync.MessagesInterval,
		UnreadCount:      s.cfg.Sync.UnreadInterval,
		ProfileStaleness: s.cfg.Sync.ProfileStaleness,
	})
	s.reads = readstate.New(s.engine)
	s.composer = compose.New(s.engine)

	if err := s.engine.Start(ctx); err != nil {
		s.idCtx.Clear()
		return err
	}
	s.started = true

	s.logger.Info().Str("principal", id.Principal.String()).Msg("session started")
	return nil
}

// Close stops polling, clears every cached view, and drops the resolved
// identity. Nothing cached outlives the session.
func (s *Session) Close() error {
	if !s.started {
		return nil
	}
	s.started = false
	s.idCtx.Clear()
	return s.engine.Close()
}

// Ready reports whether the session has started and the identity is resolved.
func (s *Session) Ready() bool {
	return s.started && s.idCtx.Ready()
}

// Principal returns the caller principal of the running session.
func (s *Session) Principal() (principal.Principal, error) {
	if !s.started {
		return "", models.ErrUnavailable
	}
	return s.idCtx.Principal()
}

// Engine returns the sync engine of the running session.
func (s *Session) Engine() (*engine.Engine, error) {
	if !s.started {
		return nil, models.ErrUnavailable
	}
	return s.engine, nil
}

// Reads returns the read-state coordinator of the running session.
func (s *Session) Reads() (*readstate.Coordinator, error) {
	if !s.started {
		return nil, models.ErrUnavailable
	}
	return s.reads, nil
}

// Composer returns the message composer of the running session.
func (s *Session) Composer() (*compose.Composer, error) {
	if !s.started {
		return nil, models.ErrUnavailable
	}
	return s.composer, nil
}

// Threads projects the current chat-list snapshot into the caller's ordered
// thread list. A DataError from the projection is logged and swallowed; the
// well-formed rest of the list is still returned.
func (s *Session) Threads() ([]models.Thread, error) {
	if !s.started {
		return nil, models.ErrUnavailable
	}
	viewer, err := s.idCtx.Principal()
	if err != nil {
		return nil, models.ErrUnavailable
	}

	snap := s.engine.ChatList()
	value, ok := snap.Value.Get()
	if !ok {
		if snap.Err != nil {
			return nil, snap.Err
		}
		return nil, nil
	}

	threads, err := chatlist.Project(value, viewer)
	if err != nil {
		s.logger.Warn().Err(err).Msg("dropping malformed chat-list entries")
	}
	return threads, nil
}
