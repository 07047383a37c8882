// Package readstate guarantees the unread-to-read transition fires at most
// once per thread activation, and never before a message has actually been
// observed locally.
package readstate

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/courier-im/courier/internal/logging"
	"github.com/courier-im/courier/internal/models"
	"github.com/courier-im/courier/internal/principal"
)

// State is the per-activation machine state.
type State string

// Activation states. Marked and MarkFailed are terminal for an activation;
// a revisited thread starts a fresh activation in Idle.
const (
	StateIdle       State = "idle"
	StateMarking    State = "marking"
	StateMarked     State = "marked"
	StateMarkFailed State = "mark_failed"
)

// Marker performs the remote unread-to-read transition. Satisfied by
// *engine.Engine, which also invalidates the unread-count and message views
// on success.
type Marker interface {
	MarkMessagesAsRead(ctx context.Context, with principal.Principal) error
}

// Coordinator tracks one activation per currently open thread view.
type Coordinator struct {
	marker Marker
	logger zerolog.Logger

	mu     sync.Mutex
	active map[principal.Principal]*Activation
}

// New builds a coordinator over the given marker.
func New(marker Marker) *Coordinator {
	return &Coordinator{
		marker: marker,
		logger: logging.Component("read-state"),
		active: make(map[principal.Principal]*Activation),
	}
}

// Begin opens an activation for the thread with the given principal. An
// activation already open for that thread is ended first: re-entering a
// thread always resets the latch to Idle.
func (c *Coordinator) Begin(other principal.Principal) *Activation {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.active[other]; ok {
		prev.endLocked()
	}
	a := &Activation{
		ID:          uuid.NewString(),
		Other:       other,
		coordinator: c,
		state:       StateIdle,
	}
	c.active[other] = a
	c.logger.Debug().Str("activation", a.ID).Str("with", other.String()).Msg("activation opened")
	return a
}

// Activation is one continuous period during which a thread view is visible.
// It owns the mark-read latch for that period.
type Activation struct {
	ID    string
	Other principal.Principal

	coordinator *Coordinator

	mu      sync.Mutex
	state   State
	ended   bool
	markErr error
}

// State returns the current machine state.
func (a *Activation) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// MarkError returns the failure recorded by an unsuccessful mark-read call,
// or nil. A failed transition is never presented as success.
func (a *Activation) MarkError() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.markErr
}

// Observe feeds the activation one fetched snapshot of the thread's message
// log. The first non-empty observation fires the single mark-read call for
// this activation; every later observation, including refetches of the same
// list, is a no-op.
func (a *Activation) Observe(ctx context.Context, messages []models.ChatMessage) {
	a.mu.Lock()
	if a.ended || a.state != StateIdle || len(messages) == 0 {
		a.mu.Unlock()
		return
	}
	a.state = StateMarking
	a.mu.Unlock()

	logger := a.coordinator.logger.With().Str("activation", a.ID).Logger()
	logger.Debug().Int("observed", len(messages)).Msg("marking thread read")

	err := a.coordinator.marker.MarkMessagesAsRead(ctx, a.Other)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		// No retry within this activation; the next activation of the
		// thread starts a fresh machine and tries again.
		a.state = StateMarkFailed
		a.markErr = err
		logger.Warn().Err(err).Msg("mark-read failed")
		return
	}
	a.state = StateMarked
	logger.Debug().Msg("thread marked read")
}

// End retires the activation. Idempotent. After End, Observe is a no-op even
// if a late message fetch still delivers a snapshot.
func (a *Activation) End() {
	c := a.coordinator
	c.mu.Lock()
	defer c.mu.Unlock()
	a.endLocked()
	if c.active[a.Other] == a {
		delete(c.active, a.Other)
	}
}

func (a *Activation) endLocked() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ended = true
}
