// Package compose gates message submission behind local validation and
// coordinates draft clearing against confirmed remote success.
package compose

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/courier-im/courier/internal/models"
	"github.com/courier-im/courier/internal/principal"
)

// ErrInvalid is returned by Submit when the draft fails validation. No
// remote call is made in that case.
var ErrInvalid = errors.New("draft failed validation")

// Sender performs the remote send. Satisfied by *engine.Engine, which also
// invalidates the message log and chat list on success.
type Sender interface {
	SendMessage(ctx context.Context, receiver principal.Principal, content string) error
}

// Composer holds one draft per thread. Validation is pure and re-run on
// every edit; submission only fires for a valid draft, clears the draft only
// on confirmed success, and preserves it unchanged on failure so the user
// can retry without retyping.
type Composer struct {
	sender Sender

	mu     sync.Mutex
	drafts map[principal.Principal]string
}

// New builds a composer over the given sender.
func New(sender Sender) *Composer {
	return &Composer{
		sender: sender,
		drafts: make(map[principal.Principal]string),
	}
}

// Draft returns the current draft for a thread.
func (c *Composer) Draft(with principal.Principal) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drafts[with]
}

// SetDraft replaces the draft for a thread. Changing the text is also what
// clears any previous inline validation error: validation state is derived,
// not stored.
func (c *Composer) SetDraft(with principal.Principal, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if text == "" {
		delete(c.drafts, with)
		return
	}
	c.drafts[with] = text
}

// Validate checks the current draft for a thread.
func (c *Composer) Validate(with principal.Principal) models.ValidationResult {
	return models.ValidateMessage(c.Draft(with))
}

// Submit sends the draft for a thread. Invalid drafts return ErrInvalid
// without touching the remote store. On remote success the draft is cleared;
// on remote failure it is left exactly as typed and the error is returned
// for the caller to surface.
func (c *Composer) Submit(ctx context.Context, with principal.Principal) error {
	draft := c.Draft(with)
	if result := models.ValidateMessage(draft); !result.Valid {
		return ErrInvalid
	}

	if err := c.sender.SendMessage(ctx, with, strings.TrimSpace(draft)); err != nil {
		return err
	}

	c.mu.Lock()
	// Only clear if the draft was not edited while the send was in flight.
	if c.drafts[with] == draft {
		delete(c.drafts, with)
	}
	c.mu.Unlock()
	return nil
}
