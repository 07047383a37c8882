package compose

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courier-im/courier/internal/principal"
)

type fakeSender struct {
	mu    sync.Mutex
	sent  []string
	err   error
	calls int
}

func (f *fakeSender) SendMessage(_ context.Context, _ principal.Principal, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, content)
	return nil
}

var receiver = principal.Principal("bbb")

func TestSubmitSendsTrimmedContentAndClearsDraft(t *testing.T) {
	sender := &fakeSender{}
	c := New(sender)

	c.SetDraft(receiver, "  hello there  ")
	require.True(t, c.Validate(receiver).Valid)

	require.NoError(t, c.Submit(context.Background(), receiver))
	assert.Equal(t, []string{"hello there"}, sender.sent)
	assert.Empty(t, c.Draft(receiver))
}

func TestSubmitEmptyDraftMakesNoRemoteCall(t *testing.T) {
	sender := &fakeSender{}
	c := New(sender)

	err := c.Submit(context.Background(), receiver)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Zero(t, sender.calls)
}

func TestSubmitOverlongDraftMakesNoRemoteCall(t *testing.T) {
	sender := &fakeSender{}
	c := New(sender)

	c.SetDraft(receiver, strings.Repeat("a", 1001))
	result := c.Validate(receiver)
	require.False(t, result.Valid)
	assert.Contains(t, result.Error, "1000")

	err := c.Submit(context.Background(), receiver)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Zero(t, sender.calls)
}

func TestSubmitFailurePreservesDraft(t *testing.T) {
	sendErr := errors.New("network down")
	sender := &fakeSender{err: sendErr}
	c := New(sender)

	c.SetDraft(receiver, "please retry me")
	err := c.Submit(context.Background(), receiver)

	require.ErrorIs(t, err, sendErr)
	assert.Equal(t, "please retry me", c.Draft(receiver))

	// A later retry succeeds and then clears.
	sender.mu.Lock()
	sender.err = nil
	sender.mu.Unlock()

	require.NoError(t, c.Submit(context.Background(), receiver))
	assert.Empty(t, c.Draft(receiver))
}

func TestDraftsAreIndependentPerThread(t *testing.T) {
	sender := &fakeSender{}
	c := New(sender)

	other := principal.Principal("ccc")
	c.SetDraft(receiver, "to b")
	c.SetDraft(other, "to c")

	require.NoError(t, c.Submit(context.Background(), receiver))
	assert.Empty(t, c.Draft(receiver))
	assert.Equal(t, "to c", c.Draft(other))
}

func TestEditingReplacesValidationState(t *testing.T) {
	c := New(&fakeSender{})

	c.SetDraft(receiver, strings.Repeat("a", 1001))
	require.False(t, c.Validate(receiver).Valid)

	// The error state is derived from the text, so changing the text is
	// all it takes to clear it.
	c.SetDraft(receiver, "short and sweet")
	assert.True(t, c.Validate(receiver).Valid)
}
