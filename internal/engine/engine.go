// Package engine implements the client-side synchronization engine: keyed
// caches over the remote store's views, a poll scheduler that keeps
// referenced views fresh, and the mutation paths whose success invalidates
// exactly the views they touch.
package engine

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/courier-im/courier/internal/logging"
	"github.com/courier-im/courier/internal/models"
	"github.com/courier-im/courier/internal/principal"
	"github.com/courier-im/courier/internal/store"
)

// Engine errors.
var (
	ErrAlreadyRunning = errors.New("engine already running")
	ErrNotRunning     = errors.New("engine not running")
)

// Intervals configures per-view polling cadence and the scheduler tick.
type Intervals struct {
	// ChatList is the poll interval for the conversation list.
	// Default: 5s
	ChatList time.Duration

	// Messages is the poll interval for an open thread's message log.
	// Tighter than the rest; this is the active-conversation view.
	// Default: 3s
	Messages time.Duration

	// UnreadCount is the poll interval for per-thread unread counts.
	// Default: 5s
	UnreadCount time.Duration

	// ProfileStaleness is how long another user's profile is served from
	// cache before a new reference refetches it.
	// Default: 5m
	ProfileStaleness time.Duration

	// Tick is the scheduler granularity.
	// Default: 500ms
	Tick time.Duration
}

// DefaultIntervals returns the polling cadence used in production.
func DefaultIntervals() Intervals {
	return Intervals{
		ChatList:         5 * time.Second,
		Messages:         3 * time.Second,
		UnreadCount:      5 * time.Second,
		ProfileStaleness: 5 * time.Minute,
		Tick:             500 * time.Millisecond,
	}
}

func (i Intervals) withDefaults() Intervals {
	def := DefaultIntervals()
	if i.ChatList <= 0 {
		i.ChatList = def.ChatList
	}
	if i.Messages <= 0 {
		i.Messages = def.Messages
	}
	if i.UnreadCount <= 0 {
		i.UnreadCount = def.UnreadCount
	}
	if i.ProfileStaleness <= 0 {
		i.ProfileStaleness = def.ProfileStaleness
	}
	if i.Tick <= 0 {
		i.Tick = def.Tick
	}
	return i
}

// listKey is the singleton key for caller-scoped views with no parameter.
type listKey struct{}

// Engine owns every cache entry; consumers read snapshots and never mutate
// cache state directly. Mutations write through the engine's invalidation
// path only, never by patching cached values.
type Engine struct {
	store  store.RemoteStore
	logger zerolog.Logger
	clock  func() time.Time

	callerProfile *cache[listKey, models.Option[models.UserProfile]]
	userProfiles  *cache[principal.Principal, models.Option[models.UserProfile]]
	chatList      *cache[listKey, []models.ChatListEntry]
	messages      *cache[principal.Principal, []models.ChatMessage]
	unreadCounts  *cache[principal.Principal, int64]

	tick    time.Duration
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock injects a clock. Tests.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// New builds an engine over the given store.
func New(remote store.RemoteStore, intervals Intervals, opts ...Option) *Engine {
	intervals = intervals.withDefaults()

	e := &Engine{
		store:  remote,
		logger: logging.Component("sync-engine"),
		clock:  time.Now,
		tick:   intervals.Tick,
	}
	for _, opt := range opts {
		opt(e)
	}

	clock := func() time.Time { return e.clock() }
	e.callerProfile = newCache("callerProfile", 0,
		func(ctx context.Context, _ listKey) (models.Option[models.UserProfile], error) {
			return e.store.GetCallerUserProfile(ctx)
		}, nil, e.logger, clock)
	e.userProfiles = newCache("userProfile", intervals.ProfileStaleness,
		func(ctx context.Context, user principal.Principal) (models.Option[models.UserProfile], error) {
			return e.store.GetUserProfile(ctx, user)
		}, nil, e.logger, clock)
	e.chatList = newCache("chatList", intervals.ChatList,
		func(ctx context.Context, _ listKey) ([]models.ChatListEntry, error) {
			return e.store.GetChatList(ctx)
		}, nil, e.logger, clock)
	e.messages = newCache("messages", intervals.Messages,
		func(ctx context.Context, with principal.Principal) ([]models.ChatMessage, error) {
			return e.store.GetMessages(ctx, with)
		}, mergeMessages, e.logger, clock)
	e.unreadCounts = newCache("unreadCount", intervals.UnreadCount,
		func(ctx context.Context, with principal.Principal) (int64, error) {
			return e.store.GetUnreadMessageCount(ctx, with)
		}, clampUnread, e.logger, clock)

	return e
}

// Start launches the poll scheduler.
func (e *Engine) Start(ctx context.Context) error {
	if e.running {
		return ErrAlreadyRunning
	}
	e.ctx, e.cancel = context.WithCancel(ctx)
	e.running = true
	e.done = make(chan struct{})

	for _, c := range e.pollables() {
		c.start(e.ctx)
	}

	e.logger.Info().Dur("tick", e.tick).Msg("sync engine starting")
	go e.runLoop()
	return nil
}

// Stop halts polling and waits for in-flight fetches to settle. Cached
// values survive; Close additionally clears them.
func (e *Engine) Stop() error {
	if !e.running {
		return ErrNotRunning
	}
	e.cancel()
	e.running = false
	<-e.done

	for _, c := range e.pollables() {
		c.stop()
	}
	e.logger.Info().Msg("sync engine stopped")
	return nil
}

// Close stops the engine if running and clears every cache entry. Session
// teardown: nothing cached outlives the session.
func (e *Engine) Close() error {
	if e.running {
		if err := e.Stop(); err != nil {
			return err
		}
	}
	e.callerProfile.clear()
	e.userProfiles.clear()
	e.chatList.clear()
	e.messages.clear()
	e.unreadCounts.clear()
	return nil
}

type pollable interface {
	start(ctx context.Context)
	stop()
	pollTick(ctx context.Context, now time.Time)
}

func (e *Engine) pollables() []pollable {
	return []pollable{e.callerProfile, e.userProfiles, e.chatList, e.messages, e.unreadCounts}
}

func (e *Engine) runLoop() {
	defer close(e.done)

	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			now := e.clock()
			for _, c := range e.pollables() {
				c.pollTick(e.ctx, now)
			}
		}
	}
}

// RefCallerProfile references the caller's own profile view. Fetched once;
// refetched only after a successful profile save.
func (e *Engine) RefCallerProfile() func() {
	return e.callerProfile.acquire(listKey{})
}

// RefUserProfile references another user's profile view.
func (e *Engine) RefUserProfile(user principal.Principal) func() {
	return e.userProfiles.acquire(user)
}

// RefChatList references the conversation list view; it polls while at least
// one reference is held.
func (e *Engine) RefChatList() func() {
	return e.chatList.acquire(listKey{})
}

// RefMessages references the message log for a thread.
func (e *Engine) RefMessages(with principal.Principal) func() {
	return e.messages.acquire(with)
}

// RefUnreadCount references the unread counter for a thread.
func (e *Engine) RefUnreadCount(with principal.Principal) func() {
	return e.unreadCounts.acquire(with)
}

// CallerProfile snapshots the caller's profile view.
func (e *Engine) CallerProfile() Snapshot[models.Option[models.UserProfile]] {
	return e.callerProfile.snapshot(listKey{})
}

// UserProfile snapshots another user's profile view.
func (e *Engine) UserProfile(user principal.Principal) Snapshot[models.Option[models.UserProfile]] {
	return e.userProfiles.snapshot(user)
}

// ChatList snapshots the raw, unprojected conversation list.
func (e *Engine) ChatList() Snapshot[[]models.ChatListEntry] {
	return e.chatList.snapshot(listKey{})
}

// Messages snapshots a thread's message log, ascending by timestamp.
func (e *Engine) Messages(with principal.Principal) Snapshot[[]models.ChatMessage] {
	return e.messages.snapshot(with)
}

// UnreadCount snapshots a thread's unread counter.
func (e *Engine) UnreadCount(with principal.Principal) Snapshot[int64] {
	return e.unreadCounts.snapshot(with)
}

// RefreshCallerProfile forces a caller-profile fetch, e.g. a manual retry
// after a failed initial load.
func (e *Engine) RefreshCallerProfile() {
	e.callerProfile.refresh(listKey{})
}

// SendMessage sends content to receiver, then on success invalidates the
// receiver's message log and the chat list. On failure nothing is
// invalidated and the error is returned for the caller to surface.
func (e *Engine) SendMessage(ctx context.Context, receiver principal.Principal, content string) error {
	if err := e.store.SendMessage(ctx, receiver, content); err != nil {
		return models.NewRemoteError("sendMessage", err)
	}
	e.logger.Debug().Str("body", logging.BodyDigest(content)).Msg("message sent")
	e.messages.invalidate(receiver)
	e.chatList.invalidate(listKey{})
	return nil
}

// MarkMessagesAsRead marks the thread with the given principal read, then on
// success invalidates its unread count and message log.
func (e *Engine) MarkMessagesAsRead(ctx context.Context, with principal.Principal) error {
	if err := e.store.MarkMessagesAsRead(ctx, with); err != nil {
		return models.NewRemoteError("markMessagesAsRead", err)
	}
	e.unreadCounts.invalidate(with)
	e.messages.invalidate(with)
	return nil
}

// SaveCallerProfile saves the caller's profile, then on success invalidates
// the caller-profile view so the next reference refetches it.
func (e *Engine) SaveCallerProfile(ctx context.Context, profile models.UserProfile) error {
	if err := e.store.SaveCallerUserProfile(ctx, profile); err != nil {
		return models.NewRemoteError("saveCallerUserProfile", err)
	}
	e.callerProfile.invalidate(listKey{})
	return nil
}

// mergeMessages reconciles a refetched message log with the cached one. The
// read flag is monotonic: once a message has been observed read in this
// session, a later fetch may not present it unread again. The merged log is
// sorted ascending by timestamp, then id, since the store's order is
// unspecified.
func mergeMessages(prev models.Option[[]models.ChatMessage], next []models.ChatMessage) []models.ChatMessage {
	merged := make([]models.ChatMessage, len(next))
	copy(merged, next)

	if cached, ok := prev.Get(); ok {
		read := make(map[int64]bool, len(cached))
		for _, m := range cached {
			if m.IsRead {
				read[m.ID] = true
			}
		}
		for i := range merged {
			if read[merged[i].ID] {
				merged[i].IsRead = true
			}
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Timestamp != merged[j].Timestamp {
			return merged[i].Timestamp < merged[j].Timestamp
		}
		return merged[i].ID < merged[j].ID
	})
	return merged
}

// clampUnread keeps the cached unread counter non-negative whatever the
// store reports.
func clampUnread(_ models.Option[int64], next int64) int64 {
	if next < 0 {
		return 0
	}
	return next
}
