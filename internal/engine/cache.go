package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/courier-im/courier/internal/models"
)

// FetchFunc loads the remote value for a key.
type FetchFunc[K comparable, V any] func(ctx context.Context, key K) (V, error)

// MergeFunc reconciles a freshly fetched value with the previous cached one.
// Used where the cache must preserve locally observed facts across refetches,
// such as the read flag on messages. A nil merge takes the fetched value as is.
type MergeFunc[V any] func(prev models.Option[V], next V) V

// Snapshot is a consumer-visible copy of one cache entry. Value is absent
// until the first successful fetch; Err holds the most recent fetch failure
// without displacing the last good value.
type Snapshot[V any] struct {
	Value       models.Option[V]
	Err         error
	Fetching    bool
	LastFetched time.Time
}

// Loaded reports whether at least one fetch has succeeded.
func (s Snapshot[V]) Loaded() bool {
	return s.Value.Present()
}

type entry[V any] struct {
	value       models.Option[V]
	err         error
	fetching    bool
	lastFetched time.Time
	invalidated bool
	refs        int

	// gen guards against lost invalidations: Invalidate bumps it, and an
	// in-flight fetch started under an older generation is discarded on
	// completion instead of overwriting post-mutation state.
	gen uint64
}

// cache holds the entries for one query kind. interval semantics: 0 means
// fetch once and refetch only on invalidation; otherwise a referenced entry
// is refetched whenever its value is at least interval old.
type cache[K comparable, V any] struct {
	name     string
	interval time.Duration
	fetch    FetchFunc[K, V]
	merge    MergeFunc[V]
	logger   zerolog.Logger
	clock    func() time.Time

	mu      sync.Mutex
	entries map[K]*entry[V]
	runCtx  context.Context
	wg      sync.WaitGroup
}

func newCache[K comparable, V any](name string, interval time.Duration, fetch FetchFunc[K, V], merge MergeFunc[V], logger zerolog.Logger, clock func() time.Time) *cache[K, V] {
	return &cache[K, V]{
		name:     name,
		interval: interval,
		fetch:    fetch,
		merge:    merge,
		logger:   logger.With().Str("query", name).Logger(),
		clock:    clock,
		entries:  make(map[K]*entry[V]),
	}
}

// start attaches the run context used by background fetches.
func (c *cache[K, V]) start(ctx context.Context) {
	c.mu.Lock()
	c.runCtx = ctx
	c.mu.Unlock()
}

// stop detaches the run context and waits for in-flight fetches to settle.
func (c *cache[K, V]) stop() {
	c.mu.Lock()
	c.runCtx = nil
	c.mu.Unlock()
	c.wg.Wait()
}

// acquire registers a view reference for key and fetches immediately when the
// entry is missing or stale. Returns a release closure; each acquire must be
// balanced by exactly one release for polling to stop.
func (c *cache[K, V]) acquire(key K) func() {
	c.mu.Lock()
	e := c.ensureLocked(key)
	e.refs++
	ctx := c.runCtx
	c.mu.Unlock()

	if ctx != nil {
		c.maybeFetch(ctx, key)
	}

	var once sync.Once
	return func() {
		once.Do(func() { c.release(key) })
	}
}

func (c *cache[K, V]) release(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return
	}
	if e.refs > 0 {
		e.refs--
	}
}

// snapshot returns a copy of the entry state for consumers.
func (c *cache[K, V]) snapshot(key K) Snapshot[V] {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return Snapshot[V]{Value: models.None[V]()}
	}
	return Snapshot[V]{
		Value:       e.value,
		Err:         e.err,
		Fetching:    e.fetching,
		LastFetched: e.lastFetched,
	}
}

// invalidate forces the next reference to refetch and fences off any fetch
// already in flight, so a pre-mutation response can never overwrite
// post-mutation state. Referenced entries refetch immediately.
func (c *cache[K, V]) invalidate(key K) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return
	}
	e.invalidated = true
	e.gen++
	refs := e.refs
	ctx := c.runCtx
	c.mu.Unlock()

	c.logger.Debug().Msg("cache entry invalidated")
	if refs > 0 && ctx != nil {
		c.maybeFetch(ctx, key)
	}
}

// refresh forces a fetch for key regardless of age, without discarding the
// cached value. No-op while a fetch is already in flight.
func (c *cache[K, V]) refresh(key K) {
	c.mu.Lock()
	e := c.ensureLocked(key)
	e.invalidated = true
	ctx := c.runCtx
	c.mu.Unlock()

	if ctx != nil {
		c.maybeFetch(ctx, key)
	}
}

// clear drops all entries. Session teardown.
func (c *cache[K, V]) clear() {
	c.mu.Lock()
	c.entries = make(map[K]*entry[V])
	c.mu.Unlock()
}

// pollTick issues fetches for every referenced, due entry. Called by the
// engine scheduler.
func (c *cache[K, V]) pollTick(ctx context.Context, now time.Time) {
	c.mu.Lock()
	due := make([]K, 0, len(c.entries))
	for key, e := range c.entries {
		if e.refs > 0 && !e.fetching && c.dueLocked(e, now) {
			due = append(due, key)
		}
	}
	c.mu.Unlock()

	for _, key := range due {
		c.maybeFetch(ctx, key)
	}
}

func (c *cache[K, V]) ensureLocked(key K) *entry[V] {
	e, ok := c.entries[key]
	if !ok {
		e = &entry[V]{value: models.None[V]()}
		c.entries[key] = e
	}
	return e
}

func (c *cache[K, V]) dueLocked(e *entry[V], now time.Time) bool {
	if e.lastFetched.IsZero() || e.invalidated {
		return true
	}
	if c.interval <= 0 {
		return false
	}
	return now.Sub(e.lastFetched) >= c.interval
}

// maybeFetch starts one background fetch for key if it is due and none is in
// flight. The in-flight flag serializes fetches per key: a poll tick that
// lands while the previous fetch is unresolved is skipped, so a stale
// response can never be applied after a fresher one.
func (c *cache[K, V]) maybeFetch(ctx context.Context, key K) {
	c.mu.Lock()
	e := c.ensureLocked(key)
	if e.fetching || !c.dueLocked(e, c.clock()) {
		c.mu.Unlock()
		return
	}
	e.fetching = true
	gen := e.gen
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		value, err := c.fetch(ctx, key)
		c.complete(key, gen, value, err)
	}()
}

func (c *cache[K, V]) complete(key K, gen uint64, value V, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		// Entry cleared while the fetch was in flight; nothing to apply to.
		return
	}
	e.fetching = false
	if e.gen != gen {
		// Invalidated mid-flight: drop the response, the refetch is already due.
		c.logger.Debug().Msg("discarding stale fetch result")
		return
	}
	e.lastFetched = c.clock()
	if err != nil {
		e.err = models.NewRemoteError(c.name, err)
		c.logger.Warn().Err(err).Msg("fetch failed, keeping last good value")
		return
	}
	e.err = nil
	e.invalidated = false
	next := value
	if c.merge != nil {
		next = c.merge(e.value, value)
	}
	e.value = models.Some(next)
}

// wait blocks until all in-flight fetches have completed. Test hook.
func (c *cache[K, V]) wait() {
	c.wg.Wait()
}
