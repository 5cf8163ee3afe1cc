// Package syncer keeps the displayed article list in step with the persisted
// cache and the remote search API.
//
// A single goroutine (Run) owns all state. Connectivity reports, store emissions,
// user commands and background task results reach it over channels, and every
// change is published as an immutable Snapshot.
package syncer

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/bilgisen/newsfeed/internal/cache"
	"github.com/bilgisen/newsfeed/internal/connectivity"
	"github.com/bilgisen/newsfeed/internal/logger"
	"github.com/bilgisen/newsfeed/internal/models"
	"github.com/bilgisen/newsfeed/internal/storage"
)

var (
	// ErrOffline is returned by Refresh while the network is down.
	ErrOffline = errors.New("offline: refresh suppressed")
	// ErrStopped is returned once the controller loop has exited.
	ErrStopped = errors.New("controller stopped")
)

// Fetcher retrieves the current search results.
type Fetcher interface {
	Fetch(ctx context.Context) ([]models.Article, error)
}

// Preferences persists user settings.
type Preferences interface {
	Bool(ctx context.Context, key string, defaultValue bool) (bool, error)
	SetBool(ctx context.Context, key string, value bool) error
}

// Mirror receives every successfully persisted set.
type Mirror interface {
	Mirror(ctx context.Context, records []models.ArticleEntity) error
}

// Options wires the controller's collaborators. Store and Fetcher are required.
type Options struct {
	Store       cache.ArticleStore
	Fetcher     Fetcher
	Preferences Preferences
	Mirror      Mirror
	// Connectivity delivers connectivity changes. When nil the network is
	// assumed to be up.
	Connectivity <-chan connectivity.Status
}

// Controller orchestrates fetch, persist and display.
type Controller struct {
	store        cache.ArticleStore
	fetcher      Fetcher
	prefs        Preferences
	mirror       Mirror
	connectivity <-chan connectivity.Status

	commands chan command
	results  chan result
	mirrors  chan []models.ArticleEntity
	tasks    sync.WaitGroup
	done     chan struct{}
	runOnce  sync.Once

	mu       sync.RWMutex
	current  Snapshot
	subs     map[int]chan Snapshot
	nextSub  int
	finished bool

	st  state
	log zerolog.Logger
}

func New(opts Options) (*Controller, error) {
	if opts.Store == nil {
		return nil, errors.New("syncer: store is required")
	}
	if opts.Fetcher == nil {
		return nil, errors.New("syncer: fetcher is required")
	}

	c := &Controller{
		store:        opts.Store,
		fetcher:      opts.Fetcher,
		prefs:        opts.Preferences,
		mirror:       opts.Mirror,
		connectivity: opts.Connectivity,
		commands:     make(chan command, 16),
		results:      make(chan result, 16),
		mirrors:      make(chan []models.ArticleEntity, 1),
		done:         make(chan struct{}),
		subs:         make(map[int]chan Snapshot),
		st: state{
			phase:        PhaseIdle,
			cacheEnabled: true,
		},
		log: logger.Component("syncer"),
	}
	if opts.Connectivity == nil {
		c.st.connectivityKnown = true
		c.st.connected = true
	}
	c.current = c.st.snapshot()
	return c, nil
}

// Run drives the controller until ctx is done. It may only be called once.
func (c *Controller) Run(ctx context.Context) error {
	err := ErrStopped
	c.runOnce.Do(func() {
		err = c.run(ctx)
	})
	return err
}

func (c *Controller) run(ctx context.Context) error {
	defer c.finish()

	if c.prefs != nil {
		enabled, err := c.prefs.Bool(ctx, storage.KeyCacheData, true)
		if err != nil {
			c.log.Warn().Err(err).Msg("Failed to read cache preference, using default")
		}
		c.st.cacheEnabled = enabled
	}

	stored, err := c.store.Observe(ctx)
	if err != nil {
		return err
	}
	c.publish()

	if c.mirror != nil {
		c.tasks.Add(1)
		go c.runMirror(ctx)
	}

	conn := c.connectivity
	for {
		select {
		case <-ctx.Done():
			c.tasks.Wait()
			return nil
		case set, ok := <-stored:
			if !ok {
				stored = nil
				continue
			}
			c.onStoreEmission(set)
		case status, ok := <-conn:
			if !ok {
				conn = nil
				continue
			}
			c.onConnectivity(ctx, status)
		case cmd := <-c.commands:
			c.onCommand(ctx, cmd)
		case res := <-c.results:
			c.onResult(ctx, res)
		}
	}
}

// Snapshot returns the most recently published state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Subscribe returns a channel carrying the latest snapshot, starting with the
// current one. Slow readers skip intermediate snapshots. The channel is closed
// by cancel or when the controller stops.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.finished {
		close(ch)
		return ch, func() {}
	}

	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.current

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
	return ch, cancel
}

// Refresh asks for a fetch. It returns ErrOffline while disconnected, in which
// case no request is made. A refresh while one is running is absorbed by it.
func (c *Controller) Refresh(ctx context.Context) error {
	return c.send(ctx, command{kind: cmdRefresh})
}

// ClearCache wipes the persisted set and the display.
func (c *Controller) ClearCache(ctx context.Context) error {
	return c.send(ctx, command{kind: cmdClearCache})
}

// SetCacheEnabled records the CACHE_DATA preference. While disabled, fetched
// articles are displayed but not persisted, so the persisted set no longer
// tracks each fetch. It is replaced again by the first fetch after re-enabling.
func (c *Controller) SetCacheEnabled(ctx context.Context, enabled bool) error {
	return c.send(ctx, command{kind: cmdSetCacheEnabled, enabled: enabled})
}

func (c *Controller) send(ctx context.Context, cmd command) error {
	cmd.reply = make(chan error, 1)

	select {
	case c.commands <- cmd:
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-cmd.reply:
		return err
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) onStoreEmission(set []models.ArticleEntity) {
	c.st.articles = models.DisplayFromEntities(set)
	if c.st.phase == PhaseIdle {
		c.st.phase = PhaseCached
	}
	c.log.Debug().Int("articles", len(set)).Msg("Store emitted articles")
	c.publish()
}

func (c *Controller) onConnectivity(ctx context.Context, status connectivity.Status) {
	wasUp := c.st.connectivityKnown && c.st.connected
	c.st.connectivityKnown = true
	c.st.connected = status.Connected

	switch {
	case status.Connected && !wasUp:
		c.log.Info().Msg("Connectivity restored, refreshing")
		c.startFetch(ctx, "connectivity")
	case !status.Connected:
		c.st.pendingRefresh = false
		if wasUp {
			c.log.Info().Msg("Connectivity lost")
		}
	}
	c.publish()
}

func (c *Controller) onCommand(ctx context.Context, cmd command) {
	switch cmd.kind {
	case cmdRefresh:
		if !c.st.connectivityKnown || !c.st.connected {
			c.log.Info().Msg("Refresh ignored while offline")
			cmd.reply <- ErrOffline
			return
		}
		c.startFetch(ctx, "manual")
		cmd.reply <- nil

	case cmdClearCache:
		c.startTask(ctx, func(ctx context.Context) result {
			return result{kind: resCleared, err: c.store.DeleteAll(ctx)}
		})
		cmd.reply <- nil

	case cmdSetCacheEnabled:
		c.st.cacheEnabled = cmd.enabled
		if c.prefs != nil {
			enabled := cmd.enabled
			c.startTask(ctx, func(ctx context.Context) result {
				return result{kind: resPreferenceSaved, err: c.prefs.SetBool(ctx, storage.KeyCacheData, enabled)}
			})
		}
		c.publish()
		cmd.reply <- nil
	}
}

func (c *Controller) onResult(ctx context.Context, res result) {
	switch res.kind {
	case resFetched:
		c.st.refreshing = false
		c.st.phase = PhaseCached
		if res.err != nil {
			c.st.lastError = res.err.Error()
			c.logFailure(res.err)
			break
		}
		c.st.lastError = ""
		c.st.articles = models.DisplayFromArticles(res.articles)
		c.log.Info().
			Int("articles", len(res.articles)).
			Bool("persisted", res.persisted).
			Msg("Refresh complete")
		if res.persisted {
			c.enqueueMirror(models.EntitiesFromArticles(res.articles))
		}

	case resCleared:
		c.st.phase = PhaseCached
		if res.err != nil {
			c.st.lastError = res.err.Error()
			c.logFailure(res.err)
			break
		}
		c.st.articles = nil
		c.log.Info().Msg("Cache cleared")
		c.enqueueMirror([]models.ArticleEntity{})

	case resPreferenceSaved:
		if res.err != nil {
			c.log.Error().Err(res.err).Msg("Failed to save cache preference")
		}
		return
	}

	// A reconnect that arrived mid-fetch gets its own attempt once the
	// earlier one is done.
	if res.kind == resFetched && c.st.pendingRefresh {
		c.st.pendingRefresh = false
		if c.st.connected {
			c.startFetch(ctx, "connectivity")
			return
		}
	}
	c.publish()
}

// startFetch runs fetch → delete-all → insert-all as one sequential task.
func (c *Controller) startFetch(ctx context.Context, trigger string) {
	if c.st.refreshing {
		if trigger == "connectivity" {
			c.st.pendingRefresh = true
		}
		c.log.Debug().Str("trigger", trigger).Msg("Refresh already running")
		return
	}
	c.st.refreshing = true
	c.st.phase = PhaseFetching
	persist := c.st.cacheEnabled

	c.log.Info().Str("trigger", trigger).Bool("persist", persist).Msg("Refreshing articles")
	c.startTask(ctx, func(ctx context.Context) result {
		articles, err := c.fetcher.Fetch(ctx)
		if err != nil {
			return result{kind: resFetched, err: err}
		}
		if persist {
			if err := c.store.DeleteAll(ctx); err != nil {
				return result{kind: resFetched, err: err}
			}
			if err := c.store.InsertAll(ctx, models.EntitiesFromArticles(articles)); err != nil {
				return result{kind: resFetched, err: err}
			}
		}
		return result{kind: resFetched, articles: articles, persisted: persist}
	})
	c.publish()
}

// enqueueMirror hands records to the mirror worker. Only the newest set waits;
// an older one still queued is dropped.
func (c *Controller) enqueueMirror(records []models.ArticleEntity) {
	if c.mirror == nil {
		return
	}
	select {
	case c.mirrors <- records:
		return
	default:
	}
	select {
	case <-c.mirrors:
	default:
	}
	select {
	case c.mirrors <- records:
	default:
	}
}

// runMirror uploads queued sets one at a time, in the order they were persisted.
func (c *Controller) runMirror(ctx context.Context) {
	defer c.tasks.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case records := <-c.mirrors:
			if err := c.mirror.Mirror(ctx, records); err != nil {
				c.log.Warn().Err(err).Int("articles", len(records)).Msg("Failed to mirror articles")
			}
		}
	}
}

func (c *Controller) startTask(ctx context.Context, task func(ctx context.Context) result) {
	c.tasks.Add(1)
	go func() {
		defer c.tasks.Done()
		res := task(ctx)
		select {
		case c.results <- res:
		case <-ctx.Done():
		}
	}()
}

func (c *Controller) publish() {
	c.st.version++
	snap := c.st.snapshot()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = snap
	for _, ch := range c.subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func (c *Controller) finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finished = true
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	close(c.done)
}
