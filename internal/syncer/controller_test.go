package syncer

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bilgisen/newsfeed/internal/cache"
	"github.com/bilgisen/newsfeed/internal/connectivity"
	"github.com/bilgisen/newsfeed/internal/feed"
	"github.com/bilgisen/newsfeed/internal/logger"
	"github.com/bilgisen/newsfeed/internal/models"
	"github.com/bilgisen/newsfeed/internal/storage"
)

type fetchResponse struct {
	articles []models.Article
	err      error
}

// fakeFetcher replays responses in order, repeating the last one.
type fakeFetcher struct {
	mu        sync.Mutex
	calls     int
	responses []fetchResponse
	gate      chan struct{}
}

func (f *fakeFetcher) Fetch(ctx context.Context) ([]models.Article, error) {
	f.mu.Lock()
	i := f.calls
	f.calls++
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	resp := f.responses[i]
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return resp.articles, resp.err
}

func (f *fakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeMirror struct {
	mu   sync.Mutex
	sets [][]models.ArticleEntity
}

func (m *fakeMirror) Mirror(ctx context.Context, records []models.ArticleEntity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets = append(m.sets, records)
	return nil
}

func (m *fakeMirror) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sets)
}

// Last returns the headlines of the most recent mirrored set.
func (m *fakeMirror) Last() ([]string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sets) == 0 {
		return nil, false
	}
	return entityHeadlines(m.sets[len(m.sets)-1]), true
}

// failingStore fails the configured writes and delegates everything else.
type failingStore struct {
	*cache.MemoryStore
	insertErr error
	deleteErr error
}

func (s *failingStore) InsertAll(ctx context.Context, records []models.ArticleEntity) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	return s.MemoryStore.InsertAll(ctx, records)
}

func (s *failingStore) DeleteAll(ctx context.Context) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	return s.MemoryStore.DeleteAll(ctx)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type harness struct {
	ctrl    *Controller
	store   *cache.MemoryStore
	fetcher *fakeFetcher
	conn    chan connectivity.Status
	prefs   *storage.Preferences
	mirror  *fakeMirror
	logs    *syncBuffer
	stop    func()
}

func articles(headlines ...string) []models.Article {
	out := make([]models.Article, 0, len(headlines))
	for _, h := range headlines {
		out = append(out, models.Article{Headline: models.String(h), Abstract: models.String(h + " abstract")})
	}
	return out
}

func newHarness(t *testing.T, seed []models.Article, responses ...fetchResponse) *harness {
	t.Helper()

	logs := &syncBuffer{}
	logger.Set(zerolog.New(logs))
	t.Cleanup(func() { logger.Set(zerolog.Nop()) })

	store := cache.NewMemoryStore()
	if len(seed) > 0 {
		require.NoError(t, store.InsertAll(context.Background(), models.EntitiesFromArticles(seed)))
	}

	prefs, err := storage.NewPreferences(t.TempDir(), "news_prefs")
	require.NoError(t, err)

	h := &harness{
		store:   store,
		fetcher: &fakeFetcher{responses: responses},
		conn:    make(chan connectivity.Status, 8),
		prefs:   prefs,
		mirror:  &fakeMirror{},
		logs:    logs,
	}

	h.ctrl, err = New(Options{
		Store:        store,
		Fetcher:      h.fetcher,
		Preferences:  prefs,
		Mirror:       h.mirror,
		Connectivity: h.conn,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- h.ctrl.Run(ctx) }()

	var once sync.Once
	h.stop = func() {
		once.Do(func() {
			cancel()
			select {
			case err := <-errc:
				assert.NoError(t, err)
			case <-time.After(2 * time.Second):
				t.Error("controller did not stop")
			}
		})
	}
	t.Cleanup(h.stop)

	h.waitFor(t, func(s Snapshot) bool { return s.Phase == PhaseCached })
	return h
}

func (h *harness) waitFor(t *testing.T, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	require.Eventually(t, func() bool { return cond(h.ctrl.Snapshot()) }, 2*time.Second, 5*time.Millisecond)
	return h.ctrl.Snapshot()
}

func (h *harness) connect(t *testing.T, up bool) {
	t.Helper()
	h.conn <- connectivity.Status{Connected: up, At: time.Now()}
	h.waitFor(t, func(s Snapshot) bool { return s.ConnectivityKnown && s.Connected == up })
}

func (h *harness) persisted(t *testing.T) []string {
	t.Helper()
	set, err := h.store.All(context.Background())
	require.NoError(t, err)
	return entityHeadlines(set)
}

func entityHeadlines(set []models.ArticleEntity) []string {
	out := make([]string, 0, len(set))
	for _, e := range set {
		out = append(out, e.Display().HeadlineText("<nil>"))
	}
	return out
}

func displayed(s Snapshot) []string {
	out := make([]string, 0, len(s.Articles))
	for _, a := range s.Articles {
		out = append(out, a.HeadlineText("<nil>"))
	}
	return out
}

func idleWith(want ...string) func(Snapshot) bool {
	return func(s Snapshot) bool {
		return !s.Refreshing && s.Phase == PhaseCached && slices.Equal(want, displayed(s))
	}
}

func TestStartMirrorsStore(t *testing.T) {
	h := newHarness(t, articles("a", "b"), fetchResponse{})

	snap := h.waitFor(t, idleWith("a", "b"))
	assert.False(t, snap.ConnectivityKnown)
	assert.False(t, snap.OfflineBanner)
	assert.True(t, snap.CacheEnabled)
	assert.Zero(t, h.fetcher.Calls())
}

func TestConnectedFetchPersistsAndDisplays(t *testing.T) {
	h := newHarness(t, nil, fetchResponse{articles: articles("one", "two")})

	h.connect(t, true)

	snap := h.waitFor(t, idleWith("one", "two"))
	assert.False(t, snap.OfflineBanner)
	assert.False(t, snap.Refreshing)
	assert.Empty(t, snap.LastError)
	assert.Equal(t, []string{"one", "two"}, h.persisted(t))
	assert.Equal(t, 1, h.fetcher.Calls())
	require.Eventually(t, func() bool { return h.mirror.Len() == 1 }, time.Second, 5*time.Millisecond)
}

func TestSuccessiveFetchesReplaceInsteadOfAccumulate(t *testing.T) {
	h := newHarness(t, articles("stale"),
		fetchResponse{articles: articles("a", "b")},
		fetchResponse{articles: articles("c")},
		fetchResponse{articles: nil},
	)
	ctx := context.Background()

	h.connect(t, true)
	h.waitFor(t, idleWith("a", "b"))
	assert.Equal(t, []string{"a", "b"}, h.persisted(t))

	require.NoError(t, h.ctrl.Refresh(ctx))
	h.waitFor(t, idleWith("c"))
	assert.Equal(t, []string{"c"}, h.persisted(t))

	require.NoError(t, h.ctrl.Refresh(ctx))
	h.waitFor(t, idleWith())
	assert.Empty(t, h.persisted(t))
	assert.Equal(t, 3, h.fetcher.Calls())
}

func TestNetworkFailureLeavesStateUntouched(t *testing.T) {
	fetchErr := &feed.FetchError{URL: "https://example.com", StatusCode: 503}
	h := newHarness(t, articles("x", "y"), fetchResponse{err: fetchErr})

	h.connect(t, true)

	snap := h.waitFor(t, func(s Snapshot) bool { return s.LastError != "" && !s.Refreshing })
	assert.Equal(t, []string{"x", "y"}, displayed(snap))
	assert.Equal(t, []string{"x", "y"}, h.persisted(t))
	assert.Equal(t, PhaseCached, snap.Phase)
	assert.Contains(t, h.logs.String(), "Fetch failed")
}

func TestMalformedResponseLeavesStateUntouched(t *testing.T) {
	parseErr := &feed.ParseError{Err: errors.New("unexpected end of JSON input")}
	h := newHarness(t, articles("x", "y"), fetchResponse{err: parseErr})

	h.connect(t, true)

	snap := h.waitFor(t, func(s Snapshot) bool { return s.LastError != "" && !s.Refreshing })
	assert.Equal(t, []string{"x", "y"}, displayed(snap))
	assert.Equal(t, []string{"x", "y"}, h.persisted(t))
	assert.Contains(t, h.logs.String(), "Search response could not be parsed")
}

func TestClearCacheEmptiesStoreAndDisplay(t *testing.T) {
	h := newHarness(t, articles("x", "y"), fetchResponse{})
	h.waitFor(t, idleWith("x", "y"))

	require.NoError(t, h.ctrl.ClearCache(context.Background()))

	h.waitFor(t, idleWith())
	assert.Empty(t, h.persisted(t))

	// Clearing an empty cache is fine too.
	require.NoError(t, h.ctrl.ClearCache(context.Background()))
	h.waitFor(t, idleWith())
}

func TestClearCacheWorksOffline(t *testing.T) {
	h := newHarness(t, articles("x"), fetchResponse{})
	h.connect(t, false)

	require.NoError(t, h.ctrl.ClearCache(context.Background()))

	snap := h.waitFor(t, idleWith())
	assert.True(t, snap.OfflineBanner)
	assert.Empty(t, h.persisted(t))
	assert.Zero(t, h.fetcher.Calls())
}

func TestConnectivityTransitions(t *testing.T) {
	h := newHarness(t, nil, fetchResponse{articles: articles("a")})

	h.connect(t, false)
	h.waitFor(t, func(s Snapshot) bool { return s.OfflineBanner })
	assert.Zero(t, h.fetcher.Calls(), "going offline must not fetch")

	h.connect(t, true)
	snap := h.waitFor(t, idleWith("a"))
	assert.False(t, snap.OfflineBanner)
	assert.Equal(t, 1, h.fetcher.Calls())

	h.connect(t, false)
	snap = h.waitFor(t, func(s Snapshot) bool { return s.OfflineBanner })
	assert.Equal(t, []string{"a"}, displayed(snap))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, h.fetcher.Calls(), "true→false must not fetch")
}

func TestRepeatedConnectedReportsFetchOnce(t *testing.T) {
	h := newHarness(t, nil, fetchResponse{articles: articles("a")})

	h.connect(t, true)
	h.waitFor(t, idleWith("a"))
	h.connect(t, true)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, h.fetcher.Calls())
}

func TestOfflineRefreshIsNoop(t *testing.T) {
	h := newHarness(t, articles("x", "y"), fetchResponse{articles: articles("new")})
	h.connect(t, false)

	err := h.ctrl.Refresh(context.Background())

	assert.ErrorIs(t, err, ErrOffline)
	snap := h.ctrl.Snapshot()
	assert.True(t, snap.OfflineBanner)
	assert.False(t, snap.Refreshing)
	assert.Equal(t, []string{"x", "y"}, displayed(snap))
	assert.Equal(t, []string{"x", "y"}, h.persisted(t))
	assert.Zero(t, h.fetcher.Calls())
}

func TestRefreshBeforeConnectivityReportIsSuppressed(t *testing.T) {
	h := newHarness(t, nil, fetchResponse{articles: articles("a")})

	assert.ErrorIs(t, h.ctrl.Refresh(context.Background()), ErrOffline)
	assert.Zero(t, h.fetcher.Calls())
}

func TestOverlappingRefreshesAreCoalesced(t *testing.T) {
	h := newHarness(t, nil, fetchResponse{articles: articles("a")})
	h.connect(t, false)
	h.fetcher.mu.Lock()
	h.fetcher.gate = make(chan struct{})
	h.fetcher.mu.Unlock()

	h.connect(t, true)
	h.waitFor(t, func(s Snapshot) bool { return s.Refreshing && s.Phase == PhaseFetching })

	require.NoError(t, h.ctrl.Refresh(context.Background()))
	require.NoError(t, h.ctrl.Refresh(context.Background()))

	close(h.fetcher.gate)
	h.waitFor(t, idleWith("a"))
	assert.Equal(t, 1, h.fetcher.Calls())
}

func TestCacheDisabledDisplaysWithoutPersisting(t *testing.T) {
	h := newHarness(t, articles("old"), fetchResponse{articles: articles("fresh")})
	ctx := context.Background()

	require.NoError(t, h.ctrl.SetCacheEnabled(ctx, false))
	h.waitFor(t, func(s Snapshot) bool { return !s.CacheEnabled })

	h.connect(t, true)
	h.waitFor(t, idleWith("fresh"))

	assert.Equal(t, []string{"old"}, h.persisted(t))
	assert.Zero(t, h.mirror.Len())

	require.Eventually(t, func() bool {
		enabled, err := h.prefs.Bool(ctx, storage.KeyCacheData, true)
		return err == nil && !enabled
	}, time.Second, 5*time.Millisecond)
}

func TestCachePreferenceLoadedOnStart(t *testing.T) {
	logger.Set(zerolog.Nop())
	prefs, err := storage.NewPreferences(t.TempDir(), "news_prefs")
	require.NoError(t, err)
	require.NoError(t, prefs.SetBool(context.Background(), storage.KeyCacheData, false))

	ctrl, err := New(Options{
		Store:       cache.NewMemoryStore(),
		Fetcher:     &fakeFetcher{responses: []fetchResponse{{}}},
		Preferences: prefs,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = ctrl.Run(ctx) }()

	require.Eventually(t, func() bool {
		s := ctrl.Snapshot()
		return s.Phase == PhaseCached && !s.CacheEnabled
	}, 2*time.Second, 5*time.Millisecond)
}

func TestWithoutMonitorNetworkIsAssumedUp(t *testing.T) {
	logger.Set(zerolog.Nop())
	fetcher := &fakeFetcher{responses: []fetchResponse{{articles: articles("a")}}}
	ctrl, err := New(Options{Store: cache.NewMemoryStore(), Fetcher: fetcher})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = ctrl.Run(ctx) }()

	require.NoError(t, ctrl.Refresh(ctx))
	require.Eventually(t, func() bool {
		s := ctrl.Snapshot()
		return !s.Refreshing && len(s.Articles) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.False(t, ctrl.Snapshot().OfflineBanner)
}

func TestSubscribeDeliversSnapshotsAndClosesOnStop(t *testing.T) {
	h := newHarness(t, nil, fetchResponse{articles: articles("a")})

	snaps, cancel := h.ctrl.Subscribe()
	defer cancel()

	first := <-snaps
	assert.Equal(t, PhaseCached, first.Phase)

	h.connect(t, true)
	deadline := time.After(2 * time.Second)
	for {
		var s Snapshot
		select {
		case s = <-snaps:
		case <-deadline:
			t.Fatal("no snapshot with fetched articles")
		}
		if len(s.Articles) == 1 && !s.Refreshing {
			assert.Greater(t, s.Version, first.Version)
			break
		}
	}

	h.stop()
	for range snaps {
	}

	closed, _ := h.ctrl.Subscribe()
	_, ok := <-closed
	assert.False(t, ok)
	assert.ErrorIs(t, h.ctrl.Refresh(context.Background()), ErrStopped)
}

func TestSnapshotIsACopy(t *testing.T) {
	h := newHarness(t, articles("a"), fetchResponse{})
	snap := h.waitFor(t, idleWith("a"))

	snap.Articles[0] = models.DisplayArticle{}

	assert.Equal(t, []string{"a"}, displayed(h.ctrl.Snapshot()))
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Options{Fetcher: &fakeFetcher{}})
	assert.Error(t, err)

	_, err = New(Options{Store: cache.NewMemoryStore()})
	assert.Error(t, err)
}

func TestReconnectDuringFetchGetsItsOwnAttempt(t *testing.T) {
	fetchErr := &feed.FetchError{URL: "https://example.com", Err: errors.New("network is unreachable")}
	h := newHarness(t, articles("old"),
		fetchResponse{err: fetchErr},
		fetchResponse{articles: articles("fresh")},
	)
	gate := make(chan struct{})
	h.fetcher.mu.Lock()
	h.fetcher.gate = gate
	h.fetcher.mu.Unlock()

	h.connect(t, true)
	h.waitFor(t, func(s Snapshot) bool { return s.Refreshing })

	h.connect(t, false)
	h.connect(t, true)
	assert.Equal(t, 1, h.fetcher.Calls())

	close(gate)

	h.waitFor(t, idleWith("fresh"))
	assert.Equal(t, []string{"fresh"}, h.persisted(t))
	assert.Empty(t, h.ctrl.Snapshot().LastError)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, h.fetcher.Calls())
}

func TestReconnectThenDisconnectDuringFetchDoesNotRetry(t *testing.T) {
	h := newHarness(t, nil, fetchResponse{articles: articles("a")})
	gate := make(chan struct{})
	h.fetcher.mu.Lock()
	h.fetcher.gate = gate
	h.fetcher.mu.Unlock()

	h.connect(t, true)
	h.waitFor(t, func(s Snapshot) bool { return s.Refreshing })
	h.connect(t, false)
	h.connect(t, true)
	h.connect(t, false)

	close(gate)
	h.waitFor(t, idleWith("a"))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, h.fetcher.Calls())
}

// startController runs a controller on store until the test ends.
func startController(t *testing.T, store cache.ArticleStore, fetcher Fetcher, mirror Mirror) (*Controller, *syncBuffer) {
	t.Helper()

	logs := &syncBuffer{}
	logger.Set(zerolog.New(logs))
	t.Cleanup(func() { logger.Set(zerolog.Nop()) })

	ctrl, err := New(Options{Store: store, Fetcher: fetcher, Mirror: mirror})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = ctrl.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	require.Eventually(t, func() bool { return ctrl.Snapshot().Phase == PhaseCached }, 2*time.Second, 5*time.Millisecond)
	return ctrl, logs
}

func TestInsertFailureKeepsDisplayInStepWithStore(t *testing.T) {
	store := &failingStore{
		MemoryStore: cache.NewMemoryStore(),
		insertErr:   &cache.StorageError{Op: "insert", Err: errors.New("disk full")},
	}
	require.NoError(t, store.MemoryStore.InsertAll(context.Background(), models.EntitiesFromArticles(articles("x", "y"))))
	fetcher := &fakeFetcher{responses: []fetchResponse{{articles: articles("a", "b")}}}
	mirror := &fakeMirror{}

	ctrl, logs := startController(t, store, fetcher, mirror)
	require.NoError(t, ctrl.Refresh(context.Background()))

	require.Eventually(t, func() bool {
		s := ctrl.Snapshot()
		return s.LastError != "" && !s.Refreshing
	}, 2*time.Second, 5*time.Millisecond)
	assert.Contains(t, logs.String(), "Storage operation failed")

	// DeleteAll went through, so the display follows the now empty store.
	require.Eventually(t, func() bool {
		set, err := store.All(context.Background())
		return err == nil && slices.Equal(entityHeadlines(set), displayed(ctrl.Snapshot()))
	}, 2*time.Second, 5*time.Millisecond)
	assert.Empty(t, displayed(ctrl.Snapshot()))
	assert.Zero(t, mirror.Len())
}

func TestClearFailureLeavesDisplay(t *testing.T) {
	store := &failingStore{
		MemoryStore: cache.NewMemoryStore(),
		deleteErr:   &cache.StorageError{Op: "delete", Err: errors.New("connection reset")},
	}
	require.NoError(t, store.MemoryStore.InsertAll(context.Background(), models.EntitiesFromArticles(articles("x", "y"))))
	mirror := &fakeMirror{}

	ctrl, logs := startController(t, store, &fakeFetcher{responses: []fetchResponse{{}}}, mirror)
	require.Eventually(t, func() bool { return len(ctrl.Snapshot().Articles) == 2 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, ctrl.ClearCache(context.Background()))

	require.Eventually(t, func() bool { return ctrl.Snapshot().LastError != "" }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"x", "y"}, displayed(ctrl.Snapshot()))
	set, err := store.All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, entityHeadlines(set))
	assert.Contains(t, logs.String(), "Storage operation failed")
	assert.Zero(t, mirror.Len())
}

func TestClearCacheMirrorsEmptySet(t *testing.T) {
	h := newHarness(t, nil, fetchResponse{articles: articles("a", "b")})

	h.connect(t, true)
	h.waitFor(t, idleWith("a", "b"))
	require.Eventually(t, func() bool {
		last, ok := h.mirror.Last()
		return ok && slices.Equal([]string{"a", "b"}, last)
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, h.ctrl.ClearCache(context.Background()))
	h.waitFor(t, idleWith())

	require.Eventually(t, func() bool {
		last, ok := h.mirror.Last()
		return ok && len(last) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestMirrorEndsOnLatestSet(t *testing.T) {
	h := newHarness(t, nil,
		fetchResponse{articles: articles("a")},
		fetchResponse{articles: articles("b")},
		fetchResponse{articles: articles("c")},
	)
	ctx := context.Background()

	h.connect(t, true)
	h.waitFor(t, idleWith("a"))
	require.NoError(t, h.ctrl.Refresh(ctx))
	h.waitFor(t, idleWith("b"))
	require.NoError(t, h.ctrl.Refresh(ctx))
	h.waitFor(t, idleWith("c"))

	require.Eventually(t, func() bool {
		last, ok := h.mirror.Last()
		return ok && slices.Equal([]string{"c"}, last)
	}, time.Second, 5*time.Millisecond)
}
