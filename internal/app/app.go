// Package app wires configuration into a running sync controller. Both the
// terminal and the headless entry points build on it.
package app

import (
	"context"
	"fmt"

	"github.com/bilgisen/newsfeed/internal/archive"
	"github.com/bilgisen/newsfeed/internal/cache"
	"github.com/bilgisen/newsfeed/internal/config"
	"github.com/bilgisen/newsfeed/internal/connectivity"
	"github.com/bilgisen/newsfeed/internal/feed"
	"github.com/bilgisen/newsfeed/internal/logger"
	"github.com/bilgisen/newsfeed/internal/storage"
	"github.com/bilgisen/newsfeed/internal/syncer"
)

type App struct {
	Controller *syncer.Controller

	store   cache.ArticleStore
	monitor *connectivity.Monitor
}

// New opens the store and preferences and builds the controller. The caller
// owns the result and must Close it.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logger.Get()

	store, err := cache.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open article store: %w", err)
	}

	prefs, err := storage.NewPreferences(cfg.PrefsPath, cfg.PrefsName)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to open preferences: %w", err)
	}

	monitor := connectivity.NewMonitor(NewChecker(cfg), cfg.ConnectivityInterval)

	opts := syncer.Options{
		Store:        store,
		Fetcher:      feed.NewFetcher(cfg),
		Preferences:  prefs,
		Connectivity: monitor.Events(),
	}

	if cfg.ArchiveEnabled() {
		arc, err := archive.New(ctx, cfg)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to initialize archive: %w", err)
		}
		opts.Mirror = arc
		log.Info().Str("bucket", cfg.ArchiveBucket).Str("key", arc.Key()).Msg("Archive mirror enabled")
	}

	ctrl, err := syncer.New(opts)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	log.Info().
		Str("store", cfg.StoreDriver).
		Str("prefs", prefs.Path()).
		Dur("connectivity_interval", cfg.ConnectivityInterval).
		Msg("Application initialized")

	return &App{
		Controller: ctrl,
		store:      store,
		monitor:    monitor,
	}, nil
}

// NewChecker checks the network interfaces, plus a TCP probe when one is
// configured.
func NewChecker(cfg *config.Config) connectivity.Checker {
	var checker connectivity.Checker = connectivity.InterfaceChecker{}
	if cfg.ConnectivityProbeAddr != "" {
		checker = connectivity.AllOf(checker, connectivity.ProbeChecker{
			Addr:    cfg.ConnectivityProbeAddr,
			Timeout: cfg.ConnectivityTimeout,
		})
	}
	return checker
}

// Run starts the connectivity monitor and drives the controller until ctx is
// done. The monitor is unregistered on return.
func (a *App) Run(ctx context.Context) error {
	a.monitor.Start(ctx)
	defer a.monitor.Stop()
	return a.Controller.Run(ctx)
}

func (a *App) Close() error {
	return a.store.Close()
}
