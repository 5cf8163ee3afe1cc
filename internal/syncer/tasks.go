package syncer

import (
	"errors"

	"github.com/bilgisen/newsfeed/internal/cache"
	"github.com/bilgisen/newsfeed/internal/feed"
	"github.com/bilgisen/newsfeed/internal/models"
)

type commandKind int

const (
	cmdRefresh commandKind = iota
	cmdClearCache
	cmdSetCacheEnabled
)

type command struct {
	kind    commandKind
	enabled bool
	reply   chan error
}

type resultKind int

const (
	resFetched resultKind = iota
	resCleared
	resPreferenceSaved
)

// result is what a background task reports back to the loop.
type result struct {
	kind      resultKind
	articles  []models.Article
	persisted bool
	err       error
}

// logFailure logs err by category. None of these are surfaced beyond the log
// and Snapshot.LastError.
func (c *Controller) logFailure(err error) {
	var (
		fetchErr   *feed.FetchError
		parseErr   *feed.ParseError
		storageErr *cache.StorageError
	)
	switch {
	case errors.As(err, &fetchErr):
		c.log.Warn().Err(err).Int("status", fetchErr.StatusCode).Msg("Fetch failed")
	case errors.As(err, &parseErr):
		c.log.Error().Err(err).Msg("Search response could not be parsed")
	case errors.As(err, &storageErr):
		c.log.Error().Err(err).Str("op", storageErr.Op).Msg("Storage operation failed")
	default:
		c.log.Error().Err(err).Msg("Sync task failed")
	}
}
