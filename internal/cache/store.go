package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/bilgisen/newsfeed/internal/config"
	"github.com/bilgisen/newsfeed/internal/models"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store is closed")

// ArticleStore is the persisted article set.
type ArticleStore interface {
	// Observe emits the full record set now and again after every change.
	// The channel is closed when ctx is done. Slow readers only see the latest set.
	Observe(ctx context.Context) (<-chan []models.ArticleEntity, error)
	// All returns the current record set.
	All(ctx context.Context) ([]models.ArticleEntity, error)
	// InsertAll appends records in order.
	InsertAll(ctx context.Context, records []models.ArticleEntity) error
	// DeleteAll removes every record.
	DeleteAll(ctx context.Context) error
	Close() error
}

// StorageError wraps a failed store operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// New opens the store selected by cfg.StoreDriver.
func New(cfg *config.Config) (ArticleStore, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		return NewMemoryStore(), nil
	case config.StoreDriverRedis, "":
		return NewRedisStore(cfg)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// offerLatest hands set to a one-slot channel, replacing any set the reader has
// not picked up yet. Only safe with a single sender per channel.
func offerLatest(ch chan []models.ArticleEntity, set []models.ArticleEntity) {
	select {
	case ch <- set:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- set:
	default:
	}
}
