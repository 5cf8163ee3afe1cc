package cache

import (
	"context"
	"sync"

	"github.com/bilgisen/newsfeed/internal/models"
)

// MemoryStore is an in-process ArticleStore for running without Redis.
type MemoryStore struct {
	mu        sync.Mutex
	records   []models.ArticleEntity
	observers map[int]chan []models.ArticleEntity
	nextID    int
	closed    bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		observers: make(map[int]chan []models.ArticleEntity),
	}
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MemoryStore) All(ctx context.Context) ([]models.ArticleEntity, error) {
	if err := ctx.Err(); err != nil {
		return nil, &StorageError{Op: "read", Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, &StorageError{Op: "read", Err: ErrClosed}
	}
	return m.snapshotLocked(), nil
}

func (m *MemoryStore) InsertAll(ctx context.Context, records []models.ArticleEntity) error {
	if err := ctx.Err(); err != nil {
		return &StorageError{Op: "insert", Err: err}
	}
	if len(records) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return &StorageError{Op: "insert", Err: ErrClosed}
	}
	m.records = append(m.records, records...)
	m.notifyLocked()
	return nil
}

func (m *MemoryStore) DeleteAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &StorageError{Op: "delete", Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return &StorageError{Op: "delete", Err: ErrClosed}
	}
	m.records = nil
	m.notifyLocked()
	return nil
}

func (m *MemoryStore) Observe(ctx context.Context) (<-chan []models.ArticleEntity, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, &StorageError{Op: "observe", Err: ErrClosed}
	}
	id := m.nextID
	m.nextID++
	ch := make(chan []models.ArticleEntity, 1)
	m.observers[id] = ch
	ch <- m.snapshotLocked()
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.observers, id)
		close(ch)
		m.mu.Unlock()
	}()

	return ch, nil
}

func (m *MemoryStore) notifyLocked() {
	for _, ch := range m.observers {
		offerLatest(ch, m.snapshotLocked())
	}
}

func (m *MemoryStore) snapshotLocked() []models.ArticleEntity {
	out := make([]models.ArticleEntity, len(m.records))
	copy(out, m.records)
	return out
}
