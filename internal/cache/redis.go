package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bilgisen/newsfeed/internal/config"
	"github.com/bilgisen/newsfeed/internal/logger"
	"github.com/bilgisen/newsfeed/internal/models"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps articles in a Redis list and announces every write on a
// pub/sub channel so observers can re-read the set.
type RedisStore struct {
	client  *redis.Client
	listKey string
	channel string
}

func NewRedisStore(cfg *config.Config) (*RedisStore, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStoreWithClient(client, cfg.RedisPrefix), nil
}

// NewRedisStoreWithClient wraps an existing client. Keys are namespaced by prefix.
func NewRedisStoreWithClient(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{
		client:  client,
		listKey: prefix + "articles",
		channel: prefix + "articles:changed",
	}
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

// All reads the whole list in insertion order.
func (r *RedisStore) All(ctx context.Context) ([]models.ArticleEntity, error) {
	raw, err := r.client.LRange(ctx, r.listKey, 0, -1).Result()
	if err != nil {
		return nil, &StorageError{Op: "read", Err: err}
	}

	records := make([]models.ArticleEntity, 0, len(raw))
	for i, item := range raw {
		var rec models.ArticleEntity
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, &StorageError{Op: "read", Err: fmt.Errorf("record %d: %w", i, err)}
		}
		records = append(records, rec)
	}
	return records, nil
}

func (r *RedisStore) InsertAll(ctx context.Context, records []models.ArticleEntity) error {
	if len(records) == 0 {
		return nil
	}

	values := make([]interface{}, 0, len(records))
	for _, rec := range records {
		b, err := json.Marshal(rec)
		if err != nil {
			return &StorageError{Op: "insert", Err: err}
		}
		values = append(values, b)
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, r.listKey, values...)
		pipe.Publish(ctx, r.channel, "insert")
		return nil
	})
	if err != nil {
		return &StorageError{Op: "insert", Err: err}
	}
	return nil
}

func (r *RedisStore) DeleteAll(ctx context.Context) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.listKey)
		pipe.Publish(ctx, r.channel, "delete")
		return nil
	})
	if err != nil {
		return &StorageError{Op: "delete", Err: err}
	}
	return nil
}

// Observe subscribes before the first read so no change between the read and the
// subscription is missed.
func (r *RedisStore) Observe(ctx context.Context) (<-chan []models.ArticleEntity, error) {
	pubsub := r.client.Subscribe(ctx, r.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, &StorageError{Op: "observe", Err: err}
	}

	out := make(chan []models.ArticleEntity, 1)
	go func() {
		defer close(out)
		defer pubsub.Close()

		log := logger.Component("cache")
		notifications := pubsub.Channel()

		emit := func() {
			set, err := r.All(ctx)
			if err != nil {
				if ctx.Err() == nil {
					log.Error().Err(err).Msg("Failed to read articles for observers")
				}
				return
			}
			offerLatest(out, set)
		}

		emit()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-notifications:
				if !ok {
					return
				}
				emit()
			}
		}
	}()

	return out, nil
}
