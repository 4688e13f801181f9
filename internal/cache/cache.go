package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sl "todo_service/internal/lib/logger/sl"
	"todo_service/internal/storage"
)

const (
	UsersKey = "users:all"
	TodosKey = "todos:all"
)

type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

type Recorder interface {
	RecordCacheHit(key string)
	RecordCacheMiss(key string)
}

// * Collection: cache-aside для коллекции под одним фиксированным ключом.
// Запись в кеш не делается при изменениях, только удаление ключа.
type Collection[T any] struct {
	log     *slog.Logger
	store   Store
	key     string
	ttl     time.Duration
	load    func(ctx context.Context) ([]T, error)
	metrics Recorder
}

func New[T any](
	log *slog.Logger,
	store Store,
	key string,
	ttl time.Duration,
	load func(ctx context.Context) ([]T, error),
	metrics Recorder,
) *Collection[T] {
	return &Collection[T]{
		log:     log,
		store:   store,
		key:     key,
		ttl:     ttl,
		load:    load,
		metrics: metrics,
	}
}

// * ReadAll возвращает коллекцию из кеша, при промахе читает хранилище и заполняет кеш.
// Ошибки кеша не мешают чтению из хранилища.
func (c *Collection[T]) ReadAll(ctx context.Context) ([]T, error) {
	const op = "cache.Collection.ReadAll"

	log := c.log.With(slog.String("op", op), slog.String("key", c.key))

	cached, err := c.store.Get(ctx, c.key)
	switch {
	case err == nil:
		var items []T
		if err := json.Unmarshal([]byte(cached), &items); err == nil && items != nil {
			c.metrics.RecordCacheHit(c.key)
			return items, nil
		}

		log.Warn("corrupted cache entry, reloading")
	case errors.Is(err, storage.ErrKeyNotFound):
	default:
		log.Warn("failed to read cache", sl.Err(err))
	}

	c.metrics.RecordCacheMiss(c.key)

	items, err := c.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if items == nil {
		items = make([]T, 0)
	}

	raw, err := json.Marshal(items)
	if err != nil {
		log.Warn("failed to encode cache entry", sl.Err(err))
		return items, nil
	}

	if err := c.store.Set(ctx, c.key, string(raw), c.ttl); err != nil {
		log.Warn("failed to populate cache", sl.Err(err))
	}

	return items, nil
}

// * Invalidate удаляет ключ, вызывается после каждой записи до ответа клиенту
func (c *Collection[T]) Invalidate(ctx context.Context) error {
	const op = "cache.Collection.Invalidate"

	if err := c.store.Del(ctx, c.key); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
