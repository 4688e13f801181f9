package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"todo_service/internal/storage"

	"github.com/redis/go-redis/v9"
)

// * RedisRepo: хранилище ключ-значение для сессий, кодов подтверждения и кеша.
// Каждая операция атомарна на уровне одного ключа, блокировок поверх нет.
type RedisRepo struct {
	client *redis.Client
}

func New(ctx context.Context, addr, pass string, db int) (*RedisRepo, error) {
	const op = "storage.redis.New"

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     pass,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RedisRepo{
		client: client,
	}, nil
}

// * Get возвращает storage.ErrKeyNotFound, если ключа нет
func (r *RedisRepo) Get(ctx context.Context, key string) (string, error) {
	const op = "storage.redis.Get"

	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", storage.ErrKeyNotFound
		}

		return "", fmt.Errorf("%s: %w", op, err)
	}

	return val, nil
}

func (r *RedisRepo) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	const op = "storage.redis.Set"

	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// * Del удаляет ключ, отсутствие ключа не ошибка
func (r *RedisRepo) Del(ctx context.Context, key string) error {
	const op = "storage.redis.Del"

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *RedisRepo) Exists(ctx context.Context, key string) (bool, error) {
	const op = "storage.redis.Exists"

	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return n > 0, nil
}

func (r *RedisRepo) Incr(ctx context.Context, key string) (int64, error) {
	const op = "storage.redis.Incr"

	n, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}

func (r *RedisRepo) Expire(ctx context.Context, key string, ttl time.Duration) error {
	const op = "storage.redis.Expire"

	if err := r.client.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// * Close закрывает соединение с Redis.
func (r *RedisRepo) Close() {
	r.client.Close()
}
