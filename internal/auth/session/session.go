package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"todo_service/internal/storage"
)

type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// * Manager хранит одну активную сессию на пользователя.
// Новый вход перезаписывает предыдущий токен.
type Manager struct {
	kv  KV
	ttl time.Duration
}

func New(kv KV, ttl time.Duration) *Manager {
	return &Manager{kv: kv, ttl: ttl}
}

func Key(userID int64) string {
	return "session:" + strconv.FormatInt(userID, 10)
}

func (m *Manager) Issue(ctx context.Context, userID int64, token string) error {
	const op = "session.Manager.Issue"

	if err := m.kv.Set(ctx, Key(userID), token, m.ttl); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// * Validate сравнивает предъявленный токен с сохраненным
func (m *Manager) Validate(ctx context.Context, userID int64, token string) (bool, error) {
	const op = "session.Manager.Validate"

	stored, err := m.kv.Get(ctx, Key(userID))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return false, nil
		}

		return false, fmt.Errorf("%s: %w", op, err)
	}

	return stored == token, nil
}

// * Revoke идемпотентен
func (m *Manager) Revoke(ctx context.Context, userID int64) error {
	const op = "session.Manager.Revoke"

	if err := m.kv.Del(ctx, Key(userID)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
