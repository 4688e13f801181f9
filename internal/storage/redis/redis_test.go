package redis

import (
	"context"
	"testing"
	"time"

	"todo_service/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) (*RedisRepo, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	repo, err := New(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(repo.Close)

	return repo, mr
}

func TestGet_MissingKey(t *testing.T) {
	repo, _ := newRepo(t)

	_, err := repo.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)
}

func TestSet_ExpiresAfterTTL(t *testing.T) {
	repo, mr := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "k", "v", time.Minute))

	got, err := repo.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	mr.FastForward(61 * time.Second)

	_, err = repo.Get(ctx, "k")
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)
}

func TestDel_IsIdempotent(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "k", "v", 0))
	require.NoError(t, repo.Del(ctx, "k"))
	require.NoError(t, repo.Del(ctx, "k"))

	ok, err := repo.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIncrAndExpire(t *testing.T) {
	repo, mr := newRepo(t)
	ctx := context.Background()

	n, err := repo.Incr(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, repo.Expire(ctx, "counter", 10*time.Minute))

	n, err = repo.Incr(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 10*time.Minute, mr.TTL("counter"))
}

func TestNew_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := New(ctx, "127.0.0.1:1", "", 0)
	assert.Error(t, err)
}
