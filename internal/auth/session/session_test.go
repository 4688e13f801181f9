package session

import (
	"context"
	"testing"
	"time"

	redisrepo "todo_service/internal/storage/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) (*Manager, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	kv, err := redisrepo.New(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(kv.Close)

	return New(kv, time.Hour), mr
}

func TestIssue_LastWriteWins(t *testing.T) {
	m, mr := newManager(t)
	ctx := context.Background()

	require.NoError(t, m.Issue(ctx, 1, "first"))
	require.NoError(t, m.Issue(ctx, 1, "second"))

	ok, err := m.Validate(ctx, 1, "first")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = m.Validate(ctx, 1, "second")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, time.Hour, mr.TTL("session:1"))
}

func TestValidate_Expired(t *testing.T) {
	m, mr := newManager(t)
	ctx := context.Background()

	require.NoError(t, m.Issue(ctx, 2, "tok"))
	mr.FastForward(time.Hour + time.Second)

	ok, err := m.Validate(ctx, 2, "tok")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRevoke_Idempotent(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	require.NoError(t, m.Issue(ctx, 3, "tok"))
	require.NoError(t, m.Revoke(ctx, 3))
	require.NoError(t, m.Revoke(ctx, 3))

	ok, err := m.Validate(ctx, 3, "tok")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "session:42", Key(42))
}
