package memory

import (
	"context"
	"testing"

	"todo_service/internal/models"
	"todo_service/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveUser_UniqueEmail(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.SaveUser(ctx, models.User{Email: "a@x.com"})
	require.NoError(t, err)

	_, err = s.SaveUser(ctx, models.User{Email: "a@x.com"})
	assert.ErrorIs(t, err, storage.ErrUserExists)

	users, err := s.Users(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, models.RoleUser, users[0].Role)
}

func TestSaveTodo_RequiresOwner(t *testing.T) {
	s := New()

	_, err := s.SaveTodo(context.Background(), models.Todo{UserID: 1, TodoName: "orphan"})
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}

func TestDeleteUser_CascadesTodos(t *testing.T) {
	s := New()
	ctx := context.Background()

	alice, err := s.SaveUser(ctx, models.User{Email: "alice@x.com"})
	require.NoError(t, err)
	bob, err := s.SaveUser(ctx, models.User{Email: "bob@x.com"})
	require.NoError(t, err)

	_, err = s.SaveTodo(ctx, models.Todo{UserID: alice, TodoName: "a"})
	require.NoError(t, err)
	kept, err := s.SaveTodo(ctx, models.Todo{UserID: bob, TodoName: "b"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteUser(ctx, alice))

	todos, err := s.Todos(ctx)
	require.NoError(t, err)
	require.Len(t, todos, 1)
	assert.Equal(t, kept.ID, todos[0].ID)
}

func TestUpdateTodo_MissingIsNoop(t *testing.T) {
	s := New()
	name := "ghost"

	require.NoError(t, s.UpdateTodo(context.Background(), 123, models.TodoPatch{TodoName: &name}))

	_, err := s.Todo(context.Background(), 123)
	assert.ErrorIs(t, err, storage.ErrTodoNotFound)
}
