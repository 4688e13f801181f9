package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"todo_service/internal/models"
	"todo_service/internal/storage"
)

// * Storage: реляционное хранилище в памяти с теми же контрактами, что у postgres:
// уникальный email, внешний ключ todo -> user и каскадное удаление.
type Storage struct {
	mu         sync.Mutex
	users      map[int64]models.User
	todos      map[int64]models.Todo
	nextUserID int64
	nextTodoID int64
}

func New() *Storage {
	return &Storage{
		users: make(map[int64]models.User),
		todos: make(map[int64]models.Todo),
	}
}

func (s *Storage) SaveUser(_ context.Context, user models.User) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == user.Email {
			return 0, storage.ErrUserExists
		}
	}

	s.nextUserID++
	user.ID = s.nextUserID
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	user.UpdatedAt = time.Now().UTC()
	s.users[user.ID] = user

	return user.ID, nil
}

func (s *Storage) User(_ context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}

	return models.User{}, storage.ErrUserNotFound
}

func (s *Storage) UserByID(_ context.Context, id int64) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}

	return u, nil
}

func (s *Storage) Users(_ context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })

	return users, nil
}

func (s *Storage) SetEmailVerified(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[userID]; ok {
		u.IsVerified = true
		u.UpdatedAt = time.Now().UTC()
		s.users[userID] = u
	}

	return nil
}

func (s *Storage) DeleteUser(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.users, userID)

	for id, t := range s.todos {
		if t.UserID == userID {
			delete(s.todos, id)
		}
	}

	return nil
}

func (s *Storage) SaveTodo(_ context.Context, todo models.Todo) (models.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[todo.UserID]; !ok {
		return models.Todo{}, storage.ErrUserNotFound
	}

	now := time.Now().UTC()

	s.nextTodoID++
	todo.ID = s.nextTodoID
	todo.CreatedAt = now
	todo.UpdatedAt = now
	s.todos[todo.ID] = todo

	return todo, nil
}

func (s *Storage) Todo(_ context.Context, id int64) (models.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.todos[id]
	if !ok {
		return models.Todo{}, storage.ErrTodoNotFound
	}

	return t, nil
}

func (s *Storage) Todos(_ context.Context) ([]models.Todo, error) {
	return s.filterTodos(func(models.Todo) bool { return true }), nil
}

func (s *Storage) TodosByUser(_ context.Context, userID int64) ([]models.Todo, error) {
	return s.filterTodos(func(t models.Todo) bool { return t.UserID == userID }), nil
}

func (s *Storage) filterTodos(keep func(models.Todo) bool) []models.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()

	todos := make([]models.Todo, 0, len(s.todos))
	for _, t := range s.todos {
		if keep(t) {
			todos = append(todos, t)
		}
	}
	sort.Slice(todos, func(i, j int) bool { return todos[i].ID < todos[j].ID })

	return todos
}

func (s *Storage) UpdateTodo(_ context.Context, id int64, patch models.TodoPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.todos[id]
	if !ok {
		return nil
	}

	if patch.TodoName != nil {
		t.TodoName = *patch.TodoName
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.DueDate != nil {
		due := *patch.DueDate
		t.DueDate = &due
	}
	if patch.IsCompleted != nil {
		t.IsCompleted = *patch.IsCompleted
	}
	t.UpdatedAt = time.Now().UTC()
	s.todos[id] = t

	return nil
}

func (s *Storage) DeleteTodo(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.todos, id)

	return nil
}
