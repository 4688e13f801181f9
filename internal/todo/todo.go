package todo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	sl "todo_service/internal/lib/logger/sl"
	"todo_service/internal/models"
	"todo_service/internal/storage"
)

var (
	ErrTodoNotFound = errors.New("todo not found")
	ErrUserNotFound = errors.New("user not found")
)

type Storage interface {
	SaveTodo(ctx context.Context, todo models.Todo) (models.Todo, error)
	Todo(ctx context.Context, id int64) (models.Todo, error)
	Todos(ctx context.Context) ([]models.Todo, error)
	TodosByUser(ctx context.Context, userID int64) ([]models.Todo, error)
	UpdateTodo(ctx context.Context, id int64, patch models.TodoPatch) error
	DeleteTodo(ctx context.Context, id int64) error
}

type Cache interface {
	ReadAll(ctx context.Context) ([]models.Todo, error)
	Invalidate(ctx context.Context) error
}

// * Service: CRUD задач, список целиком читается через кеш
type Service struct {
	log   *slog.Logger
	store Storage
	cache Cache
}

func New(log *slog.Logger, store Storage, cache Cache) *Service {
	return &Service{
		log:   log,
		store: store,
		cache: cache,
	}
}

func (s *Service) Create(ctx context.Context, todo models.Todo) (models.Todo, error) {
	const op = "todo.Create"

	log := s.log.With(slog.String("op", op))

	saved, err := s.store.SaveTodo(ctx, todo)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.Todo{}, ErrUserNotFound
		}

		log.Error("failed to save todo", sl.Err(err))
		return models.Todo{}, fmt.Errorf("%s: %w", op, err)
	}

	s.invalidate(ctx, log)

	log.Info("todo created", slog.Int64("id", saved.ID), slog.Int64("user_id", saved.UserID))

	return saved, nil
}

// * List пустой список не ошибка
func (s *Service) List(ctx context.Context) ([]models.Todo, error) {
	const op = "todo.List"

	todos, err := s.cache.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return todos, nil
}

func (s *Service) Get(ctx context.Context, id int64) (models.Todo, error) {
	const op = "todo.Get"

	t, err := s.store.Todo(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrTodoNotFound) {
			return models.Todo{}, ErrTodoNotFound
		}

		return models.Todo{}, fmt.Errorf("%s: %w", op, err)
	}

	return t, nil
}

func (s *Service) ListByUser(ctx context.Context, userID int64) ([]models.Todo, error) {
	const op = "todo.ListByUser"

	todos, err := s.store.TodosByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return todos, nil
}

// * Update не проверяет существование задачи, это делает вызывающий через Get
func (s *Service) Update(ctx context.Context, id int64, patch models.TodoPatch) error {
	const op = "todo.Update"

	log := s.log.With(slog.String("op", op))

	if err := s.store.UpdateTodo(ctx, id, patch); err != nil {
		log.Error("failed to update todo", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	s.invalidate(ctx, log)

	return nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	const op = "todo.Delete"

	log := s.log.With(slog.String("op", op))

	if err := s.store.DeleteTodo(ctx, id); err != nil {
		log.Error("failed to delete todo", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	s.invalidate(ctx, log)

	return nil
}

func (s *Service) invalidate(ctx context.Context, log *slog.Logger) {
	if err := s.cache.Invalidate(ctx); err != nil {
		log.Error("failed to invalidate todos cache", sl.Err(err))
	}
}
