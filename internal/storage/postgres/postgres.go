package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"todo_service/internal/config"
	"todo_service/internal/models"
	"todo_service/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// * DB: подмножество pgxpool.Pool, которое использует репозиторий
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

type PostgresRepo struct {
	db DB
}

func New(ctx context.Context, cfg config.Postgres) (*PostgresRepo, error) {
	const op = "storage.postgres.New"

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse config: %w", op, err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	return &PostgresRepo{db: pool}, nil
}

func NewWithDB(db DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

const userColumns = `id, first_name, last_name, email, password, role, is_verified, updated_at`

func scanUser(row rowScanner) (models.User, error) {
	var (
		u    models.User
		role string
	)

	err := row.Scan(
		&u.ID,
		&u.FirstName,
		&u.LastName,
		&u.Email,
		&u.PassHash,
		&role,
		&u.IsVerified,
		&u.UpdatedAt,
	)
	if err != nil {
		return models.User{}, err
	}

	u.Role = models.Role(role)

	return u, nil
}

func (r *PostgresRepo) SaveUser(ctx context.Context, user models.User) (int64, error) {
	const op = "storage.postgres.SaveUser"

	query := `
		INSERT INTO users (first_name, last_name, email, password, role, is_verified)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id;
	`

	role := user.Role
	if role == "" {
		role = models.RoleUser
	}

	var id int64

	err := r.db.QueryRow(ctx, query,
		user.FirstName,
		user.LastName,
		user.Email,
		string(user.PassHash),
		string(role),
		user.IsVerified,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
			return 0, storage.ErrUserExists
		}

		return 0, fmt.Errorf("%s: failed to save user: %w", op, err)
	}

	return id, nil
}

func (r *PostgresRepo) User(ctx context.Context, email string) (models.User, error) {
	const op = "storage.postgres.User"

	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1;`

	u, err := scanUser(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrUserNotFound
		}

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

func (r *PostgresRepo) UserByID(ctx context.Context, id int64) (models.User, error) {
	const op = "storage.postgres.UserByID"

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1;`

	u, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrUserNotFound
		}

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

func (r *PostgresRepo) Users(ctx context.Context) ([]models.User, error) {
	const op = "storage.postgres.Users"

	query := `SELECT ` + userColumns + ` FROM users ORDER BY id;`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	users := make([]models.User, 0)

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return users, nil
}

func (r *PostgresRepo) SetEmailVerified(ctx context.Context, userID int64) error {
	const op = "storage.postgres.SetEmailVerified"

	query := `UPDATE users SET is_verified = TRUE, updated_at = NOW() WHERE id = $1`

	if _, err := r.db.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// * DeleteUser удаляет пользователя, задачи удаляются каскадно
func (r *PostgresRepo) DeleteUser(ctx context.Context, userID int64) error {
	const op = "storage.postgres.DeleteUser"

	if _, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

const todoColumns = `id, user_id, todo_name, description, due_date, is_completed, created_at, updated_at`

func scanTodo(row rowScanner) (models.Todo, error) {
	var t models.Todo

	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.TodoName,
		&t.Description,
		&t.DueDate,
		&t.IsCompleted,
		&t.CreatedAt,
		&t.UpdatedAt,
	)

	return t, err
}

func (r *PostgresRepo) SaveTodo(ctx context.Context, todo models.Todo) (models.Todo, error) {
	const op = "storage.postgres.SaveTodo"

	query := `
		INSERT INTO todos (user_id, todo_name, description, due_date, is_completed)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + todoColumns + `;
	`

	saved, err := scanTodo(r.db.QueryRow(ctx, query,
		todo.UserID,
		todo.TodoName,
		todo.Description,
		todo.DueDate,
		todo.IsCompleted,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == codeForeignKeyViolation {
			return models.Todo{}, storage.ErrUserNotFound
		}

		return models.Todo{}, fmt.Errorf("%s: %w", op, err)
	}

	return saved, nil
}

func (r *PostgresRepo) Todo(ctx context.Context, id int64) (models.Todo, error) {
	const op = "storage.postgres.Todo"

	query := `SELECT ` + todoColumns + ` FROM todos WHERE id = $1;`

	t, err := scanTodo(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Todo{}, storage.ErrTodoNotFound
		}

		return models.Todo{}, fmt.Errorf("%s: %w", op, err)
	}

	return t, nil
}

func (r *PostgresRepo) Todos(ctx context.Context) ([]models.Todo, error) {
	return r.queryTodos(ctx, "storage.postgres.Todos",
		`SELECT `+todoColumns+` FROM todos ORDER BY id;`)
}

func (r *PostgresRepo) TodosByUser(ctx context.Context, userID int64) ([]models.Todo, error) {
	return r.queryTodos(ctx, "storage.postgres.TodosByUser",
		`SELECT `+todoColumns+` FROM todos WHERE user_id = $1 ORDER BY id;`, userID)
}

func (r *PostgresRepo) queryTodos(ctx context.Context, op, query string, args ...any) ([]models.Todo, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	todos := make([]models.Todo, 0)

	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		todos = append(todos, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return todos, nil
}

// * UpdateTodo применяет патч без проверки существования строки
func (r *PostgresRepo) UpdateTodo(ctx context.Context, id int64, patch models.TodoPatch) error {
	const op = "storage.postgres.UpdateTodo"

	query := `
		UPDATE todos SET
			todo_name    = COALESCE($2, todo_name),
			description  = COALESCE($3, description),
			due_date     = COALESCE($4, due_date),
			is_completed = COALESCE($5, is_completed),
			updated_at   = NOW()
		WHERE id = $1
	`

	_, err := r.db.Exec(ctx, query, id, patch.TodoName, patch.Description, patch.DueDate, patch.IsCompleted)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) DeleteTodo(ctx context.Context, id int64) error {
	const op = "storage.postgres.DeleteTodo"

	if _, err := r.db.Exec(ctx, `DELETE FROM todos WHERE id = $1`, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) Close() {
	r.db.Close()
}
