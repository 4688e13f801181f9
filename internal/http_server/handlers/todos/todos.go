package todos

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"todo_service/internal/lib/api/request"
	resp "todo_service/internal/lib/api/response"
	sl "todo_service/internal/lib/logger/sl"
	"todo_service/internal/middleware/authorize"
	"todo_service/internal/models"
	"todo_service/internal/todo"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type CreateRequest struct {
	UserID      int64      `json:"user_id" validate:"omitempty,gt=0"`
	TodoName    string     `json:"todo_name" validate:"required,max=255"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date"`
	IsCompleted bool       `json:"is_completed"`
}

type UpdateRequest struct {
	TodoName    *string    `json:"todo_name" validate:"omitempty,min=1,max=255"`
	Description *string    `json:"description"`
	DueDate     *time.Time `json:"due_date"`
	IsCompleted *bool      `json:"is_completed"`
}

type TodoResponse struct {
	resp.Response
	Message string      `json:"message,omitempty"`
	Data    models.Todo `json:"data"`
}

type ListResponse struct {
	resp.Response
	Data []models.Todo `json:"data"`
}

type MessageResponse struct {
	resp.Response
	Message string `json:"message"`
}

type TodoService interface {
	Create(ctx context.Context, t models.Todo) (models.Todo, error)
	List(ctx context.Context) ([]models.Todo, error)
	Get(ctx context.Context, id int64) (models.Todo, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Todo, error)
	Update(ctx context.Context, id int64, patch models.TodoPatch) error
	Delete(ctx context.Context, id int64) error
}

func withRequestLog(log *slog.Logger, op string, r *http.Request) *slog.Logger {
	return log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// * Create создает задачу. Пользователь с ролью user создает задачи только себе.
func Create(log *slog.Logger, validate *validator.Validate, svc TodoService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := withRequestLog(log, "handlers.todos.Create", r)

		var req CreateRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		if err := validate.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		claims, ok := authorize.ClaimsFromContext(r.Context())
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("Unauthorized"))

			return
		}

		owner := req.UserID
		if owner == 0 {
			owner = claims.ID
		}
		if claims.Role != models.RoleAdmin && owner != claims.ID {
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, resp.Error("Forbidden"))

			return
		}

		created, err := svc.Create(r.Context(), models.Todo{
			UserID:      owner,
			TodoName:    req.TodoName,
			Description: req.Description,
			DueDate:     req.DueDate,
			IsCompleted: req.IsCompleted,
		})
		if err != nil {
			if errors.Is(err, todo.ErrUserNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("User not found"))

				return
			}

			log.Error("failed to create todo", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, TodoResponse{
			Response: resp.OK(),
			Message:  "Todo created successfully",
			Data:     created,
		})
	}
}

// * List отдает все задачи, пустой список тоже 200
func List(log *slog.Logger, svc TodoService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := withRequestLog(log, "handlers.todos.List", r)

		todos, err := svc.List(r.Context())
		if err != nil {
			log.Error("failed to list todos", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, ListResponse{
			Response: resp.OK(),
			Data:     todos,
		})
	}
}

func Get(log *slog.Logger, svc TodoService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := withRequestLog(log, "handlers.todos.Get", r)

		id, err := request.ID(r, "id")
		if err != nil {
			invalidID(w, r)
			return
		}

		t, ok := probe(w, r, log, svc, id)
		if !ok {
			return
		}

		render.JSON(w, r, TodoResponse{
			Response: resp.OK(),
			Data:     t,
		})
	}
}

// * ListByUser пользователь с ролью user видит только свои задачи
func ListByUser(log *slog.Logger, svc TodoService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := withRequestLog(log, "handlers.todos.ListByUser", r)

		userID, err := request.ID(r, "userId")
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Invalid User ID"))

			return
		}

		if claims, ok := authorize.ClaimsFromContext(r.Context()); ok {
			if claims.Role != models.RoleAdmin && claims.ID != userID {
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, resp.Error("Forbidden"))

				return
			}
		}

		todos, err := svc.ListByUser(r.Context(), userID)
		if err != nil {
			log.Error("failed to list user todos", slog.Int64("user_id", userID), sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, ListResponse{
			Response: resp.OK(),
			Data:     todos,
		})
	}
}

func Update(log *slog.Logger, validate *validator.Validate, svc TodoService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := withRequestLog(log, "handlers.todos.Update", r)

		id, err := request.ID(r, "id")
		if err != nil {
			invalidID(w, r)
			return
		}

		var req UpdateRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		if err := validate.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		if _, ok := probe(w, r, log, svc, id); !ok {
			return
		}

		err = svc.Update(r.Context(), id, models.TodoPatch{
			TodoName:    req.TodoName,
			Description: req.Description,
			DueDate:     req.DueDate,
			IsCompleted: req.IsCompleted,
		})
		if err != nil {
			log.Error("failed to update todo", slog.Int64("id", id), sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, MessageResponse{
			Response: resp.OK(),
			Message:  "Todo updated successfully",
		})
	}
}

func Delete(log *slog.Logger, svc TodoService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := withRequestLog(log, "handlers.todos.Delete", r)

		id, err := request.ID(r, "id")
		if err != nil {
			invalidID(w, r)
			return
		}

		if _, ok := probe(w, r, log, svc, id); !ok {
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			log.Error("failed to delete todo", slog.Int64("id", id), sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, MessageResponse{
			Response: resp.OK(),
			Message:  "Todo deleted successfully",
		})
	}
}

// * probe читает задачу и сам пишет 404/500, если ее нет
func probe(w http.ResponseWriter, r *http.Request, log *slog.Logger, svc TodoService, id int64) (models.Todo, bool) {
	t, err := svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, todo.ErrTodoNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, resp.Error("Todo not found"))

			return models.Todo{}, false
		}

		log.Error("failed to get todo", slog.Int64("id", id), sl.Err(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, resp.Error("Internal error"))

		return models.Todo{}, false
	}

	return t, true
}

func invalidID(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, resp.Error("Invalid ID"))
}
