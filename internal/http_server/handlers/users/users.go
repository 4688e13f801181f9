package users

import (
	"context"
	"log/slog"
	"net/http"

	"todo_service/internal/lib/api/request"
	resp "todo_service/internal/lib/api/response"
	sl "todo_service/internal/lib/logger/sl"
	"todo_service/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type ListResponse struct {
	resp.Response
	Data []models.PublicUser `json:"data"`
}

type MessageResponse struct {
	resp.Response
	Message string `json:"message"`
}

type UserService interface {
	ListUsers(ctx context.Context) ([]models.PublicUser, error)
	DeleteUser(ctx context.Context, userID int64) error
}

func List(log *slog.Logger, svc UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.users.List"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		users, err := svc.ListUsers(r.Context())
		if err != nil {
			log.Error("failed to list users", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, ListResponse{
			Response: resp.OK(),
			Data:     users,
		})
	}
}

// * Delete удаляет пользователя и его задачи, отсутствие пользователя не ошибка
func Delete(log *slog.Logger, svc UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.users.Delete"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id, err := request.ID(r, "id")
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Invalid ID"))

			return
		}

		if err := svc.DeleteUser(r.Context(), id); err != nil {
			log.Error("failed to delete user", slog.Int64("id", id), sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, MessageResponse{
			Response: resp.OK(),
			Message:  "User removed successfully",
		})
	}
}
