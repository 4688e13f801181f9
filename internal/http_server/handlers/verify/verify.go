package verify

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"todo_service/internal/auth"
	resp "todo_service/internal/lib/api/response"
	sl "todo_service/internal/lib/logger/sl"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

type Response struct {
	resp.Response
	Message string `json:"message"`
	State   string `json:"state"`
}

type Verifier interface {
	Verify(ctx context.Context, email, code string) (auth.State, error)
}

func New(log *slog.Logger, validate *validator.Validate, verifier Verifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.verify.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

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

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		state, err := verifier.Verify(ctx, req.Email, req.Code)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrUserNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("User not found"))
			case errors.Is(err, auth.ErrBlocked):
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, resp.Error(err.Error()))
			case errors.Is(err, auth.ErrInvalidCode):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error(err.Error()))
			default:
				log.Error("failed to verify user", sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Internal error"))
			}

			return
		}

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Message:  "User verified successfully",
			State:    state.String(),
		})
	}
}
