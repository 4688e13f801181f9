package resend

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
}

type Response struct {
	resp.Response
	Message string `json:"message"`
}

type CodeResender interface {
	ResendCode(ctx context.Context, email string) error
}

func New(log *slog.Logger, validate *validator.Validate, resender CodeResender) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.resend.New"

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

		if err := resender.ResendCode(ctx, req.Email); err != nil {
			if errors.Is(err, auth.ErrRateLimited) {
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, resp.Error(err.Error()))

				return
			}

			log.Error("failed to resend verification code", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Message:  "Verification code resent",
		})
	}
}
