package logout

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	resp "todo_service/internal/lib/api/response"
	sl "todo_service/internal/lib/logger/sl"
	"todo_service/internal/middleware/authorize"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
	Message string `json:"message"`
}

type Logouter interface {
	Logout(ctx context.Context, userID int64) error
}

// * New отзывает сессию пользователя из токена, стоит за authorize.New
func New(log *slog.Logger, logouter Logouter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.logout.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		claims, ok := authorize.ClaimsFromContext(r.Context())
		if !ok || claims.ID == 0 {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Invalid user session"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := logouter.Logout(ctx, claims.ID); err != nil {
			log.Error("failed to logout", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Message:  "Logged out successfully",
		})
	}
}
