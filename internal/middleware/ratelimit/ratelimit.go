package ratelimit

import (
	"net/http"
	"time"

	resp "todo_service/internal/lib/api/response"

	"github.com/go-chi/httprate"
	"github.com/go-chi/render"
)

func Login() func(http.Handler) http.Handler {
	return limitByIP(10, 5*time.Minute)
}

func Register() func(http.Handler) http.Handler {
	return limitByIP(5, time.Hour)
}

func Logout() func(http.Handler) http.Handler {
	return limitByIP(20, 10*time.Minute)
}

func Verify() func(http.Handler) http.Handler {
	return limitByIP(10, 10*time.Minute)
}

func ResendVerificationCode() func(http.Handler) http.Handler {
	return limitByIP(3, time.Hour)
}

// * API: общий лимит для остальных маршрутов
func API() func(http.Handler) http.Handler {
	return limitByIP(100, time.Minute)
}

func limitByIP(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		limit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(tooManyRequests),
	)
}

func tooManyRequests(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusTooManyRequests)
	render.JSON(w, r, resp.Error("Too many requests, please try again later"))
}
