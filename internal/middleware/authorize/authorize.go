package authorize

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"todo_service/internal/auth"
	resp "todo_service/internal/lib/api/response"
	"todo_service/internal/lib/jwt"
	sl "todo_service/internal/lib/logger/sl"
	"todo_service/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type ctxKey struct{}

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*jwt.Claims, error)
}

// * New проверяет Bearer токен и активную сессию, кладет claims в контекст
func New(log *slog.Logger, authenticator Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middleware.authorize"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w, r, "Unauthorized")
				return
			}

			claims, err := authenticator.Authenticate(r.Context(), token)
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrInvalidToken):
					unauthorized(w, r, "Invalid Token")
				case errors.Is(err, auth.ErrSessionExpired):
					unauthorized(w, r, "Session expired or invalid")
				default:
					log.Error("failed to validate session", sl.Err(err))

					render.Status(r, http.StatusInternalServerError)
					render.JSON(w, r, resp.Error("Internal error"))
				}

				return
			}

			ctx := context.WithValue(r.Context(), ctxKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// * RequireRole пропускает только перечисленные роли, ставится после New
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				unauthorized(w, r, "Unauthorized")
				return
			}

			if !slices.Contains(roles, claims.Role) {
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, resp.Error("Forbidden"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func ClaimsFromContext(ctx context.Context) (*jwt.Claims, bool) {
	claims, ok := ctx.Value(ctxKey{}).(*jwt.Claims)
	return claims, ok && claims != nil
}

// * WithClaims нужен обработчикам в тестах
func WithClaims(ctx context.Context, claims *jwt.Claims) context.Context {
	return context.WithValue(ctx, ctxKey{}, claims)
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")

	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", false
	}

	return strings.TrimSpace(token), true
}

func unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, resp.Error(msg))
}
