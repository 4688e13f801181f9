package todos

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"todo_service/internal/lib/jwt"
	"todo_service/internal/middleware/authorize"
	"todo_service/internal/models"
	"todo_service/internal/todo"

	"github.com/go-chi/chi"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type serviceMock struct {
	mock.Mock
}

func (m *serviceMock) Create(ctx context.Context, t models.Todo) (models.Todo, error) {
	args := m.Called(ctx, t)
	return args.Get(0).(models.Todo), args.Error(1)
}

func (m *serviceMock) List(ctx context.Context) ([]models.Todo, error) {
	args := m.Called(ctx)
	todos, _ := args.Get(0).([]models.Todo)
	return todos, args.Error(1)
}

func (m *serviceMock) Get(ctx context.Context, id int64) (models.Todo, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Todo), args.Error(1)
}

func (m *serviceMock) ListByUser(ctx context.Context, userID int64) ([]models.Todo, error) {
	args := m.Called(ctx, userID)
	todos, _ := args.Get(0).([]models.Todo)
	return todos, args.Error(1)
}

func (m *serviceMock) Update(ctx context.Context, id int64, patch models.TodoPatch) error {
	return m.Called(ctx, id, patch).Error(0)
}

func (m *serviceMock) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

var (
	admin = &jwt.Claims{ID: 1, Role: models.RoleAdmin}
	user  = &jwt.Claims{ID: 2, Role: models.RoleUser}
)

func router(svc TodoService, claims *jwt.Claims) http.Handler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	validate := validator.New()

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(authorize.WithClaims(r.Context(), claims)))
		})
	})

	r.Post("/todo", Create(log, validate, svc))
	r.Get("/todo", List(log, svc))
	r.Get("/todo/{id}", Get(log, svc))
	r.Put("/todo/{id}", Update(log, validate, svc))
	r.Delete("/todo/{id}", Delete(log, svc))
	r.Get("/todo/user/{userId}", ListByUser(log, svc))

	return r
}

func call(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, bytes.NewBufferString(body)))
	return rec
}

func TestCreate_DefaultsOwnerToCaller(t *testing.T) {
	m := &serviceMock{}
	m.On("Create", mock.Anything, mock.MatchedBy(func(td models.Todo) bool {
		return td.UserID == user.ID && td.TodoName == "buy milk"
	})).Return(models.Todo{ID: 10, UserID: user.ID, TodoName: "buy milk"}, nil).Once()

	rec := call(router(m, user), http.MethodPost, "/todo", `{"todo_name":"buy milk"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var out TodoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, int64(10), out.Data.ID)
	m.AssertExpectations(t)
}

func TestCreate_UserCannotCreateForOthers(t *testing.T) {
	m := &serviceMock{}

	rec := call(router(m, user), http.MethodPost, "/todo", `{"user_id":99,"todo_name":"x"}`)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	m.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreate_AdminForUnknownUser(t *testing.T) {
	m := &serviceMock{}
	m.On("Create", mock.Anything, mock.Anything).Return(models.Todo{}, todo.ErrUserNotFound).Once()

	rec := call(router(m, admin), http.MethodPost, "/todo", `{"user_id":99,"todo_name":"x"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreate_MissingName(t *testing.T) {
	rec := call(router(&serviceMock{}, admin), http.MethodPost, "/todo", `{"description":"no name"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "field TodoName is a required field")
}

func TestList_EmptyIsOK(t *testing.T) {
	m := &serviceMock{}
	m.On("List", mock.Anything).Return([]models.Todo{}, nil).Once()

	rec := call(router(m, admin), http.MethodGet, "/todo", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"OK","data":[]}`, rec.Body.String())
}

func TestGet(t *testing.T) {
	m := &serviceMock{}
	m.On("Get", mock.Anything, int64(5)).Return(models.Todo{ID: 5, TodoName: "x"}, nil).Once()
	m.On("Get", mock.Anything, int64(6)).Return(models.Todo{}, todo.ErrTodoNotFound).Once()
	m.On("Get", mock.Anything, int64(7)).Return(models.Todo{}, errors.New("db down")).Once()

	h := router(m, admin)

	assert.Equal(t, http.StatusOK, call(h, http.MethodGet, "/todo/5", "").Code)
	assert.Equal(t, http.StatusNotFound, call(h, http.MethodGet, "/todo/6", "").Code)
	assert.Equal(t, http.StatusInternalServerError, call(h, http.MethodGet, "/todo/7", "").Code)
	assert.Equal(t, http.StatusBadRequest, call(h, http.MethodGet, "/todo/abc", "").Code)
}

func TestUpdate_ProbesExistence(t *testing.T) {
	m := &serviceMock{}
	m.On("Get", mock.Anything, int64(404)).Return(models.Todo{}, todo.ErrTodoNotFound).Once()

	rec := call(router(m, admin), http.MethodPut, "/todo/404", `{"is_completed":true}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	m.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdate_AppliesPatch(t *testing.T) {
	m := &serviceMock{}
	m.On("Get", mock.Anything, int64(5)).Return(models.Todo{ID: 5}, nil).Once()
	m.On("Update", mock.Anything, int64(5), mock.MatchedBy(func(p models.TodoPatch) bool {
		return p.IsCompleted != nil && *p.IsCompleted && p.TodoName == nil
	})).Return(nil).Once()

	rec := call(router(m, admin), http.MethodPut, "/todo/5", `{"is_completed":true}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	m.AssertExpectations(t)
}

func TestUpdate_EmptyName(t *testing.T) {
	rec := call(router(&serviceMock{}, admin), http.MethodPut, "/todo/5", `{"todo_name":""}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDelete(t *testing.T) {
	m := &serviceMock{}
	m.On("Get", mock.Anything, int64(5)).Return(models.Todo{ID: 5}, nil).Once()
	m.On("Delete", mock.Anything, int64(5)).Return(nil).Once()
	m.On("Get", mock.Anything, int64(6)).Return(models.Todo{}, todo.ErrTodoNotFound).Once()

	h := router(m, admin)

	rec := call(h, http.MethodDelete, "/todo/5", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Todo deleted successfully")

	assert.Equal(t, http.StatusNotFound, call(h, http.MethodDelete, "/todo/6", "").Code)
	m.AssertExpectations(t)
}

func TestListByUser(t *testing.T) {
	m := &serviceMock{}
	m.On("ListByUser", mock.Anything, user.ID).Return([]models.Todo{{ID: 1, UserID: user.ID}}, nil).Once()

	h := router(m, user)

	assert.Equal(t, http.StatusOK, call(h, http.MethodGet, "/todo/user/2", "").Code)
	assert.Equal(t, http.StatusForbidden, call(h, http.MethodGet, "/todo/user/3", "").Code)
	assert.Equal(t, http.StatusBadRequest, call(h, http.MethodGet, "/todo/user/x", "").Code)
	m.AssertExpectations(t)
}
