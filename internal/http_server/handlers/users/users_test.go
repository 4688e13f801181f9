package users

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"todo_service/internal/models"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type serviceMock struct {
	mock.Mock
}

func (m *serviceMock) ListUsers(ctx context.Context) ([]models.PublicUser, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]models.PublicUser)
	return users, args.Error(1)
}

func (m *serviceMock) DeleteUser(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

func router(m UserService) http.Handler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := chi.NewRouter()
	r.Get("/users", List(log, m))
	r.Delete("/users/{id}", Delete(log, m))

	return r
}

func call(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestList(t *testing.T) {
	m := &serviceMock{}
	m.On("ListUsers", mock.Anything).Return([]models.PublicUser{{ID: 1, Email: "a@x.com"}}, nil).Once()

	rec := call(router(m), http.MethodGet, "/users")
	require.Equal(t, http.StatusOK, rec.Code)

	var out ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Data, 1)
	assert.Equal(t, "a@x.com", out.Data[0].Email)
}

func TestList_Error(t *testing.T) {
	m := &serviceMock{}
	m.On("ListUsers", mock.Anything).Return(nil, errors.New("db down")).Once()

	assert.Equal(t, http.StatusInternalServerError, call(router(m), http.MethodGet, "/users").Code)
}

func TestDelete(t *testing.T) {
	m := &serviceMock{}
	m.On("DeleteUser", mock.Anything, int64(5)).Return(nil).Once()

	rec := call(router(m), http.MethodDelete, "/users/5")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "User removed successfully")
	m.AssertExpectations(t)
}

func TestDelete_BadID(t *testing.T) {
	m := &serviceMock{}

	rec := call(router(m), http.MethodDelete, "/users/abc")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	m.AssertNotCalled(t, "DeleteUser", mock.Anything, mock.Anything)
}
