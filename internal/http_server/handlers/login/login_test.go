package login

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

	"todo_service/internal/auth"
	"todo_service/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type authMock struct {
	mock.Mock
}

func (m *authMock) Login(ctx context.Context, email, password string) (string, models.PublicUser, error) {
	args := m.Called(ctx, email, password)
	return args.String(0), args.Get(1).(models.PublicUser), args.Error(2)
}

func serve(m Authenticator, body string) *httptest.ResponseRecorder {
	h := New(slog.New(slog.NewTextHandler(io.Discard, nil)), validator.New(), m)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

const body = `{"email":"ann@x.com","password":"secret123"}`

func TestLogin_OK(t *testing.T) {
	user := models.PublicUser{ID: 1, Email: "ann@x.com", Role: models.RoleUser, LastName: "Lee"}

	m := &authMock{}
	m.On("Login", mock.Anything, "ann@x.com", "secret123").Return("tok", user, nil).Once()

	rec := serve(m, body)
	require.Equal(t, http.StatusOK, rec.Code)

	var out Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))

	assert.Equal(t, "tok", out.Token)
	assert.Equal(t, user, out.User)
	assert.NotContains(t, rec.Body.String(), "pass")
}

func TestLogin_Errors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "unknown email", err: auth.ErrUserNotFound, wantCode: http.StatusNotFound},
		{name: "wrong password", err: auth.ErrInvalidCredentials, wantCode: http.StatusUnauthorized},
		{name: "internal", err: errors.New("redis down"), wantCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &authMock{}
			m.On("Login", mock.Anything, mock.Anything, mock.Anything).Return("", models.PublicUser{}, tt.err).Once()

			rec := serve(m, body)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestLogin_MissingPassword(t *testing.T) {
	rec := serve(&authMock{}, `{"email":"ann@x.com"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "field Pass is a required field")
}
