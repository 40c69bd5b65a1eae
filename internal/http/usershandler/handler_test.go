package usershandler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chatrelaygo/internal/services/identity"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := identity.NewIdentityService(db, "unit-test-secret-key", time.Hour, "chatrelaygo-test")

	// Mint a real token for "alice" through the login path.
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	mock.ExpectQuery("SELECT password_hash FROM users").
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"password_hash"}).AddRow(string(hash)))
	dto, err := svc.Login(context.Background(), "alice", "password123")
	require.NoError(t, err)

	routerEngine := gin.New()
	New(svc).Register(routerEngine)
	return routerEngine, mock, dto.Token
}

func TestListUsersExcludesCaller(t *testing.T) {
	routerEngine, mock, token := newTestRouter(t)

	mock.ExpectQuery("SELECT username FROM users").
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"username"}).
			AddRow("bob").
			AddRow("carol"))

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	routerEngine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["bob","carol"]`, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUsersRequiresToken(t *testing.T) {
	routerEngine, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	rec := httptest.NewRecorder()
	routerEngine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeReturnsCaller(t *testing.T) {
	routerEngine, _, token := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	routerEngine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"username":"alice"}`, rec.Body.String())
}
