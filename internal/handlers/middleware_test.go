package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dukapay/dukapay-gobackend/internal/apperrors"
	"github.com/dukapay/dukapay-gobackend/internal/models"
)

const testSecret = "test-secret"

type stubUsers struct {
	users map[string]*models.User
}

func (s *stubUsers) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, apperrors.NotFound("user not found")
	}
	return user, nil
}

func signToken(t *testing.T, subject string) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func newTestAuth(role string) (*AuthMiddleware, *models.User) {
	user := &models.User{
		ID:    primitive.NewObjectID(),
		Email: "user@example.com",
		Role:  role,
	}
	users := &stubUsers{users: map[string]*models.User{user.ID.Hex(): user}}
	return NewAuthMiddleware(users, testSecret), user
}

func TestRequireAuth_CookieToken(t *testing.T) {
	auth, user := newTestAuth(models.RoleCustomer)

	var seen *models.User
	handler := auth.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: signToken(t, user.ID.Hex())})
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, user.Email, seen.Email)
}

func TestRequireAuth_BearerFallback(t *testing.T) {
	auth, user := newTestAuth(models.RoleCustomer)

	handler := auth.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, user.ID.Hex()))
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuth_Rejections(t *testing.T) {
	auth, user := newTestAuth(models.RoleCustomer)

	otherKey := jwt.RegisteredClaims{
		Subject:   user.ID.Hex(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, otherKey).SignedString([]byte("wrong-secret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"no token", ""},
		{"garbage token", "not-a-jwt"},
		{"wrong signing key", forged},
		{"unknown subject", signToken(t, primitive.NewObjectID().Hex())},
	}

	handler := auth.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run for unauthenticated requests")
	})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
			if tt.token != "" {
				req.AddCookie(&http.Cookie{Name: "token", Value: tt.token})
			}
			rec := httptest.NewRecorder()
			handler(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	t.Run("admin passes", func(t *testing.T) {
		auth, admin := newTestAuth(models.RoleAdmin)
		handler := auth.RequireAdmin(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
		req.AddCookie(&http.Cookie{Name: "token", Value: signToken(t, admin.ID.Hex())})
		rec := httptest.NewRecorder()
		handler(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("customer forbidden", func(t *testing.T) {
		auth, customer := newTestAuth(models.RoleCustomer)
		handler := auth.RequireAdmin(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler must not run for non-admin users")
		})

		req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
		req.AddCookie(&http.Cookie{Name: "token", Value: signToken(t, customer.ID.Hex())})
		rec := httptest.NewRecorder()
		handler(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
