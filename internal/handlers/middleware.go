package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dukapay/dukapay-gobackend/internal/models"
)

type contextKey string

const userContextKey contextKey = "user"

// UserGetter resolves the token subject to a user. *services.UserService
// satisfies it.
type UserGetter interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// AuthMiddleware authenticates requests from the session cookie (or a
// Bearer header for non-browser clients) and loads the user so downstream
// handlers see the current role, not the role at token-issue time.
type AuthMiddleware struct {
	users  UserGetter
	secret []byte
}

func NewAuthMiddleware(users UserGetter, secret string) *AuthMiddleware {
	return &AuthMiddleware{users: users, secret: []byte(secret)}
}

func (m *AuthMiddleware) tokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie("token"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

func (m *AuthMiddleware) authenticate(r *http.Request) (*models.User, bool) {
	tokenString := m.tokenFromRequest(r)
	if tokenString == "" {
		return nil, false
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return nil, false
	}

	user, err := m.users.GetUser(r.Context(), claims.Subject)
	if err != nil {
		return nil, false
	}
	return user, true
}

// RequireAuth rejects unauthenticated requests with 401.
func (m *AuthMiddleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := m.authenticate(r)
		if !ok {
			respondError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, user)
		next(w, r.WithContext(ctx))
	}
}

// RequireAdmin rejects non-admin users with 403.
func (m *AuthMiddleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		user, _ := UserFromContext(r.Context())
		if user.Role != models.RoleAdmin {
			respondError(w, http.StatusForbidden, "admin access required")
			return
		}
		next(w, r)
	})
}

// UserFromContext returns the authenticated user set by RequireAuth.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userContextKey).(*models.User)
	return user, ok
}
