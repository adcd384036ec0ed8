package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/CrowderSoup/vieira-boards/services"
)

type contextKey string

const emailContextKey contextKey = "email"

type AuthMiddleware struct {
	authService *services.AuthService
}

func NewAuthMiddleware(authService *services.AuthService) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
	}
}

// bearerToken extracts the token from the Authorization header. Browsers
// cannot set headers on a WebSocket handshake, so the token query parameter
// is accepted as well.
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		token := r.URL.Query().Get("token")
		return token, token != ""
	}
	authParts := strings.Split(authHeader, " ")
	if len(authParts) != 2 || authParts[0] != "Bearer" {
		return "", false
	}
	return authParts[1], true
}

func (m *AuthMiddleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, ok := bearerToken(r)
		if !ok {
			http.Error(w, "missing or invalid authorization", http.StatusUnauthorized)
			return
		}

		email, err := m.authService.VerifyJWT(tokenString)
		if err != nil {
			http.Error(w, "invalid token: "+err.Error(), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), emailContextKey, email)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func emailFrom(r *http.Request) string {
	email, _ := r.Context().Value(emailContextKey).(string)
	return email
}
