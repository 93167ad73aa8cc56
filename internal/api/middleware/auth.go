package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/obsidian-cms/obsidian/internal/domain"
	"github.com/obsidian-cms/obsidian/internal/service"
)

type contextKey string

const (
	UserKey contextKey = "user"
)

// bearerToken pulls the token out of the Authorization header. Empty when
// the header is absent or not a bearer scheme.
func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// Auth requires a valid bearer token for an active account and stores the
// resolved user in the request context.
func Auth(authService *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				log.Printf("ERROR [middleware.Auth] missing or malformed authorization header")
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			user, err := authService.ResolveOptional(r.Context(), token, true)
			if err != nil {
				log.Printf("ERROR [middleware.Auth] token resolution failed: %v", err)
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth resolves a bearer token when one is presented but lets the
// request through as a guest otherwise. Handlers see a nil user for guests.
func OptionalAuth(authService *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := authService.ResolveOptional(r.Context(), bearerToken(r), false)
			if err != nil {
				// Optional resolution never fails; guard anyway.
				log.Printf("ERROR [middleware.OptionalAuth] token resolution failed: %v", err)
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}
			if user != nil {
				r = r.WithContext(context.WithValue(r.Context(), UserKey, user))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CurrentUser returns the authenticated user, or nil for a guest.
func CurrentUser(ctx context.Context) *domain.User {
	user, _ := ctx.Value(UserKey).(*domain.User)
	return user
}
