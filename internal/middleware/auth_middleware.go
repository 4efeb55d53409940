package middleware

import (
	"errors"
	"net/http"
	"strings"

	"unlock-relay/internal/service"
	"unlock-relay/pkg/response"
)

const (
	AdminKeyHeader  = "X-API-Key"
	DeviceKeyHeader = "X-Device-Key"
)

// AdminAuthMiddleware guards routes that only the admin may call. It accepts
// the admin API key header or an admin bearer token.
func AdminAuthMiddleware(auth *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			if err := auth.AuthorizeAdmin(r.Header.Get(AdminKeyHeader), BearerToken(r)); err != nil {
				if errors.Is(err, service.ErrUnauthorized) {
					response.Unauthorized(w, "Invalid admin API key")
					return
				}
				response.InternalError(w, "Failed to authorize request")
				return
			}

			SetRole(w, "admin")
			next.ServeHTTP(w, r)
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
