package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/parkwebdev/recall/internal/api"
	"github.com/parkwebdev/recall/internal/domain"
)

type contextKey string

const APIKeyContextKey contextKey = "api_key"

type AuthValidator interface {
	ValidateAPIKey(ctx context.Context, token string) (*domain.APIKey, error)
}

func APIKeyAuth(validator AuthValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.Error(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				api.Error(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")

			key, err := validator.ValidateAPIKey(r.Context(), token)
			if err != nil {
				api.Error(w, http.StatusUnauthorized, "invalid api key")
				return
			}

			ctx := context.WithValue(r.Context(), APIKeyContextKey, key)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAPIKey returns the authenticated API key from context, or nil.
func GetAPIKey(ctx context.Context) *domain.APIKey {
	key, _ := ctx.Value(APIKeyContextKey).(*domain.APIKey)
	return key
}

// GetKeyID returns the authenticated API key's ID from context.
func GetKeyID(ctx context.Context) string {
	if key := GetAPIKey(ctx); key != nil {
		return key.ID
	}
	return ""
}
