package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	goShare "github.com/MrEthical07/goShare"
)

// Authenticator resolves a bearer token to the caller. *goShare.Engine
// satisfies it.
type Authenticator interface {
	AuthenticateRequest(ctx context.Context, bearerToken string) (*goShare.Identity, error)
}

type identityContextKey struct{}

// IdentityFromContext returns the caller stored by RequireAuth.
func IdentityFromContext(ctx context.Context) (*goShare.Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(*goShare.Identity)
	return id, ok && id != nil
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *goShare.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// RequireAuth rejects requests without a valid "Authorization: Bearer"
// access token with 401 and stores the caller in the request context.
func RequireAuth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth == nil {
				writeMessage(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeMessage(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			id, err := auth.AuthenticateRequest(r.Context(), token)
			if err != nil {
				status := http.StatusUnauthorized
				if errors.Is(err, goShare.ErrInternal) || errors.Is(err, goShare.ErrEngineNotReady) {
					status = http.StatusInternalServerError
				}
				writeMessage(w, status, goShare.Message(err))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireAdmin passes only callers with the admin role. It must run after
// RequireAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if !ok || !id.IsAdmin() {
			writeMessage(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
