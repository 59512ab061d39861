package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/atinyakov/FieldInventory/internal/auth"
	"github.com/atinyakov/FieldInventory/internal/models"
)

// TokenValidator resolves a bearer token to a live identity.
type TokenValidator interface {
	Validate(ctx context.Context, token string, now time.Time) (*models.User, error)
}

// Authenticate resolves the Authorization bearer token and stores the
// identity in the request context. Requests without a valid token, or
// whose identity is gone or inactive, are rejected through onErr.
func Authenticate(v TokenValidator, onErr ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, err := v.Validate(r.Context(), bearerToken(r), time.Now())
			if err != nil {
				onErr(w, r, err)
				return
			}
			noteActor(r.Context(), u.Username)
			next.ServeHTTP(w, r.WithContext(auth.ContextWithUser(r.Context(), u)))
		})
	}
}

// RequireRoles admits only identities whose role is in allowed. It must run
// after Authenticate.
func RequireRoles(onErr ErrorWriter, allowed ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, _ := auth.UserFromContext(r.Context())
			if _, err := auth.Require(u, allowed...); err != nil {
				onErr(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
