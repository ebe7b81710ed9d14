// Package clientid identifies the browser context of a request with a
// random ID carried in a cookie, and provides it through the context.
package clientid

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/postboard/internal/config"
)

// Using an unexported type prevents key collisions from other packages.
type contextKey string

// ClientIDKey is the context key used to store the client ID.
const ClientIDKey contextKey = "client-id"

// Middleware reads the client ID from the cookie described by the template.
// A missing or malformed cookie is replaced by a fresh ID, which is set on
// the response.
func Middleware(template config.CookieTemplate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := fromCookie(r, template.Name)
			if !ok {
				id = uuid.NewString()
				http.SetCookie(w, template.ToCookie(id))
			}

			ctx := context.WithValue(r.Context(), ClientIDKey, id)
			ctx = slogctx.With(ctx, "client_id", id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext retrieves the client ID injected by the middleware.
func FromContext(ctx context.Context) (string, error) {
	id, ok := ctx.Value(ClientIDKey).(string)
	if !ok || id == "" {
		return "", errors.New("client id not found in context")
	}

	return id, nil
}

func fromCookie(r *http.Request, name string) (string, bool) {
	cookie, err := r.Cookie(name)
	if err != nil {
		return "", false
	}

	if _, err := uuid.Parse(cookie.Value); err != nil {
		return "", false
	}

	return cookie.Value, true
}
