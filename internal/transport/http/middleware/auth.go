package middleware

import (
	"context"
	"log/slog"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/presswire-api/internal/application/publish"
	"github.com/presswire-api/internal/domain"
)

type contextKey string

const identityKey contextKey = "identity"

// Authorizer resolves a publish bearer to an identity and spends it once
// the publish has gone through.
type Authorizer interface {
	Authorize(ctx context.Context, bearer string) (*domain.Identity, error)
	Consume(ctx context.Context, bearer string) error
}

// AdminAuthenticator checks the operator secret.
type AdminAuthenticator interface {
	Authenticate(secret string) error
}

// Publish admits requests whose bearer passes the publish gate and injects
// the resolved identity into context. The bearer is consumed only after the
// handler answers with a 2xx status.
func Publish(gate Authorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bearer := publish.BearerFromHeader(r.Header.Get("Authorization"))
			id, err := gate.Authorize(r.Context(), bearer)
			if err != nil {
				WriteError(w, r, err)
				return
			}
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(WithIdentity(r.Context(), id)))

			if status := ww.Status(); status != 0 && (status < 200 || status > 299) {
				return
			}
			if err := gate.Consume(context.WithoutCancel(r.Context()), bearer); err != nil {
				slog.Warn("failed to consume publish token", "domain", id.Domain, "err", err)
			}
		})
	}
}

// RequireAdmin admits requests bearing the operator secret.
func RequireAdmin(a AdminAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := a.Authenticate(publish.BearerFromHeader(r.Header.Get("Authorization"))); err != nil {
				WriteError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id *domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext extracts the publish identity from the request context.
func IdentityFromContext(ctx context.Context) (*domain.Identity, bool) {
	id, ok := ctx.Value(identityKey).(*domain.Identity)
	return id, ok && id != nil
}
