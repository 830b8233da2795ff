package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"mobitech-crm/backend/internal/platform/httpx"
	"mobitech-crm/backend/internal/platform/rbac"
	"mobitech-crm/backend/internal/session/domain"
	sessionsvc "mobitech-crm/backend/internal/session/service"
)

// SessionReader decodes a session token into a descriptor reconciled against the store.
type SessionReader interface {
	Read(ctx context.Context, token string) (sessionsvc.ReadResult, error)
}

// Session decodes the session cookie on every request and stores the descriptor in the context.
// A cookie that no longer maps to a live session is cleared and the request continues logged out.
func Session(reader SessionReader, cookies CookieConfig, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := reader.Read(r.Context(), cookies.Token(r))
			if err != nil {
				httpx.WriteError(w, r, err, log)
				return
			}
			if res.Invalidated {
				cookies.Clear(w)
			}
			next.ServeHTTP(w, r.WithContext(WithDescriptor(r.Context(), res.Descriptor)))
		})
	}
}

// RequireSession rejects requests without a logged-in session with 401.
func RequireSession(log *zap.Logger) func(http.Handler) http.Handler {
	return requireDescriptor(rbac.RequireUser, log)
}

// RequireAdmin rejects requests from anyone but a logged-in admin with 401.
func RequireAdmin(log *zap.Logger) func(http.Handler) http.Handler {
	return requireDescriptor(rbac.RequireAdmin, log)
}

func requireDescriptor(check func(d domain.Descriptor) (string, error), log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := check(DescriptorFrom(r.Context())); err != nil {
				httpx.WriteError(w, r, err, log)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
