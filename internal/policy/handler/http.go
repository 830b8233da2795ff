// Package handler exposes the access gate over HTTP and as route middleware.
package handler

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"mobitech-crm/backend/internal/platform/apperr"
	"mobitech-crm/backend/internal/platform/httpx"
	"mobitech-crm/backend/internal/policy/engine"
	"mobitech-crm/backend/internal/server/middleware"
	sessiondomain "mobitech-crm/backend/internal/session/domain"
	userdomain "mobitech-crm/backend/internal/user/domain"
)

// UserLookup loads the caller's account to read its MFA state.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
}

// Gate evaluates the access policy for the caller's session.
type Gate struct {
	eval  engine.Evaluator
	users UserLookup
	log   *zap.Logger
}

// NewGate returns a gate backed by eval.
func NewGate(eval engine.Evaluator, users UserLookup, log *zap.Logger) *Gate {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gate{eval: eval, users: users, log: log}
}

// Decide evaluates the policy for d on surface.
func (g *Gate) Decide(ctx context.Context, d sessiondomain.Descriptor, surface engine.Surface) (engine.Decision, error) {
	in := engine.Input{Surface: surface, LoggedIn: d.IsLoggedIn, IsAdmin: d.IsAdmin}
	if d.IsLoggedIn {
		u, err := g.users.GetByID(ctx, d.UserID)
		if err != nil {
			return engine.Decision{}, err
		}
		// A session whose user row vanished is treated as logged out.
		if u == nil || !u.Active() {
			in = engine.Input{Surface: surface}
		} else {
			in.MFAEnabled = u.MFAEnabled
		}
	}
	return g.eval.Evaluate(ctx, in)
}

// Check handles GET /auth/gate?surface=dashboard|admin. Missing surface means dashboard.
func (g *Gate) Check(w http.ResponseWriter, r *http.Request) {
	surface := engine.Surface(r.URL.Query().Get("surface"))
	if surface == "" {
		surface = engine.SurfaceDashboard
	}
	if !surface.Valid() {
		httpx.WriteError(w, r, apperr.Validation("surface must be one of: dashboard admin"), g.log)
		return
	}
	dec, err := g.Decide(r.Context(), middleware.DescriptorFrom(r.Context()), surface)
	if err != nil {
		httpx.WriteError(w, r, apperr.Internal(err), g.log)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, dec)
}

// Require guards routes on surface. Denied requests get 401 with the policy's redirect in
// fields.redirect.
func (g *Gate) Require(surface engine.Surface) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			dec, err := g.Decide(r.Context(), middleware.DescriptorFrom(r.Context()), surface)
			if err != nil {
				httpx.WriteError(w, r, apperr.Internal(err), g.log)
				return
			}
			if !dec.Allow {
				httpx.WriteError(w, r, &apperr.Error{
					Kind:    apperr.KindUnauthorized,
					Message: "Access denied",
					Fields:  map[string]string{"redirect": dec.Redirect},
				}, g.log)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
