// Package server builds the HTTP router and mounts every area's handlers under the API prefix.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"mobitech-crm/backend/internal/audit"
	audithandler "mobitech-crm/backend/internal/audit/handler"
	devotphandler "mobitech-crm/backend/internal/devotp/handler"
	healthhandler "mobitech-crm/backend/internal/health/handler"
	identityhandler "mobitech-crm/backend/internal/identity/handler"
	mfahandler "mobitech-crm/backend/internal/mfa/handler"
	otphandler "mobitech-crm/backend/internal/otp/handler"
	"mobitech-crm/backend/internal/policy/engine"
	policyhandler "mobitech-crm/backend/internal/policy/handler"
	qchandler "mobitech-crm/backend/internal/qc/handler"
	"mobitech-crm/backend/internal/server/middleware"
	sessionhandler "mobitech-crm/backend/internal/session/handler"
	"mobitech-crm/backend/internal/telemetry"
	userhandler "mobitech-crm/backend/internal/user/handler"
)

// Deps holds everything the router mounts. Handlers that are nil are not mounted.
type Deps struct {
	// APIPrefix is the versioned prefix for API routes (e.g. /api/v1).
	APIPrefix   string
	ServiceName string
	Log         *zap.Logger

	// Sessions decodes the session cookie on every API request.
	Sessions middleware.SessionReader
	Cookies  middleware.CookieConfig
	// Events receives one http_request event per API request. May be nil.
	Events telemetry.EventEmitter
	// Audit records state-changing admin requests. May be nil.
	Audit audit.AuditLogger
	// Gate guards the dashboard surface and serves /auth/gate.
	Gate *policyhandler.Gate

	OTP       *otphandler.Handler
	Session   *sessionhandler.Handler
	Auth      *identityhandler.Handler
	MFA       *mfahandler.Handler
	Users     *userhandler.Handler
	QC        *qchandler.Handler
	AuditLogs *audithandler.Handler
	Health    *healthhandler.Handler
	// DevOTP is set only when dev OTP mode is enabled outside production.
	DevOTP *devotphandler.Handler
}

// Probe routes are served outside the API prefix and never emit telemetry.
var probeRoutes = map[string]bool{
	"/healthz": true,
	"/readyz":  true,
	"/metrics": true,
}

// NewRouter returns the application's HTTP handler.
//
// Route → handler mapping (under APIPrefix):
//   - /otp, /registration-otp → internal/otp/handler
//   - /auth/session, /admin/sessions → internal/session/handler
//   - /auth/signup, /auth/signin, /admin/users/{id}/terminate → internal/identity/handler
//   - /auth/gate → internal/policy/handler
//   - /mfa → internal/mfa/handler
//   - /users/me, /admin/users/{id} → internal/user/handler
//   - /qc/records → internal/qc/handler
//   - /admin/audit-logs → internal/audit/handler
//   - /dev/otp → internal/devotp/handler
func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestLogging(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Tracing(d.ServiceName))
	r.Use(middleware.PrometheusMetrics(d.ServiceName))

	if d.Health != nil {
		r.Get("/healthz", d.Health.Live)
		r.Get("/readyz", d.Health.Ready)
	}
	r.Handle("/metrics", promhttp.Handler())

	r.Route(d.APIPrefix, func(r chi.Router) {
		r.Use(middleware.Session(d.Sessions, d.Cookies, log))
		r.Use(middleware.Telemetry(d.Events, log, probeRoutes))

		mountPublic(r, d)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession(log))
			mountSession(r, d)
		})

		if d.Gate != nil && d.QC != nil {
			r.Route("/qc/records", func(r chi.Router) {
				r.Use(d.Gate.Require(engine.SurfaceDashboard))
				r.Post("/", d.QC.Create)
				r.Get("/", d.QC.List)
				r.Get("/{id}", d.QC.Get)
			})
		}

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin(log))
			if d.Audit != nil {
				// Terminate is audited by the auth service with the target user in metadata.
				r.Use(middleware.Audit(d.Audit, map[string]bool{
					d.APIPrefix + "/admin/users/{id}/terminate": true,
				}))
			}
			mountAdmin(r, d)
		})
	})
	return r
}

func mountPublic(r chi.Router, d Deps) {
	if d.OTP != nil {
		r.Post("/otp/send", d.OTP.Send)
		r.Post("/otp/verify", d.OTP.Verify)
		r.Post("/registration-otp/send", d.OTP.SendRegistration)
	}
	if d.Auth != nil {
		r.Post("/auth/signup", d.Auth.Signup)
		r.Post("/auth/signin", d.Auth.SignIn)
	}
	if d.Session != nil {
		r.Get("/auth/session", d.Session.Get)
		r.Delete("/auth/session", d.Session.Delete)
	}
	if d.Gate != nil {
		r.Get("/auth/gate", d.Gate.Check)
	}
	if d.DevOTP != nil {
		r.Get("/dev/otp", d.DevOTP.GetOTP)
	}
}

func mountSession(r chi.Router, d Deps) {
	if d.MFA != nil {
		r.Get("/mfa/setup", d.MFA.GetSetup)
		r.Post("/mfa/setup", d.MFA.PostSetup)
		r.Post("/mfa/verify", d.MFA.Verify)
		r.Get("/mfa/check", d.MFA.Check)
	}
	if d.Users != nil {
		r.Get("/users/me", d.Users.Me)
	}
}

func mountAdmin(r chi.Router, d Deps) {
	if d.Session != nil {
		r.Get("/sessions/list", d.Session.List)
		r.Post("/sessions/revoke", d.Session.Revoke)
	}
	if d.Auth != nil {
		r.Post("/users/{id}/terminate", d.Auth.Terminate)
	}
	if d.Users != nil {
		r.Get("/users/{id}", d.Users.Get)
	}
	if d.AuditLogs != nil {
		r.Get("/audit-logs", d.AuditLogs.List)
	}
}
