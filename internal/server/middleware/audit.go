package middleware

import (
	"net/http"

	"mobitech-crm/backend/internal/audit"
)

// Audit records an audit log entry after each successful state-changing request made by a
// logged-in caller. GET, HEAD and OPTIONS requests and responses with status >= 400 are not
// audited, nor are skipRoutes (chi patterns whose handlers write their own entries). Writes are
// best-effort.
func Audit(logger audit.AuditLogger, skipRoutes map[string]bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logger == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := record(w)
			next.ServeHTTP(rw, r)

			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return
			}
			if rw.status >= http.StatusBadRequest {
				return
			}
			d := DescriptorFrom(r.Context())
			if !d.IsLoggedIn {
				return
			}
			route := routePattern(r)
			if skipRoutes[route] {
				return
			}
			ar := audit.ParseRoute(r.Method, route)
			logger.LogEvent(r.Context(), d.UserID, ar.Action, ar.Resource, "")
		})
	}
}
