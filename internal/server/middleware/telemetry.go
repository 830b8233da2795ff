package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"mobitech-crm/backend/internal/telemetry"
)

// httpRequestMetadata is the JSON shape stored in Event.Metadata for http_request events.
type httpRequestMetadata struct {
	Method     string `json:"method"`
	Route      string `json:"route"`
	StatusCode int    `json:"status_code"`
	DurationMs int64  `json:"duration_ms"`
	ClientIP   string `json:"client_ip"`
	RequestID  string `json:"request_id,omitempty"`
}

// Telemetry emits an http_request event after each request. Best-effort: emits run asynchronously
// and failures are only logged. A nil emitter makes the middleware a pass-through.
// skipRoutes holds chi route patterns that are not emitted (e.g. health probes).
func Telemetry(emitter telemetry.EventEmitter, log *zap.Logger, skipRoutes map[string]bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if emitter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := record(w)
			next.ServeHTTP(rw, r)

			route := routePattern(r)
			if skipRoutes[route] {
				return
			}
			d := DescriptorFrom(r.Context())
			event := telemetry.NewEvent(telemetry.EventHTTPRequest, "http_middleware", d.UserID, d.SessionID, httpRequestMetadata{
				Method:     r.Method,
				Route:      route,
				StatusCode: rw.status,
				DurationMs: time.Since(start).Milliseconds(),
				ClientIP:   ClientIP(r),
				RequestID:  RequestIDFrom(r.Context()),
			})
			telemetry.EmitAsync(emitter, log, event)
		})
	}
}
