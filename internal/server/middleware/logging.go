package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"mobitech-crm/backend/internal/logger"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestLogging assigns a request id (reusing the inbound X-Request-ID when present), stores the
// client IP and a request-scoped logger in the context, and logs every request when it completes.
func RequestLogging(base *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.New().String()
			}
			w.Header().Set(RequestIDHeader, requestID)

			ip := ClientIP(r)
			reqLog := base.With(zap.String("request_id", requestID))
			ctx := context.WithValue(r.Context(), requestIDKey, requestID)
			ctx = WithClientIP(ctx, ip)
			ctx = logger.NewContext(ctx, reqLog)

			rw := record(w)
			next.ServeHTTP(rw, r.WithContext(ctx))

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("route", routePattern(r)),
				zap.Int("status", rw.status),
				zap.Duration("duration", time.Since(start)),
				zap.Int("bytes", rw.bytes),
				zap.String("client_ip", ip),
				zap.String("user_agent", r.UserAgent()),
			}
			if rw.status >= http.StatusInternalServerError {
				reqLog.Error("http request", fields...)
				return
			}
			reqLog.Info("http request", fields...)
		})
	}
}

// routePattern returns the matched chi route pattern, or "unknown" before routing or on a miss.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unknown"
}
