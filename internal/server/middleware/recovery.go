package middleware

import (
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"mobitech-crm/backend/internal/logger"
	"mobitech-crm/backend/internal/platform/apperr"
	"mobitech-crm/backend/internal/platform/httpx"
)

// Recovery recovers from panics and returns a 500 error instead of crashing.
func Recovery(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.FromContext(r.Context(), log).Error("panic recovered",
					zap.Any("panic", rec),
					zap.ByteString("stack", debug.Stack()),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
				)
				httpx.WriteJSON(w, http.StatusInternalServerError, httpx.ErrorResponse{
					Success: false,
					Error:   "an internal error occurred",
					Code:    apperr.KindInternal,
				})
			}()

			next.ServeHTTP(w, r)
		})
	}
}
