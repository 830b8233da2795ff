// Package httpx holds the JSON request/response helpers used by every HTTP handler.
package httpx

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"mobitech-crm/backend/internal/logger"
	"mobitech-crm/backend/internal/platform/apperr"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Code    apperr.Kind       `json:"code"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// WriteJSON writes v as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err onto the error taxonomy and writes the structured body.
// Internal and delivery faults are logged with their cause; clients only see the generic message.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *zap.Logger) {
	ae := apperr.From(err)
	status := ae.Status()
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context(), fallback).Error("request failed",
			zap.String("code", string(ae.Kind)),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(ae.Err),
		)
	}
	WriteJSON(w, status, ErrorResponse{
		Success: false,
		Error:   ae.Message,
		Code:    ae.Kind,
		Fields:  ae.Fields,
	})
}
