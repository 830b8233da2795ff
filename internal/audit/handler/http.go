// Package handler exposes the audit trail to admins over HTTP.
package handler

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"mobitech-crm/backend/internal/audit/domain"
	"mobitech-crm/backend/internal/audit/repository"
	"mobitech-crm/backend/internal/platform/apperr"
	"mobitech-crm/backend/internal/platform/httpx"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Lister reads audit log pages.
type Lister interface {
	List(ctx context.Context, f repository.Filter, limit, offset int) ([]*domain.AuditLog, int64, error)
}

// Handler serves GET /admin/audit-logs. Admin access is enforced by the router.
type Handler struct {
	logs Lister
	log  *zap.Logger
}

// NewHandler returns an audit handler.
func NewHandler(logs Lister, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{logs: logs, log: log}
}

type LogView struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId,omitempty"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	IP        string    `json:"ip"`
	Metadata  string    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type ListResponse struct {
	Logs       []LogView        `json:"logs"`
	Pagination httpx.Pagination `json:"pagination"`
}

// List handles GET /admin/audit-logs?userId&action&page&limit.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, err := httpx.ParsePage(r, defaultListLimit, maxListLimit)
	if err != nil {
		httpx.WriteError(w, r, err, h.log)
		return
	}
	q := r.URL.Query()
	f := repository.Filter{UserID: q.Get("userId"), Action: q.Get("action")}
	logs, total, err := h.logs.List(r.Context(), f, page.Limit, page.Offset())
	if err != nil {
		httpx.WriteError(w, r, apperr.Internal(err), h.log)
		return
	}
	out := make([]LogView, 0, len(logs))
	for _, a := range logs {
		out = append(out, LogView{
			ID:        a.ID,
			UserID:    a.UserID,
			Action:    a.Action,
			Resource:  a.Resource,
			IP:        a.IP,
			Metadata:  a.Metadata,
			CreatedAt: a.CreatedAt,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, ListResponse{Logs: out, Pagination: httpx.NewPagination(page, total)})
}
