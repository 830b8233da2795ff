// Package handler exposes QC records over HTTP. Routes sit behind the dashboard access gate.
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"mobitech-crm/backend/internal/platform/apperr"
	"mobitech-crm/backend/internal/platform/httpx"
	"mobitech-crm/backend/internal/platform/rbac"
	"mobitech-crm/backend/internal/qc/domain"
	"mobitech-crm/backend/internal/server/middleware"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Records is the QC record store.
type Records interface {
	Create(ctx context.Context, rec *domain.Record) error
	GetByID(ctx context.Context, id string) (*domain.Record, error)
	List(ctx context.Context, imei string, limit, offset int) ([]*domain.Record, int64, error)
}

type Handler struct {
	records Records
	log     *zap.Logger
	now     func() time.Time
}

func NewHandler(records Records, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{records: records, log: log, now: time.Now}
}

type CreateRequest struct {
	IMEI    string                   `json:"imei" validate:"required,len=15,numeric"`
	Brand   string                   `json:"brand" validate:"required,max=100"`
	Model   string                   `json:"model" validate:"required,max=100"`
	Results map[string]domain.Result `json:"results"`
	Grade   string                   `json:"grade" validate:"required,oneof=A B C D"`
	Notes   string                   `json:"notes" validate:"max=2000"`
}

type RecordView struct {
	ID        string                   `json:"id"`
	IMEI      string                   `json:"imei"`
	Brand     string                   `json:"brand"`
	Model     string                   `json:"model"`
	TestedBy  string                   `json:"testedBy"`
	Results   map[string]domain.Result `json:"results"`
	Grade     domain.Grade             `json:"grade"`
	Notes     string                   `json:"notes"`
	Passed    bool                     `json:"passed"`
	CreatedAt time.Time                `json:"createdAt"`
}

type ListResponse struct {
	Records    []RecordView     `json:"records"`
	Pagination httpx.Pagination `json:"pagination"`
}

func toView(rec *domain.Record) RecordView {
	results := rec.Results
	if results == nil {
		results = map[string]domain.Result{}
	}
	return RecordView{
		ID:        rec.ID,
		IMEI:      rec.IMEI,
		Brand:     rec.Brand,
		Model:     rec.Model,
		TestedBy:  rec.TestedBy,
		Results:   results,
		Grade:     rec.Grade,
		Notes:     rec.Notes,
		Passed:    rec.Passed(),
		CreatedAt: rec.CreatedAt,
	}
}

// Create handles POST /qc/records. The caller is recorded as the tester.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := rbac.RequireUser(middleware.DescriptorFrom(r.Context()))
	if err != nil {
		httpx.WriteError(w, r, err, h.log)
		return
	}
	var req CreateRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err, h.log)
		return
	}
	rec := &domain.Record{
		ID:        uuid.New().String(),
		IMEI:      req.IMEI,
		Brand:     req.Brand,
		Model:     req.Model,
		TestedBy:  userID,
		Results:   req.Results,
		Grade:     domain.Grade(req.Grade),
		Notes:     req.Notes,
		CreatedAt: h.now().UTC(),
	}
	if err := rec.Validate(); err != nil {
		httpx.WriteError(w, r, mapError(err), h.log)
		return
	}
	if err := h.records.Create(r.Context(), rec); err != nil {
		httpx.WriteError(w, r, apperr.Internal(err), h.log)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toView(rec))
}

// Get handles GET /qc/records/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.records.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, apperr.Internal(err), h.log)
		return
	}
	if rec == nil {
		httpx.WriteError(w, r, apperr.NotFound("QC record not found"), h.log)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toView(rec))
}

// List handles GET /qc/records?imei&page&limit.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, err := httpx.ParsePage(r, DefaultListLimit, MaxListLimit)
	if err != nil {
		httpx.WriteError(w, r, err, h.log)
		return
	}
	imei := r.URL.Query().Get("imei")
	if imei != "" && !domain.ValidIMEI(imei) {
		httpx.WriteError(w, r, mapError(domain.ErrInvalidIMEI), h.log)
		return
	}
	recs, total, err := h.records.List(r.Context(), imei, page.Limit, page.Offset())
	if err != nil {
		httpx.WriteError(w, r, apperr.Internal(err), h.log)
		return
	}
	out := make([]RecordView, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toView(rec))
	}
	httpx.WriteJSON(w, http.StatusOK, ListResponse{Records: out, Pagination: httpx.NewPagination(page, total)})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidIMEI),
		errors.Is(err, domain.ErrInvalidGrade),
		errors.Is(err, domain.ErrInvalidResult),
		errors.Is(err, domain.ErrMissingDevice):
		return apperr.Validation(err.Error())
	default:
		return apperr.Internal(err)
	}
}
