package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"worktrust/internal/fraud"
	"worktrust/internal/verification"
	id "worktrust/pkg/domain"
	dErrors "worktrust/pkg/domain-errors"
	"worktrust/pkg/platform/httputil"
	"worktrust/pkg/requestcontext"
)

// Service is the fraud heuristics surface used by the handler.
type Service interface {
	VerifyEarnings(ctx context.Context, userID id.UserID, records []*verification.Record, platformTotal *float64) (*fraud.EarningsResult, error)
	VerifyReview(ctx context.Context, review *fraud.Review) (*fraud.ReviewResult, error)
}

// RecordLister loads the caller's records.
type RecordLister interface {
	ListRecords(ctx context.Context, userID id.UserID) ([]*verification.Record, error)
}

type Handler struct {
	service Service
	records RecordLister
	logger  *slog.Logger
}

func New(service Service, records RecordLister, logger *slog.Logger) *Handler {
	return &Handler{service: service, records: records, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/earnings/verify", h.HandleVerifyEarnings)
	r.Post("/reviews/verify", h.HandleVerifyReview)
}

// HandleVerifyEarnings handles POST /earnings/verify.
func (h *Handler) HandleVerifyEarnings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[VerifyEarningsRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	records, err := h.records.ListRecords(ctx, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	records, err = selectRecords(records, req.ParsedRecordIDs())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.VerifyEarnings(ctx, userID, records, req.PlatformTotal)
	if err != nil {
		h.logger.WarnContext(ctx, "earnings verification failed",
			"request_id", requestID,
			"user_id", userID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleVerifyReview handles POST /reviews/verify.
func (h *Handler) HandleVerifyReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[VerifyReviewRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	review := req.Review()
	review.UserID = userID
	result, err := h.service.VerifyReview(ctx, &review)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// selectRecords narrows records to the requested IDs. An ID the user does
// not own is reported as not found.
func selectRecords(records []*verification.Record, ids []id.RecordID) ([]*verification.Record, error) {
	if len(ids) == 0 {
		return records, nil
	}
	byID := make(map[id.RecordID]*verification.Record, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}
	out := make([]*verification.Record, 0, len(ids))
	for _, recordID := range ids {
		r, ok := byID[recordID]
		if !ok {
			return nil, dErrors.New(dErrors.CodeNotFound, "record not found: "+recordID.String())
		}
		out = append(out, r)
	}
	return out, nil
}
