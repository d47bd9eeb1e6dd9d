package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"worktrust/internal/verification"
	id "worktrust/pkg/domain"
	dErrors "worktrust/pkg/domain-errors"
	"worktrust/pkg/platform/httputil"
	"worktrust/pkg/requestcontext"
)

// Service is the slice of verification.Service the handler needs.
type Service interface {
	Verify(ctx context.Context, userID id.UserID, recordID id.RecordID, requested verification.Level) (*verification.Status, error)
	VerifyBatch(ctx context.Context, userID id.UserID, recordIDs []id.RecordID, requested verification.Level) *verification.BatchResult
	History(ctx context.Context, userID id.UserID, recordID id.RecordID) ([]*verification.Status, error)
	ListRecords(ctx context.Context, userID id.UserID) ([]*verification.Record, error)
	ImportRecord(ctx context.Context, userID id.UserID, record *verification.Record) (*verification.Record, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts record verification endpoints. Routes expect RequireAuth
// to run first.
func (h *Handler) Register(r chi.Router) {
	r.Get("/records", h.HandleList)
	r.Post("/records", h.HandleImport)
	r.Post("/records/verify-batch", h.HandleVerifyBatch)
	r.Post("/records/{recordID}/verify", h.HandleVerify)
	r.Get("/records/{recordID}/history", h.HandleHistory)
}

// HandleVerify handles POST /records/{recordID}/verify.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	recordID, err := id.ParseRecordID(chi.URLParam(r, "recordID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[VerifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	status, err := h.service.Verify(ctx, userID, recordID, req.ParsedLevel())
	if err != nil {
		h.logger.WarnContext(ctx, "record verification failed",
			"request_id", requestID,
			"user_id", userID,
			"record_id", recordID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "record verification served",
		"request_id", requestID,
		"record_id", recordID,
		"level", status.Level,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, status)
}

// HandleVerifyBatch handles POST /records/verify-batch. Partial failures
// still return 200 with per-record errors.
func (h *Handler) HandleVerifyBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[VerifyBatchRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result := h.service.VerifyBatch(ctx, userID, req.ParsedRecordIDs(), req.ParsedLevel())
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleHistory handles GET /records/{recordID}/history.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	recordID, err := id.ParseRecordID(chi.URLParam(r, "recordID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	history, err := h.service.History(ctx, userID, recordID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"statuses": history})
}

// HandleList handles GET /records.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	records, err := h.service.ListRecords(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list records",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"records": records})
}

// HandleImport handles POST /records.
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ImportRecordRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record, err := h.service.ImportRecord(ctx, userID, req.Record())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, record)
}

func (h *Handler) requireUser(w http.ResponseWriter, ctx context.Context) (id.UserID, bool) {
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.UserID{}, false
	}
	return userID, true
}
