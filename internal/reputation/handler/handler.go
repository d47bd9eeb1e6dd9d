package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"worktrust/internal/fraud"
	"worktrust/internal/reputation"
	id "worktrust/pkg/domain"
	dErrors "worktrust/pkg/domain-errors"
	"worktrust/pkg/platform/httputil"
	"worktrust/pkg/requestcontext"
)

type Service interface {
	AggregateReviews(ctx context.Context, userID id.UserID) (*reputation.Score, error)
	ImportReview(ctx context.Context, review *fraud.Review) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/users/{userID}/reputation", h.HandleReputation)
	r.Post("/reviews", h.HandleImport)
}

// HandleReputation handles GET /users/{userID}/reputation. Any
// authenticated caller may read a user's reputation.
func (h *Handler) HandleReputation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	score, err := h.service.AggregateReviews(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "reputation aggregation failed",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, score)
}

// HandleImport handles POST /reviews. The review is owned by the caller.
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[ImportReviewRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	review := req.Review(userID)
	if err := h.service.ImportReview(ctx, review); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, review)
}
