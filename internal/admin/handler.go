// Package admin serves issuer-operator endpoints guarded by the admin token:
// on-demand sweeps, issuer-initiated revocation and audit lookups.
package admin

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"worktrust/internal/verification"
	id "worktrust/pkg/domain"
	dErrors "worktrust/pkg/domain-errors"
	"worktrust/pkg/platform/audit"
	"worktrust/pkg/platform/httputil"
	"worktrust/pkg/requestcontext"
)

type Sweeper interface {
	ReVerifyExpired(ctx context.Context, now time.Time) (*verification.SweepResult, error)
}

type CredentialAdmin interface {
	Revoke(ctx context.Context, credentialID, reason string) error
	SyncRevocations(ctx context.Context) (int, error)
}

type AuditReader interface {
	ListByUser(ctx context.Context, userID id.UserID) ([]audit.Event, error)
}

type Handler struct {
	sweeper     Sweeper
	credentials CredentialAdmin
	audit       AuditReader
	logger      *slog.Logger
}

func New(sweeper Sweeper, credentials CredentialAdmin, audit AuditReader, logger *slog.Logger) *Handler {
	return &Handler{sweeper: sweeper, credentials: credentials, audit: audit, logger: logger}
}

// Register mounts the admin routes; RequireAdminToken must run first.
func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/sweep", h.HandleSweep)
	r.Post("/admin/revocations/sync", h.HandleSyncRevocations)
	r.Post("/admin/credentials/{credentialID}/revoke", h.HandleRevoke)
	r.Get("/admin/users/{userID}/audit", h.HandleAudit)
}

// HandleSweep handles POST /admin/sweep.
func (h *Handler) HandleSweep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	result, err := h.sweeper.ReVerifyExpired(ctx, requestcontext.Now(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "admin sweep failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleSyncRevocations handles POST /admin/revocations/sync.
func (h *Handler) HandleSyncRevocations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	n, err := h.credentials.SyncRevocations(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"revoked": n})
}

type revokeRequest struct {
	Reason string `json:"reason"`
}

func (r *revokeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	if len(r.Reason) > 500 {
		return dErrors.New(dErrors.CodeValidation, "reason is too long")
	}
	return nil
}

// HandleRevoke handles POST /admin/credentials/{credentialID}/revoke. Unlike
// the holder route it needs no ownership and requires a reason.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	credentialID := chi.URLParam(r, "credentialID")

	req, ok := httputil.DecodeAndPrepare[revokeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.credentials.Revoke(ctx, credentialID, req.Reason); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "credential revoked by issuer",
		"request_id", requestID,
		"credential_id", credentialID,
		"reason", req.Reason,
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleAudit handles GET /admin/users/{userID}/audit.
func (h *Handler) HandleAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	events, err := h.audit.ListByUser(ctx, userID)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load audit events"))
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}
