package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-jose/go-jose/v4"

	"worktrust/internal/credential"
	"worktrust/internal/verification"
	id "worktrust/pkg/domain"
	dErrors "worktrust/pkg/domain-errors"
	"worktrust/pkg/platform/httputil"
	"worktrust/pkg/requestcontext"
)

type Service interface {
	IssueForUser(ctx context.Context, userID id.UserID, t credential.Type, level verification.Level, ttlDays int) (*credential.VerifiableCredential, error)
	IssueBundle(ctx context.Context, userID id.UserID, types []credential.Type, level verification.Level) (*credential.Bundle, error)
	Verify(ctx context.Context, vc *credential.VerifiableCredential) (*credential.VerifyResult, error)
	Revoke(ctx context.Context, credentialID, reason string) error
	Get(ctx context.Context, credentialID string) (*credential.Record, error)
	ListBySubject(ctx context.Context, subjectID id.UserID) ([]*credential.Record, error)
}

type Handler struct {
	service Service
	keys    jose.JSONWebKeySet
	logger  *slog.Logger
}

// New takes the issuer's published key set; it is served unchanged.
func New(service Service, keys jose.JSONWebKeySet, logger *slog.Logger) *Handler {
	return &Handler{service: service, keys: keys, logger: logger}
}

// RegisterPublic mounts the endpoints relying parties call without a token.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/credentials/verify", h.HandleVerify)
	r.Get("/.well-known/jwks.json", h.HandleJWKS)
}

// Register mounts the holder endpoints; RequireAuth must run first.
func (h *Handler) Register(r chi.Router) {
	r.Get("/credentials", h.HandleList)
	r.Post("/credentials", h.HandleIssue)
	r.Post("/credentials/bundle", h.HandleBundle)
	r.Get("/credentials/{credentialID}", h.HandleGet)
	r.Post("/credentials/{credentialID}/revoke", h.HandleRevoke)
}

// HandleIssue handles POST /credentials.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, ok := requireUser(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[IssueRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	vc, err := h.service.IssueForUser(ctx, userID, req.ParsedType(), req.ParsedLevel(), req.TTLDays)
	if err != nil {
		h.logger.WarnContext(ctx, "credential issuance failed",
			"request_id", requestID,
			"user_id", userID,
			"type", req.ParsedType(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, vc)
}

// HandleBundle handles POST /credentials/bundle.
func (h *Handler) HandleBundle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, ok := requireUser(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[BundleRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	bundle, err := h.service.IssueBundle(ctx, userID, req.ParsedTypes(), req.ParsedLevel())
	if err != nil {
		h.logger.WarnContext(ctx, "bundle issuance failed",
			"request_id", requestID,
			"user_id", userID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, bundle)
}

// HandleVerify handles POST /credentials/verify. An invalid credential is
// still a 200 response; the body carries the reasons.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[VerifyRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	result, err := h.service.Verify(ctx, req.Credential)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleRevoke handles POST /credentials/{credentialID}/revoke. Only the
// subject may revoke.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, ok := requireUser(w, ctx)
	if !ok {
		return
	}
	credentialID := chi.URLParam(r, "credentialID")
	if _, ok := h.loadOwned(w, ctx, userID, credentialID); !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RevokeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.service.Revoke(ctx, credentialID, req.Reason); err != nil {
		h.logger.ErrorContext(ctx, "credential revocation failed",
			"request_id", requestID,
			"credential_id", credentialID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGet handles GET /credentials/{credentialID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requireUser(w, ctx)
	if !ok {
		return
	}
	record, ok := h.loadOwned(w, ctx, userID, chi.URLParam(r, "credentialID"))
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

// HandleList handles GET /credentials.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requireUser(w, ctx)
	if !ok {
		return
	}
	records, err := h.service.ListBySubject(ctx, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"credentials": records})
}

// HandleJWKS handles GET /.well-known/jwks.json.
func (h *Handler) HandleJWKS(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=300")
	httputil.WriteJSON(w, http.StatusOK, h.keys)
}

func (h *Handler) loadOwned(w http.ResponseWriter, ctx context.Context, userID id.UserID, credentialID string) (*credential.Record, bool) {
	record, err := h.service.Get(ctx, credentialID)
	if err != nil {
		httputil.WriteError(w, err)
		return nil, false
	}
	if record.SubjectID != userID {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "credential belongs to another user"))
		return nil, false
	}
	return record, true
}

func requireUser(w http.ResponseWriter, ctx context.Context) (id.UserID, bool) {
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.UserID{}, false
	}
	return userID, true
}
