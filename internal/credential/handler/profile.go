package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"worktrust/internal/credential"
	id "worktrust/pkg/domain"
	dErrors "worktrust/pkg/domain-errors"
	"worktrust/pkg/platform/httputil"
	"worktrust/pkg/platform/sentinel"
	"worktrust/pkg/requestcontext"
)

const maxProfileSkills = 50

type ProfileStore interface {
	FindByUser(ctx context.Context, userID id.UserID) (*credential.Profile, error)
	Save(ctx context.Context, profile *credential.Profile) error
}

// ProfileHandler serves the self-described profile the completeness score
// and skills credential read from.
type ProfileHandler struct {
	profiles ProfileStore
	logger   *slog.Logger
}

func NewProfileHandler(profiles ProfileStore, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger}
}

func (h *ProfileHandler) Register(r chi.Router) {
	r.Get("/profile", h.HandleGet)
	r.Put("/profile", h.HandlePut)
}

func (h *ProfileHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requireUser(w, ctx)
	if !ok {
		return
	}
	profile, err := h.profiles.FindByUser(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "profile not found"))
		return
	}
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

func (h *ProfileHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	userID, ok := requireUser(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ProfileRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	profile := req.Profile(userID)
	if err := h.profiles.Save(ctx, profile); err != nil {
		h.logger.ErrorContext(ctx, "failed to save profile",
			"request_id", requestID,
			"user_id", userID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save profile"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

// ProfileRequest is the body of PUT /profile; it replaces the whole profile.
type ProfileRequest struct {
	Name     string   `json:"name"`
	Headline string   `json:"headline"`
	Bio      string   `json:"bio"`
	PhotoURL string   `json:"photo_url"`
	Location string   `json:"location"`
	Skills   []string `json:"skills"`

	skills []string
}

func (r *ProfileRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if strings.TrimSpace(r.Name) == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if len(r.Bio) > 5000 {
		return dErrors.New(dErrors.CodeValidation, "bio is too long")
	}
	if len(r.Skills) > maxProfileSkills {
		return dErrors.New(dErrors.CodeValidation, "too many skills")
	}
	seen := make(map[string]struct{}, len(r.Skills))
	r.skills = make([]string, 0, len(r.Skills))
	for _, skill := range r.Skills {
		skill = strings.TrimSpace(skill)
		key := strings.ToLower(skill)
		if skill == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		r.skills = append(r.skills, skill)
	}
	return nil
}

func (r *ProfileRequest) Profile(userID id.UserID) *credential.Profile {
	return &credential.Profile{
		UserID:   userID,
		Name:     strings.TrimSpace(r.Name),
		Headline: strings.TrimSpace(r.Headline),
		Bio:      strings.TrimSpace(r.Bio),
		PhotoURL: strings.TrimSpace(r.PhotoURL),
		Location: strings.TrimSpace(r.Location),
		Skills:   r.skills,
	}
}
