// Package profile provides the signed-in user's profile and preference routes.
package profile

import (
	"context"
	"net/http"

	apperrors "github.com/swoplabs/swopcredit/internal/platform/errors"
	module "github.com/swoplabs/swopcredit/internal/services/api/module"
	"github.com/swoplabs/swopcredit/internal/services/api/platform/authctx"
	"github.com/swoplabs/swopcredit/internal/services/api/platform/httpx"
	"github.com/swoplabs/swopcredit/internal/services/api/view"
	"github.com/swoplabs/swopcredit/internal/services/account"
	"github.com/swoplabs/swopcredit/internal/storage"
)

const avatarHistoryLimit = 10

// AccountService is the account surface the profile module depends on.
type AccountService interface {
	Profile(ctx context.Context, userID string) (storage.Profile, error)
	UpdatePreferences(ctx context.Context, userID string, input account.PreferencesInput) (storage.Profile, error)
}

// AvatarHistory reads the stored avatar history for the profile response.
type AvatarHistory interface {
	History(ctx context.Context, userID string, limit int) ([]storage.AvatarRecord, error)
}

// Module provides the protected profile routes.
type Module struct {
	accounts AccountService
	avatars  AvatarHistory
}

// New returns a profile module with the given dependencies.
func New(accounts AccountService, avatars AvatarHistory) Module {
	return Module{accounts: accounts, avatars: avatars}
}

// ID returns a stable module identifier.
func (Module) ID() string { return "profile" }

// Mount wires profile route handlers.
func (m Module) Mount() (module.Mount, error) {
	mux := http.NewServeMux()
	mux.HandleFunc(http.MethodGet+" /app/profile", m.handleGet)
	mux.HandleFunc(http.MethodPatch+" /app/profile/preferences", m.handlePreferences)
	return module.Mount{Prefix: "/app/profile/", Handler: mux}, nil
}

func (m Module) handleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := authctx.UserID(r.Context())
	if !ok {
		_ = httpx.WriteJSONError(w, http.StatusUnauthorized, string(apperrors.CodeSessionInvalid), "authentication required")
		return
	}
	profile, err := m.accounts.Profile(httpx.RequestContext(r), userID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	avatars, err := m.avatars.History(httpx.RequestContext(r), userID, avatarHistoryLimit)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"profile":        view.NewProfile(profile),
		"avatar_history": view.NewAvatars(avatars),
	})
}

type preferencesRequest struct {
	Theme    *string `json:"theme"`
	DarkMode *bool   `json:"dark_mode"`
	Username *string `json:"username"`
}

func (m Module) handlePreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := authctx.UserID(r.Context())
	if !ok {
		_ = httpx.WriteJSONError(w, http.StatusUnauthorized, string(apperrors.CodeSessionInvalid), "authentication required")
		return
	}
	var req preferencesRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		_ = httpx.WriteJSONError(w, http.StatusBadRequest, string(apperrors.CodeUnknown), err.Error())
		return
	}
	profile, err := m.accounts.UpdatePreferences(httpx.RequestContext(r), userID, account.PreferencesInput{
		Theme:    req.Theme,
		DarkMode: req.DarkMode,
		Username: req.Username,
	})
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{"profile": view.NewProfile(profile)})
}
