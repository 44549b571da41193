// Package auth provides public signup, login, and logout routes.
package auth

import (
	"context"
	"net/http"
	"strings"

	apperrors "github.com/swoplabs/swopcredit/internal/platform/errors"
	module "github.com/swoplabs/swopcredit/internal/services/api/module"
	"github.com/swoplabs/swopcredit/internal/services/api/platform/httpx"
	"github.com/swoplabs/swopcredit/internal/services/api/platform/sessioncookie"
	"github.com/swoplabs/swopcredit/internal/services/api/view"
	"github.com/swoplabs/swopcredit/internal/services/account"
	"github.com/swoplabs/swopcredit/internal/storage"
)

// AccountService is the account surface the auth module depends on.
type AccountService interface {
	SignUp(ctx context.Context, input account.SignUpInput) (storage.Profile, error)
	Login(ctx context.Context, email string, password string) (storage.Profile, error)
}

// SessionIssuer mints session tokens for authenticated users.
type SessionIssuer interface {
	Issue(userID string) (string, error)
}

// Module provides the public authentication routes.
type Module struct {
	accounts AccountService
	sessions SessionIssuer
}

// New returns an auth module with the given dependencies.
func New(accounts AccountService, sessions SessionIssuer) Module {
	return Module{accounts: accounts, sessions: sessions}
}

// ID returns a stable module identifier.
func (Module) ID() string { return "auth" }

// Mount wires authentication route handlers.
func (m Module) Mount() (module.Mount, error) {
	mux := http.NewServeMux()
	mux.HandleFunc(http.MethodPost+" /auth/signup", m.handleSignup)
	mux.HandleFunc(http.MethodPost+" /auth/login", m.handleLogin)
	mux.HandleFunc(http.MethodPost+" /auth/logout", m.handleLogout)
	return module.Mount{Prefix: "/auth/", Handler: mux}, nil
}

type signupRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (m Module) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		_ = httpx.WriteJSONError(w, http.StatusBadRequest, string(apperrors.CodeUnknown), err.Error())
		return
	}
	profile, err := m.accounts.SignUp(httpx.RequestContext(r), account.SignUpInput{
		Email:    strings.TrimSpace(req.Email),
		Username: strings.TrimSpace(req.Username),
		Password: req.Password,
	})
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	m.startSession(w, r, profile, http.StatusCreated)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (m Module) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		_ = httpx.WriteJSONError(w, http.StatusBadRequest, string(apperrors.CodeUnknown), err.Error())
		return
	}
	profile, err := m.accounts.Login(httpx.RequestContext(r), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	m.startSession(w, r, profile, http.StatusOK)
}

func (m Module) handleLogout(w http.ResponseWriter, r *http.Request) {
	sessioncookie.Clear(w, r)
	w.WriteHeader(http.StatusNoContent)
}

func (m Module) startSession(w http.ResponseWriter, r *http.Request, profile storage.Profile, status int) {
	token, err := m.sessions.Issue(profile.ID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	sessioncookie.Write(w, r, token)
	_ = httpx.WriteJSON(w, status, map[string]any{"profile": view.NewProfile(profile)})
}
