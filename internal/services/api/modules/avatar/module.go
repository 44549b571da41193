// Package avatar provides the avatar capture routes: the embed message
// bridge, manual entry, confirmation, and history.
package avatar

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/swoplabs/swopcredit/internal/platform/errors"
	module "github.com/swoplabs/swopcredit/internal/services/api/module"
	"github.com/swoplabs/swopcredit/internal/services/api/platform/authctx"
	"github.com/swoplabs/swopcredit/internal/services/api/platform/httpx"
	"github.com/swoplabs/swopcredit/internal/services/api/view"
	"github.com/swoplabs/swopcredit/internal/services/avatar/bridge"
	"github.com/swoplabs/swopcredit/internal/services/avatar/capture"
	"github.com/swoplabs/swopcredit/internal/storage"
)

const maxCallbackBytes = 64 << 10

// AvatarService is the capture surface these modules depend on.
type AvatarService interface {
	HandleEmbedMessage(ctx context.Context, userID string, payload []byte) (capture.State, bridge.Message, error)
	SubmitManualURL(userID string, url string) (capture.State, error)
	Confirm(ctx context.Context, userID string) (storage.AvatarRecord, error)
	Reset(userID string) capture.State
	SessionState(userID string) capture.State
	History(ctx context.Context, userID string, limit int) ([]storage.AvatarRecord, error)
}

// Module provides the protected avatar capture routes.
type Module struct {
	avatars AvatarService
}

// New returns an avatar module with the given dependency.
func New(avatars AvatarService) Module {
	return Module{avatars: avatars}
}

// ID returns a stable module identifier.
func (Module) ID() string { return "avatar" }

// Mount wires avatar route handlers.
func (m Module) Mount() (module.Mount, error) {
	mux := http.NewServeMux()
	mux.HandleFunc(http.MethodPost+" /app/avatar/message", m.handleMessage)
	mux.HandleFunc(http.MethodPost+" /app/avatar/manual", m.handleManual)
	mux.HandleFunc(http.MethodPost+" /app/avatar/confirm", m.handleConfirm)
	mux.HandleFunc(http.MethodPost+" /app/avatar/reset", m.handleReset)
	mux.HandleFunc(http.MethodGet+" /app/avatar/state", m.handleState)
	mux.HandleFunc(http.MethodGet+" /app/avatar/history", m.handleHistory)
	return module.Mount{Prefix: "/app/avatar/", Handler: mux}, nil
}

func (m Module) handleMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := authctx.UserID(r.Context())
	if !ok {
		_ = httpx.WriteJSONError(w, http.StatusUnauthorized, string(apperrors.CodeSessionInvalid), "authentication required")
		return
	}
	relayEmbedMessage(w, r, m.avatars, userID)
}

type manualRequest struct {
	URL string `json:"url"`
}

func (m Module) handleManual(w http.ResponseWriter, r *http.Request) {
	userID, ok := authctx.UserID(r.Context())
	if !ok {
		_ = httpx.WriteJSONError(w, http.StatusUnauthorized, string(apperrors.CodeSessionInvalid), "authentication required")
		return
	}
	var req manualRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		_ = httpx.WriteJSONError(w, http.StatusBadRequest, string(apperrors.CodeUnknown), err.Error())
		return
	}
	state, err := m.avatars.SubmitManualURL(userID, strings.TrimSpace(req.URL))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{"state": stateView(state)})
}

func (m Module) handleConfirm(w http.ResponseWriter, r *http.Request) {
	userID, ok := authctx.UserID(r.Context())
	if !ok {
		_ = httpx.WriteJSONError(w, http.StatusUnauthorized, string(apperrors.CodeSessionInvalid), "authentication required")
		return
	}
	record, err := m.avatars.Confirm(httpx.RequestContext(r), userID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"url":      record.URL,
		"saved_at": record.SavedAt.UTC().Format(time.RFC3339),
	})
}

func (m Module) handleReset(w http.ResponseWriter, r *http.Request) {
	userID, ok := authctx.UserID(r.Context())
	if !ok {
		_ = httpx.WriteJSONError(w, http.StatusUnauthorized, string(apperrors.CodeSessionInvalid), "authentication required")
		return
	}
	state := m.avatars.Reset(userID)
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{"state": stateView(state)})
}

func (m Module) handleState(w http.ResponseWriter, r *http.Request) {
	userID, ok := authctx.UserID(r.Context())
	if !ok {
		_ = httpx.WriteJSONError(w, http.StatusUnauthorized, string(apperrors.CodeSessionInvalid), "authentication required")
		return
	}
	state := m.avatars.SessionState(userID)
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{"state": stateView(state)})
}

func (m Module) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := authctx.UserID(r.Context())
	if !ok {
		_ = httpx.WriteJSONError(w, http.StatusUnauthorized, string(apperrors.CodeSessionInvalid), "authentication required")
		return
	}
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			_ = httpx.WriteJSONError(w, http.StatusBadRequest, string(apperrors.CodeUnknown), "limit must be an integer")
			return
		}
		limit = parsed
	}
	records, err := m.avatars.History(httpx.RequestContext(r), userID, limit)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{"avatars": view.NewAvatars(records)})
}

// CallbackModule accepts creator embed callbacks outside the session cookie
// flow. Cross-origin embeds cannot send cookies, so the page passes its
// session token as a bearer credential instead.
type CallbackModule struct {
	avatars      AvatarService
	authenticate func(token string) (string, error)
}

// NewCallback returns the public avatar callback module.
func NewCallback(avatars AvatarService, authenticate func(token string) (string, error)) CallbackModule {
	return CallbackModule{avatars: avatars, authenticate: authenticate}
}

// ID returns a stable module identifier.
func (CallbackModule) ID() string { return "avatar-callback" }

// Mount wires the public callback handler.
func (m CallbackModule) Mount() (module.Mount, error) {
	mux := http.NewServeMux()
	mux.HandleFunc(http.MethodPost+" /avatar/callback", m.handleCallback)
	return module.Mount{Prefix: "/avatar/", Handler: mux}, nil
}

func (m CallbackModule) handleCallback(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		_ = httpx.WriteJSONError(w, http.StatusUnauthorized, string(apperrors.CodeSessionInvalid), "bearer token required")
		return
	}
	userID, err := m.authenticate(token)
	if err != nil || userID == "" {
		_ = httpx.WriteJSONError(w, http.StatusUnauthorized, string(apperrors.CodeSessionInvalid), "session is invalid or expired")
		return
	}
	relayEmbedMessage(w, r, m.avatars, userID)
}

func bearerToken(r *http.Request) string {
	if r == nil {
		return ""
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

func relayEmbedMessage(w http.ResponseWriter, r *http.Request, avatars AvatarService, userID string) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCallbackBytes))
	if err != nil {
		_ = httpx.WriteJSONError(w, http.StatusBadRequest, string(apperrors.CodeAvatarEventMalformed), "read callback payload")
		return
	}
	state, msg, err := avatars.HandleEmbedMessage(httpx.RequestContext(r), userID, payload)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"event": messageKind(msg),
		"state": stateView(state),
	})
}

func messageKind(msg bridge.Message) string {
	switch msg.(type) {
	case bridge.FrameReady:
		return "frame_ready"
	case bridge.AvatarExported:
		return "avatar_exported"
	case bridge.UserSet:
		return "user_set"
	default:
		return "unrecognized"
	}
}

func stateView(state capture.State) map[string]any {
	out := map[string]any{"phase": string(state.Phase)}
	if state.URL != "" {
		out["url"] = state.URL
	}
	if state.Source != "" {
		out["source"] = state.Source
	}
	return out
}
