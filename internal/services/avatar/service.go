// Package avatar coordinates avatar capture across its signal sources.
package avatar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	apperrors "github.com/swoplabs/swopcredit/internal/platform/errors"
	"github.com/swoplabs/swopcredit/internal/services/avatar/bridge"
	"github.com/swoplabs/swopcredit/internal/services/avatar/capture"
	"github.com/swoplabs/swopcredit/internal/storage"
)

// Service tracks per-user capture sessions and persists confirmed avatars.
type Service struct {
	avatars storage.AvatarStore
	clock   func() time.Time

	mu       sync.Mutex
	sessions map[string]capture.State
}

// NewService wires an avatar service over its store.
func NewService(avatars storage.AvatarStore, clock func() time.Time) (*Service, error) {
	if avatars == nil {
		return nil, fmt.Errorf("avatar store is required")
	}
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		avatars:  avatars,
		clock:    clock,
		sessions: make(map[string]capture.State),
	}, nil
}

// HandleEmbedMessage feeds one raw editor message into the user's capture
// session. The decoded message is returned so callers can log unrecognized
// variants.
func (s *Service) HandleEmbedMessage(ctx context.Context, userID string, payload []byte) (capture.State, bridge.Message, error) {
	if s == nil {
		return capture.State{}, nil, fmt.Errorf("avatar service is not configured")
	}
	if err := ctx.Err(); err != nil {
		return capture.State{}, nil, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return capture.State{}, nil, fmt.Errorf("user id is required")
	}

	msg, err := bridge.Decode(payload)
	if err != nil {
		return s.sessionState(userID), nil, err
	}

	switch m := msg.(type) {
	case bridge.AvatarExported:
		state := s.apply(userID, capture.Exported{URL: m.URL, Source: capture.SourceEmbed})
		return state, msg, nil
	case bridge.FrameReady:
		return s.sessionState(userID), msg, nil
	default:
		return s.sessionState(userID), msg, nil
	}
}

// SignalExport feeds an export seen outside the embed stream, such as the
// background poller.
func (s *Service) SignalExport(userID string, url string, source string) (capture.State, error) {
	if s == nil {
		return capture.State{}, fmt.Errorf("avatar service is not configured")
	}
	if err := bridge.ValidateModelURL(url); err != nil {
		return s.sessionState(strings.TrimSpace(userID)), err
	}
	return s.apply(strings.TrimSpace(userID), capture.Exported{URL: strings.TrimSpace(url), Source: source}), nil
}

// SubmitManualURL accepts a pasted model URL as the capture source.
func (s *Service) SubmitManualURL(userID string, url string) (capture.State, error) {
	return s.SignalExport(userID, url, capture.SourceManual)
}

// Confirm persists the captured avatar and completes the session.
func (s *Service) Confirm(ctx context.Context, userID string) (storage.AvatarRecord, error) {
	if s == nil {
		return storage.AvatarRecord{}, fmt.Errorf("avatar service is not configured")
	}
	if err := ctx.Err(); err != nil {
		return storage.AvatarRecord{}, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return storage.AvatarRecord{}, fmt.Errorf("user id is required")
	}

	s.mu.Lock()
	state := s.sessions[userID]
	next, changed := capture.Reduce(state, capture.Confirm{})
	if changed {
		s.sessions[userID] = next
	}
	s.mu.Unlock()

	if !changed {
		return storage.AvatarRecord{}, apperrors.New(apperrors.CodeNotFound, "no captured avatar to confirm")
	}

	record := storage.AvatarRecord{
		UserID:  userID,
		URL:     next.URL,
		SavedAt: s.clock().UTC(),
	}
	if err := s.avatars.SaveAvatar(ctx, record); err != nil {
		// Roll the session back so the user can retry the confirm.
		s.mu.Lock()
		s.sessions[userID] = state
		s.mu.Unlock()
		if errors.Is(err, storage.ErrNotFound) {
			return storage.AvatarRecord{}, apperrors.Wrap(apperrors.CodeUserNotFound, "user not found", err)
		}
		return storage.AvatarRecord{}, err
	}
	return record, nil
}

// Reset discards the user's capture progress.
func (s *Service) Reset(userID string) capture.State {
	if s == nil {
		return capture.State{}
	}
	return s.apply(strings.TrimSpace(userID), capture.Reset{})
}

// SessionState reports the user's current capture state.
func (s *Service) SessionState(userID string) capture.State {
	if s == nil {
		return capture.State{}
	}
	return s.sessionState(strings.TrimSpace(userID))
}

// History lists the user's saved avatars newest-first.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]storage.AvatarRecord, error) {
	if s == nil {
		return nil, fmt.Errorf("avatar service is not configured")
	}
	if limit <= 0 {
		limit = 10
	}
	return s.avatars.ListAvatarHistory(ctx, strings.TrimSpace(userID), limit)
}

func (s *Service) apply(userID string, event capture.Event) capture.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.sessions[userID]
	if !ok {
		state = capture.NewState()
	}
	next, changed := capture.Reduce(state, event)
	if changed {
		s.sessions[userID] = next
	}
	return next
}

func (s *Service) sessionState(userID string) capture.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.sessions[userID]
	if !ok {
		return capture.NewState()
	}
	return state
}
