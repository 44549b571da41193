package avatar

import (
	"context"
	"sync"
	"testing"
	"time"

	apperrors "github.com/swoplabs/swopcredit/internal/platform/errors"
	"github.com/swoplabs/swopcredit/internal/services/avatar/bridge"
	"github.com/swoplabs/swopcredit/internal/services/avatar/capture"
	"github.com/swoplabs/swopcredit/internal/storage"
)

const modelURL = "https://models.readyplayer.me/abc123.glb"

type fakeAvatarStore struct {
	mu      sync.Mutex
	saved   []storage.AvatarRecord
	saveErr error
}

func (f *fakeAvatarStore) SaveAvatar(ctx context.Context, record storage.AvatarRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, record)
	return nil
}

func (f *fakeAvatarStore) ListAvatarHistory(ctx context.Context, userID string, limit int) ([]storage.AvatarRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storage.AvatarRecord
	for i := len(f.saved) - 1; i >= 0; i-- {
		if f.saved[i].UserID == userID {
			out = append(out, f.saved[i])
		}
	}
	return out, nil
}

func newTestService(t *testing.T) (*Service, *fakeAvatarStore) {
	t.Helper()
	store := &fakeAvatarStore{}
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	service, err := NewService(store, func() time.Time { return now })
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service, store
}

func TestHandleEmbedMessageCapturesExport(t *testing.T) {
	service, _ := newTestService(t)

	payload := []byte(`{"source":"readyplayerme","eventName":"v1.avatar.exported","data":{"url":"` + modelURL + `"}}`)
	state, msg, err := service.HandleEmbedMessage(context.Background(), "user-1", payload)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if _, ok := msg.(bridge.AvatarExported); !ok {
		t.Fatalf("expected AvatarExported, got %T", msg)
	}
	if state.Phase != capture.PhaseCaptured || state.URL != modelURL {
		t.Fatalf("unexpected state: %+v", state)
	}
}

func TestHandleEmbedMessageFrameReadyKeepsWaiting(t *testing.T) {
	service, _ := newTestService(t)

	state, msg, err := service.HandleEmbedMessage(context.Background(), "user-1", []byte(`{"source":"readyplayerme","eventName":"v1.frame.ready"}`))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if _, ok := msg.(bridge.FrameReady); !ok {
		t.Fatalf("expected FrameReady, got %T", msg)
	}
	if state.Phase != capture.PhaseWaiting {
		t.Fatalf("expected waiting, got %s", state.Phase)
	}
}

func TestConfirmPersistsCapturedAvatar(t *testing.T) {
	service, store := newTestService(t)

	if _, err := service.SubmitManualURL("user-1", modelURL); err != nil {
		t.Fatalf("submit: %v", err)
	}

	record, err := service.Confirm(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if record.URL != modelURL {
		t.Fatalf("unexpected record: %+v", record)
	}
	if len(store.saved) != 1 {
		t.Fatalf("expected 1 save, got %d", len(store.saved))
	}
	if service.SessionState("user-1").Phase != capture.PhaseConfirmed {
		t.Fatal("expected confirmed session")
	}
}

func TestConfirmWithoutCapture(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.Confirm(context.Background(), "user-1")
	if apperrors.GetCode(err) != apperrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestConfirmRollsBackOnSaveFailure(t *testing.T) {
	service, store := newTestService(t)
	store.saveErr = storage.ErrNotFound

	if _, err := service.SubmitManualURL("user-1", modelURL); err != nil {
		t.Fatalf("submit: %v", err)
	}
	_, err := service.Confirm(context.Background(), "user-1")
	if apperrors.GetCode(err) != apperrors.CodeUserNotFound {
		t.Fatalf("expected user not found, got %v", err)
	}
	if service.SessionState("user-1").Phase != capture.PhaseCaptured {
		t.Fatal("expected session rolled back to captured")
	}

	store.saveErr = nil
	if _, err := service.Confirm(context.Background(), "user-1"); err != nil {
		t.Fatalf("retry confirm: %v", err)
	}
}

func TestSubmitManualURLRejectsBadURL(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.SubmitManualURL("user-1", "https://evil.example/a.glb")
	if apperrors.GetCode(err) != apperrors.CodeAvatarURLInvalid {
		t.Fatalf("expected invalid url, got %v", err)
	}
}

func TestDuplicateSignalsAcrossSourcesCollapse(t *testing.T) {
	service, _ := newTestService(t)

	if _, err := service.SignalExport("user-1", modelURL, capture.SourceEmbed); err != nil {
		t.Fatalf("signal: %v", err)
	}
	state, err := service.SignalExport("user-1", modelURL, capture.SourcePoller)
	if err != nil {
		t.Fatalf("signal: %v", err)
	}
	if state.Source != capture.SourceEmbed {
		t.Fatalf("expected first source kept, got %s", state.Source)
	}
}

func TestPollerStopsOnContextCancel(t *testing.T) {
	service, _ := newTestService(t)
	fetch := func(ctx context.Context, userID string) (string, error) { return "", nil }
	poller, err := NewPoller(service, fetch, 5*time.Millisecond, func(string, ...any) {})
	if err != nil {
		t.Fatalf("new poller: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- poller.Run(ctx, "user-1") }()
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("expected context canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestPollerSignalsExportAndStopsAfterConfirm(t *testing.T) {
	service, _ := newTestService(t)
	fetch := func(ctx context.Context, userID string) (string, error) { return modelURL, nil }
	poller, err := NewPoller(service, fetch, time.Millisecond, func(string, ...any) {})
	if err != nil {
		t.Fatalf("new poller: %v", err)
	}

	if stop := poller.pollOnce(context.Background(), "user-1"); stop {
		t.Fatal("expected polling to continue")
	}
	if service.SessionState("user-1").Phase != capture.PhaseCaptured {
		t.Fatal("expected captured state from poller signal")
	}

	if _, err := service.Confirm(context.Background(), "user-1"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if stop := poller.pollOnce(context.Background(), "user-1"); !stop {
		t.Fatal("expected polling to stop after confirm")
	}
}
