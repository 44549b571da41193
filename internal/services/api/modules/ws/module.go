// Package ws streams live loan countdown and balance frames to clients.
package ws

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/swoplabs/swopcredit/internal/services/api/live"
	module "github.com/swoplabs/swopcredit/internal/services/api/module"
	"github.com/swoplabs/swopcredit/internal/services/api/platform/sessioncookie"
	loanservice "github.com/swoplabs/swopcredit/internal/services/loan"
)

const countdownInterval = time.Second

// LoanStatus reads the caller's active loan for countdown frames.
type LoanStatus interface {
	ActiveStatus(ctx context.Context, userID string) (loanservice.Status, error)
}

// Module provides the live websocket stream. It authenticates from the
// session cookie itself since it mounts outside the protected group.
type Module struct {
	loans        LoanStatus
	hub          *live.Hub
	authenticate func(token string) (string, error)
	interval     time.Duration
}

// New returns a ws module with the given dependencies.
func New(loans LoanStatus, hub *live.Hub, authenticate func(token string) (string, error)) Module {
	return Module{loans: loans, hub: hub, authenticate: authenticate, interval: countdownInterval}
}

// ID returns a stable module identifier.
func (Module) ID() string { return "ws" }

// Mount wires the websocket handler.
func (m Module) Mount() (module.Mount, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", m.handleUpgrade)
	return module.Mount{Prefix: "/ws", Handler: mux}, nil
}

func (m Module) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	token, ok := sessioncookie.Read(r)
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}
	userID, err := m.authenticate(token)
	if err != nil || userID == "" {
		http.Error(w, "session is invalid or expired", http.StatusUnauthorized)
		return
	}
	websocket.Handler(func(conn *websocket.Conn) {
		m.stream(r.Context(), conn, userID)
	}).ServeHTTP(w, r)
}

type peer struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

func (p *peer) writeFrame(frame live.Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.encoder.Encode(frame)
}

// stream pushes hub frames and a per-second loan countdown until the client
// disconnects.
func (m Module) stream(ctx context.Context, conn *websocket.Conn, userID string) {
	defer conn.Close()
	p := &peer{encoder: json.NewEncoder(conn)}

	frames, cancel := m.hub.Subscribe(userID)
	defer cancel()

	// The stream is server-push only; a read unblocks on client close.
	closed := make(chan struct{})
	go func() {
		_, _ = io.Copy(io.Discard, conn)
		close(closed)
	}()

	interval := m.interval
	if interval <= 0 {
		interval = countdownInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-closed:
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			if err := p.writeFrame(frame); err != nil {
				return
			}
		case <-ticker.C:
			frame, ok := m.countdownFrame(ctx, userID)
			if !ok {
				continue
			}
			if err := p.writeFrame(frame); err != nil {
				return
			}
		}
	}
}

func (m Module) countdownFrame(ctx context.Context, userID string) (live.Frame, bool) {
	status, err := m.loans.ActiveStatus(ctx, userID)
	if err != nil || !status.HasActive {
		return live.Frame{}, false
	}
	return live.Frame{
		Type:        live.FrameLoanCountdown,
		LoanID:      status.Loan.ID,
		Urgency:     status.Urgency,
		SecondsLeft: int64(status.Remaining.Seconds()),
		DueDate:     status.Loan.DueDate.UTC().Format(time.RFC3339),
	}, true
}
