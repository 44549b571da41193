// Package live fans out per-user frames to websocket subscribers.
package live

import "sync"

// Frame is one message pushed to a connected client.
type Frame struct {
	Type        string `json:"type"`
	Balance     int64  `json:"balance,omitempty"`
	SwopBalance int64  `json:"swop_balance,omitempty"`
	XP          int64  `json:"xp,omitempty"`
	Tier        string `json:"tier,omitempty"`
	LoanID      string `json:"loan_id,omitempty"`
	Urgency     string `json:"urgency,omitempty"`
	SecondsLeft int64  `json:"seconds_left,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
}

// Frame types pushed over the live stream.
const (
	FrameBalance       = "wallet.balance"
	FrameLoanCountdown = "loan.countdown"
)

const subscriberBuffer = 8

// Hub tracks per-user subscriber channels.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan Frame]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan Frame]struct{})}
}

// Subscribe registers a channel for the user's frames. The returned cancel
// function removes the subscription and closes the channel.
func (h *Hub) Subscribe(userID string) (<-chan Frame, func()) {
	ch := make(chan Frame, subscriberBuffer)
	h.mu.Lock()
	set, ok := h.subs[userID]
	if !ok {
		set = make(map[chan Frame]struct{})
		h.subs[userID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if set, ok := h.subs[userID]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(h.subs, userID)
				}
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers a frame to all of the user's subscribers. Slow subscribers
// with a full buffer miss the frame rather than block the publisher.
func (h *Hub) Publish(userID string, frame Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[userID] {
		select {
		case ch <- frame:
		default:
		}
	}
}
