package avatar

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/swoplabs/swopcredit/internal/platform/timeouts"
	"github.com/swoplabs/swopcredit/internal/services/avatar/capture"
)

// FetchFunc reports the latest exported model URL for a user. An empty URL
// with a nil error means no export exists yet.
type FetchFunc func(ctx context.Context, userID string) (string, error)

// Poller periodically checks for exports that never reached the embed
// message stream, such as exports finished after the page was closed.
type Poller struct {
	service  *Service
	fetch    FetchFunc
	interval time.Duration
	logf     func(format string, args ...any)
}

// NewPoller builds a poller feeding export signals into the capture
// sessions. A zero interval uses the platform default.
func NewPoller(service *Service, fetch FetchFunc, interval time.Duration, logf func(format string, args ...any)) (*Poller, error) {
	if service == nil {
		return nil, fmt.Errorf("avatar service is required")
	}
	if fetch == nil {
		return nil, fmt.Errorf("fetch func is required")
	}
	if interval <= 0 {
		interval = timeouts.AvatarPoll
	}
	if logf == nil {
		logf = log.Printf
	}
	return &Poller{service: service, fetch: fetch, interval: interval, logf: logf}, nil
}

// Run polls for one user until the context is canceled or the session
// reaches a terminal phase.
func (p *Poller) Run(ctx context.Context, userID string) error {
	if p == nil {
		return fmt.Errorf("poller is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if p.pollOnce(ctx, userID) {
				return nil
			}
		}
	}
}

// pollOnce returns true when the session reached a terminal phase and
// polling should stop.
func (p *Poller) pollOnce(ctx context.Context, userID string) bool {
	if p.service.SessionState(userID).Phase == capture.PhaseConfirmed {
		return true
	}

	url, err := p.fetch(ctx, userID)
	if err != nil {
		p.logf("avatar poll user=%s: %v", userID, err)
		return false
	}
	if url == "" {
		return false
	}
	if _, err := p.service.SignalExport(userID, url, capture.SourcePoller); err != nil {
		p.logf("avatar poll user=%s rejected url: %v", userID, err)
	}
	return false
}
