package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/swoplabs/swopcredit/internal/platform/timeouts"
	workerdomain "github.com/swoplabs/swopcredit/internal/services/worker/domain"
	"github.com/swoplabs/swopcredit/internal/storage"
)

const (
	defaultConsumer      = "swopcredit-worker"
	defaultPollInterval  = time.Second
	defaultBatchSize     = 10
	defaultMaxAttempts   = 5
	defaultRetryBackoff  = 2 * time.Second
	defaultRetryMaxDelay = 5 * time.Minute
)

// Attempt outcome values recorded for auditability.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeRetry     = "retry"
	OutcomeDead      = "dead"
)

// EventHandler processes one leased outbox event. Returning an error marked
// with domain.Permanent stops retries for that event.
type EventHandler interface {
	Handle(ctx context.Context, event storage.OutboxEvent) error
}

// Attempt describes one processing attempt for the audit trail.
type Attempt struct {
	EventID      string
	EventType    string
	Outcome      string
	AttemptCount int
	Error        string
	CreatedAt    time.Time
}

// AttemptRecorder persists processing attempts. A nil recorder disables the
// audit trail without affecting event processing.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, attempt Attempt) error
}

// Config controls loop polling, leasing, and retry behavior.
type Config struct {
	Consumer      string
	PollInterval  time.Duration
	BatchSize     int
	LeaseTTL      time.Duration
	MaxAttempts   int
	RetryBackoff  time.Duration
	RetryMaxDelay time.Duration
}

func (c Config) normalized() Config {
	if strings.TrimSpace(c.Consumer) == "" {
		c.Consumer = defaultConsumer
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.LeaseTTL <= 0 {
		c.LeaseTTL = timeouts.OutboxLease
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = defaultRetryBackoff
	}
	if c.RetryMaxDelay < c.RetryBackoff {
		c.RetryMaxDelay = defaultRetryMaxDelay
	}
	return c
}

// Loop leases outbox events and dispatches them to registered handlers.
type Loop struct {
	outbox   storage.OutboxStore
	handlers map[string]EventHandler
	recorder AttemptRecorder
	cfg      Config
	clock    func() time.Time
	logf     func(format string, args ...any)
}

// New creates a worker loop over the given outbox store and handler map.
func New(outbox storage.OutboxStore, handlers map[string]EventHandler, recorder AttemptRecorder, cfg Config, clock func() time.Time) (*Loop, error) {
	if outbox == nil {
		return nil, fmt.Errorf("outbox store is required")
	}
	if len(handlers) == 0 {
		return nil, fmt.Errorf("at least one event handler is required")
	}
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &Loop{
		outbox:   outbox,
		handlers: handlers,
		recorder: recorder,
		cfg:      cfg.normalized(),
		clock:    clock,
		logf:     log.Printf,
	}, nil
}

// Run polls for leasable events until ctx is canceled.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.cfg.PollInterval)
	defer ticker.Stop()
	for {
		if _, err := l.processOnce(ctx); err != nil {
			l.logf("worker lease pass: %v", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// processOnce leases one batch and dispatches each event. It returns the
// number of events handled so tests can drive the loop synchronously.
func (l *Loop) processOnce(ctx context.Context) (int, error) {
	now := l.clock().UTC()
	events, err := l.outbox.LeaseOutboxEvents(ctx, l.cfg.Consumer, l.cfg.BatchSize, now, l.cfg.LeaseTTL)
	if err != nil {
		return 0, fmt.Errorf("lease outbox events: %w", err)
	}
	for _, event := range events {
		l.dispatch(ctx, event)
	}
	return len(events), nil
}

func (l *Loop) dispatch(ctx context.Context, event storage.OutboxEvent) {
	var handleErr error
	handler, ok := l.handlers[event.EventType]
	if !ok {
		handleErr = workerdomain.Permanent(fmt.Errorf("no handler registered for event type %q", event.EventType))
	} else {
		handleErr = handler.Handle(ctx, event)
	}

	now := l.clock().UTC()
	if handleErr == nil {
		if err := l.outbox.CompleteOutboxEvent(ctx, event.ID, l.cfg.Consumer, now); err != nil {
			l.logf("complete outbox event %s: %v", event.ID, err)
			return
		}
		l.record(ctx, event, OutcomeSucceeded, "")
		return
	}

	permanent := workerdomain.IsPermanent(handleErr) || event.AttemptCount >= l.cfg.MaxAttempts
	retryAt := now.Add(l.backoffDelay(event.AttemptCount))
	if err := l.outbox.FailOutboxEvent(ctx, event.ID, l.cfg.Consumer, handleErr.Error(), retryAt, permanent, now); err != nil {
		l.logf("fail outbox event %s: %v", event.ID, err)
		return
	}
	outcome := OutcomeRetry
	if permanent {
		outcome = OutcomeDead
		l.logf("outbox event %s (%s) marked dead after %d attempts: %v", event.ID, event.EventType, event.AttemptCount, handleErr)
	}
	l.record(ctx, event, outcome, handleErr.Error())
}

// backoffDelay doubles per attempt, capped at RetryMaxDelay. attemptCount is
// the count after the current lease, so the first retry waits RetryBackoff.
func (l *Loop) backoffDelay(attemptCount int) time.Duration {
	delay := l.cfg.RetryBackoff
	for i := 1; i < attemptCount; i++ {
		delay *= 2
		if delay >= l.cfg.RetryMaxDelay {
			return l.cfg.RetryMaxDelay
		}
	}
	return delay
}

func (l *Loop) record(ctx context.Context, event storage.OutboxEvent, outcome string, lastError string) {
	if l.recorder == nil {
		return
	}
	err := l.recorder.RecordAttempt(ctx, Attempt{
		EventID:      event.ID,
		EventType:    event.EventType,
		Outcome:      outcome,
		AttemptCount: event.AttemptCount,
		Error:        lastError,
		CreatedAt:    l.clock().UTC(),
	})
	if err != nil {
		l.logf("record attempt for event %s: %v", event.ID, err)
	}
}

type attemptStoreRecorder struct {
	store    storage.AttemptStore
	consumer string
}

func newAttemptStoreRecorder(store storage.AttemptStore, consumer string) *attemptStoreRecorder {
	normalizedConsumer := strings.TrimSpace(consumer)
	if normalizedConsumer == "" {
		normalizedConsumer = defaultConsumer
	}
	return &attemptStoreRecorder{store: store, consumer: normalizedConsumer}
}

func (r *attemptStoreRecorder) RecordAttempt(ctx context.Context, attempt Attempt) error {
	if r == nil || r.store == nil {
		return nil
	}
	return r.store.RecordAttempt(ctx, storage.AttemptRecord{
		EventID:      attempt.EventID,
		EventType:    attempt.EventType,
		Consumer:     r.consumer,
		Outcome:      attempt.Outcome,
		AttemptCount: attempt.AttemptCount,
		LastError:    attempt.Error,
		CreatedAt:    attempt.CreatedAt,
	})
}
