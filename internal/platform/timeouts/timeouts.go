// Package timeouts defines shared timeout constants used across services.
// Centralizing these values prevents drift between service boundaries and
// makes the durations discoverable.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// OutboxLease caps how long a worker may hold a leased outbox event before
// other consumers may reclaim it.
const OutboxLease = 30 * time.Second

// AvatarPoll is the default interval between avatar URL observations.
const AvatarPoll = 2 * time.Second
