// Package audit appends activity records and emits domain events. Both are
// best-effort from the tool's perspective: a failed audit write is logged and
// swallowed, never allowed to mask the primary result.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/perch-panel/perch/internal/store"
)

// Bus receives domain events. Implementations must not block; the Recorder
// calls Emit synchronously on the tool's execution path.
type Bus interface {
	Emit(event string, payload map[string]any)
}

// NopBus discards events. Used when no bus is configured — absence of a bus
// is not an error.
type NopBus struct{}

// Emit implements Bus.
func (NopBus) Emit(string, map[string]any) {}

// Recorder writes activity records and forwards domain events.
type Recorder struct {
	store  store.ActivityStore
	bus    Bus
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithBus attaches an event bus.
func WithBus(b Bus) Option {
	return func(r *Recorder) {
		if b != nil {
			r.bus = b
		}
	}
}

// WithNow overrides the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// NewRecorder creates a Recorder. A nil logger falls back to slog.Default;
// the bus defaults to NopBus.
func NewRecorder(s store.ActivityStore, logger *slog.Logger, opts ...Option) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{
		store:  s,
		bus:    NopBus{},
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record appends an activity row. Failures are logged, never returned: the
// primary operation already succeeded and its result must stand.
func (r *Recorder) Record(ctx context.Context, a store.Activity) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = r.now().UTC()
	}
	if _, err := r.store.AppendActivity(ctx, a); err != nil {
		r.logger.Error("audit: append activity failed",
			"event", a.Event,
			"server_id", a.ServerID,
			"error", err,
		)
	}
}

// Emit forwards a domain event to the configured bus.
func (r *Recorder) Emit(event string, payload map[string]any) {
	r.bus.Emit(event, payload)
}
