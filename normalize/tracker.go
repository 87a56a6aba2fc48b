package normalize

import (
	"log/slog"
	"sync"
)

// Tracker holds the normalization status of a template that keeps changing.
// Every change starts a new generation; a result is applied only when it
// belongs to the latest generation.
type Tracker struct {
	mu       sync.Mutex
	gen      uint64
	status   Status
	output   string
	onChange func(Status)
	logger   *slog.Logger
	metrics  *Metrics
}

// NewTracker returns a Tracker in StatusNone. logger may be nil.
func NewTracker(logger *slog.Logger, m *Metrics) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{status: StatusNone, logger: logger, metrics: m}
}

// OnChange registers fn to be called after every status change.
func (t *Tracker) OnChange(fn func(Status)) {
	t.mu.Lock()
	t.onChange = fn
	t.mu.Unlock()
}

// Begin moves to StatusLoading and returns the generation of the new check.
func (t *Tracker) Begin() uint64 {
	t.mu.Lock()
	t.gen++
	gen := t.gen
	fire := t.set(StatusLoading, "")
	t.mu.Unlock()
	fire()
	return gen
}

// Resolve applies r when gen is the latest generation and reports whether it
// did. Stale results are dropped.
func (t *Tracker) Resolve(gen uint64, r Result) bool {
	t.mu.Lock()
	if gen != t.gen {
		latest := t.gen
		t.mu.Unlock()
		t.metrics.staleResult()
		t.logger.Debug("discarding stale normalization result", "generation", gen, "latest", latest, "status", r.Status)
		return false
	}
	fire := t.set(r.Status, r.Output)
	t.mu.Unlock()
	fire()
	return true
}

// Reset returns to StatusNone and invalidates pending checks.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.gen++
	fire := t.set(StatusNone, "")
	t.mu.Unlock()
	fire()
}

// Status returns the current status and output.
func (t *Tracker) Status() (Status, string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status, t.output
}

// Generation returns the latest generation issued.
func (t *Tracker) Generation() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gen
}

// set must be called with mu held. It returns the notification to run once
// mu is released.
func (t *Tracker) set(s Status, output string) func() {
	changed := s != t.status
	t.status, t.output = s, output
	fn := t.onChange
	if !changed || fn == nil {
		return func() {}
	}
	return func() { fn(s) }
}
