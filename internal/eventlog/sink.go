// Package eventlog provides the structured event sink shared by every
// HashCredit component: a package-level btclog.Logger for text logs,
// matching the pattern used throughout the teacher's mining packages
// (a bare `var log btclog.Logger` plus a `UseLogger` setter defaulting
// to btclog.Disabled), and a bounded in-memory ring of emitted Events
// so tests can assert on the sequence and fields of what fired.
package eventlog

import (
	"sync"

	"github.com/btcsuite/btclog"
)

// log is the package-level logger used by eventlog itself. Components
// hold their own `log` variables following the same convention; Sink
// does not replace those, it supplements them with an inspectable
// record for tests.
var log = btclog.Disabled

// UseLogger sets the package-level logger for eventlog's own
// diagnostics.
func UseLogger(logger btclog.Logger) {
	log = logger
}

// Event is a single structured occurrence, named per spec.md §6:
// BorrowerRegistered, PayoutSubmitted, PayoutBelowMinimum,
// PayoutWindowPruned, CreditLimitUpdated, Borrowed, Repaid,
// BorrowerFrozen, BorrowerUnfrozen, CheckpointSet, Paused, Unpaused,
// VerifierChanged, VaultChanged, RiskConfigChanged, and
// PayoutRecordsEvicted.
type Event struct {
	Name   string
	Fields map[string]any
}

// defaultCapacity bounds the in-memory ring so a long-running process
// does not leak memory through its own event history.
const defaultCapacity = 4096

// Sink records events for observability and test assertions. The zero
// value is not usable; construct with New.
type Sink struct {
	mu       sync.Mutex
	capacity int
	events   []Event
}

// New creates a Sink with the default capacity.
func New() *Sink {
	return &Sink{capacity: defaultCapacity}
}

// NewWithCapacity creates a Sink bounded to the given capacity. A
// capacity of 0 means unbounded, useful in tests that want to inspect
// every event emitted during a scenario.
func NewWithCapacity(capacity int) *Sink {
	return &Sink{capacity: capacity}
}

// Emit records an event and writes a structured log line. fields may
// be nil.
func (s *Sink) Emit(name string, fields map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, Event{Name: name, Fields: fields})
	if s.capacity > 0 && len(s.events) > s.capacity {
		s.events = s.events[len(s.events)-s.capacity:]
	}
	log.Debugf("event %s %v", name, fields)
}

// Events returns a copy of the recorded events in emission order.
func (s *Sink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// Last returns the most recently emitted event and true, or the zero
// Event and false if nothing has been emitted.
func (s *Sink) Last() (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.events) == 0 {
		return Event{}, false
	}
	return s.events[len(s.events)-1], true
}
