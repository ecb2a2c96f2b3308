package txtable

import (
	"sync"

	"github.com/gear-foundation/dapps-sharded-fungible-token/internal/wire"
)

// State is a transaction's position in its (any tier) state machine:
// absent -> InProgress -> {Success, Failure}. Success and Failure are
// terminal; there is no transition out of them.
type State int

const (
	// Absent is the zero value: the hash has never been seen by this
	// table. It is never stored explicitly, only returned by Get.
	Absent State = iota
	InProgress
	Success
	Failure
)

// String renders the state for logging.
func (s State) String() string {
	switch s {
	case InProgress:
		return "in_progress"
	case Success:
		return "success"
	case Failure:
		return "failure"
	default:
		return "absent"
	}
}

// Table is a concurrency-safe map from transaction_hash to State. The zero
// value is not usable; construct with New.
type Table struct {
	mu      sync.RWMutex
	entries map[wire.Hash]State
}

// New returns an empty Table.
func New() *Table {
	return &Table{entries: make(map[wire.Hash]State)}
}

// Get returns the current state of h, or Absent if never recorded.
func (t *Table) Get(h wire.Hash) State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.entries[h]
}

// MarkInProgress records h as InProgress. It is a no-op (returns the
// existing state) if h already has an entry; callers are expected to check
// Get first and only call MarkInProgress on Absent, but this method does
// not itself enforce that so retries after a host interruption are safe to
// call it unconditionally.
func (t *Table) MarkInProgress(h wire.Hash) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.entries[h]; ok {
		return s
	}
	t.entries[h] = InProgress
	return InProgress
}

// Finish transitions h to Success or Failure. Calling Finish on a hash that
// is already Success or Failure is idempotent: the recorded terminal state
// is never overwritten by a second call.
func (t *Table) Finish(h wire.Hash, ok bool) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, exists := t.entries[h]; exists && (s == Success || s == Failure) {
		return s
	}
	terminal := Failure
	if ok {
		terminal = Success
	}
	t.entries[h] = terminal
	return terminal
}

// Clear removes h from the table, used by the gateway's delayed Clear
// self-message. It is a no-op if h is absent.
func (t *Table) Clear(h wire.Hash) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, h)
}

// Len reports the number of tracked hashes, for tests and metrics.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
