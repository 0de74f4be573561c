package scheduler

import (
	"sync"
)

// Ledger tracks which sources currently have a refresh in flight. It lives in
// memory only: a restart drops all entries and sources become eligible again
// based on their persisted last_refresh.
type Ledger struct {
	mu       sync.Mutex
	inFlight map[int64]struct{}
}

func NewLedger() *Ledger {
	return &Ledger{
		inFlight: make(map[int64]struct{}),
	}
}

// TryAcquire marks the source id as in flight and returns true iff it was not
// already. Callers must skip dispatch on false.
func (l *Ledger) TryAcquire(id int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.inFlight[id]; ok {
		return false
	}
	l.inFlight[id] = struct{}{}
	return true
}

// Release removes the id unconditionally.
func (l *Ledger) Release(id int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.inFlight, id)
}

// Len returns the number of refreshes currently in flight.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.inFlight)
}
