package poller

import (
	"sync"
	"time"
)

// State holds the per-engine debounce clocks, in-flight flags, and the
// processing-lock set. It is never persisted: a restart clears it, and the
// at-most-once markers in the snapshot store take over.
type State struct {
	mu sync.Mutex

	lastProductCheck time.Time
	lastOrderCheck   time.Time
	productInFlight  bool
	orderInFlight    bool

	processing map[string]struct{}
}

// NewState builds an empty poller state.
func NewState() *State {
	return &State{processing: map[string]struct{}{}}
}

// TryBeginProductCheck arms the product poll. It refuses when another product
// poll is in flight or the debounce window has not elapsed.
func (s *State) TryBeginProductCheck(now time.Time, debounce time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.productInFlight {
		return false
	}
	if !s.lastProductCheck.IsZero() && now.Sub(s.lastProductCheck) < debounce {
		return false
	}
	s.productInFlight = true
	s.lastProductCheck = now
	return true
}

// EndProductCheck releases the product in-flight flag.
func (s *State) EndProductCheck() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.productInFlight = false
}

// TryBeginOrderCheck arms the order poll. Separate clock and flag from the
// product poll.
func (s *State) TryBeginOrderCheck(now time.Time, debounce time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.orderInFlight {
		return false
	}
	if !s.lastOrderCheck.IsZero() && now.Sub(s.lastOrderCheck) < debounce {
		return false
	}
	s.orderInFlight = true
	s.lastOrderCheck = now
	return true
}

// EndOrderCheck releases the order in-flight flag.
func (s *State) EndOrderCheck() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orderInFlight = false
}

// TryLock claims the processing lock for one entity key ("{type}_{id}").
// Returns false when a dispatch for the same entity is already running.
func (s *State) TryLock(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, held := s.processing[key]; held {
		return false
	}
	s.processing[key] = struct{}{}
	return true
}

// Unlock releases the processing lock. Safe to call for a key never locked.
func (s *State) Unlock(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.processing, key)
}
