package lifecycle

import "sync"

// Phase is the host-reported application lifecycle phase.
type Phase string

const (
	PhaseForeground Phase = "foreground"
	PhaseBackground Phase = "background"
)

// IsValid checks the phase against the two known values.
func (p Phase) IsValid() bool {
	return p == PhaseForeground || p == PhaseBackground
}

// AppState is the shared foreground/background flag. The Monitor writes it on
// every transition; the polling engine reads it to keep background polls from
// racing foreground ones.
type AppState struct {
	mu    sync.RWMutex
	phase Phase
}

// NewAppState starts foregrounded, matching an app launched by the user.
func NewAppState() *AppState {
	return &AppState{phase: PhaseForeground}
}

// Set records the current phase.
func (s *AppState) Set(phase Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = phase
}

// Phase returns the current phase.
func (s *AppState) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// Foregrounded reports whether the app is currently in the foreground.
func (s *AppState) Foregrounded() bool {
	return s.Phase() == PhaseForeground
}
