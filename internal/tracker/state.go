package tracker

import "sync"

// State is the shared movie-tracking flag. Enabling it wakes the loop
// immediately; disabling lets the loop fall back to its idle wait.
type State struct {
	mu      sync.Mutex
	enabled bool
	wake    chan struct{}
}

func NewState() *State {
	return &State{wake: make(chan struct{}, 1)}
}

// Enable turns tracking on and signals any sleeper.
func (s *State) Enable() {
	s.mu.Lock()
	s.enabled = true
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Disable turns tracking off without signalling.
func (s *State) Disable() {
	s.mu.Lock()
	s.enabled = false
	s.mu.Unlock()
}

func (s *State) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// Wake is the channel a sleeper selects on to be interrupted by Enable.
func (s *State) Wake() <-chan struct{} {
	return s.wake
}
