package services

import (
	"sync"
	"time"
)

// HealthState tracks whether a remote backend is currently known-unavailable.
// Each client instance holds its own state; there are no package globals.
// After a failure the backend is considered degraded until the cooldown
// elapses, at which point one call is allowed through as a probe. A zero
// cooldown disables re-probing: once degraded, degraded for the process
// lifetime.
//
// The state is a best-effort cache used to short-circuit doomed calls; it is
// not required to be strictly consistent under concurrent access.
type HealthState struct {
	mu          sync.Mutex
	degraded    bool
	lastChecked time.Time
	cooldown    time.Duration
}

func NewHealthState(cooldown time.Duration) *HealthState {
	return &HealthState{cooldown: cooldown}
}

// ShouldAttempt reports whether the next remote call should be attempted.
func (h *HealthState) ShouldAttempt() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.degraded {
		return true
	}
	if h.cooldown <= 0 {
		return false
	}
	if time.Since(h.lastChecked) >= h.cooldown {
		// Allow a single probe; the caller reports the outcome.
		h.lastChecked = time.Now()
		return true
	}
	return false
}

func (h *HealthState) MarkHealthy() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.degraded = false
	h.lastChecked = time.Now()
}

func (h *HealthState) MarkDegraded() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.degraded = true
	h.lastChecked = time.Now()
}

// Degraded reports whether the backend is currently considered unavailable.
func (h *HealthState) Degraded() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.degraded
}
