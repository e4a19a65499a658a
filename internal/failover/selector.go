// Package failover tracks primary/fallback model state across requests.
//
// The selector is process-wide shared state: one instance is constructed at
// startup and handed to every request path, so all access is serialized with
// a mutex. Two concurrent requests must not race on the increment-and-compare
// that flips the fallback switch.
package failover

import (
	"log"
	"sync"
)

// Selector tracks consecutive execution failures and switches from the
// primary to the fallback model once a configured threshold is reached.
type Selector struct {
	primary   string
	fallback  string
	threshold int

	mu            sync.Mutex
	failureCount  int
	usingFallback bool
}

// NewSelector creates a selector for the given model pair. threshold is the
// consecutive-failure count at which the fallback model takes over; values
// below 1 are clamped to 1.
func NewSelector(primary, fallback string, threshold int) *Selector {
	if threshold < 1 {
		threshold = 1
	}
	return &Selector{
		primary:   primary,
		fallback:  fallback,
		threshold: threshold,
	}
}

// Model returns the model identifier currently in effect and whether it is
// the fallback.
func (s *Selector) Model() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.usingFallback {
		return s.fallback, true
	}
	return s.primary, false
}

// RecordFailure registers one execution failure. It returns true exactly when
// this failure crossed the threshold and flipped the selector to the fallback
// model, so the caller knows to rebuild model-bound teams.
func (s *Selector) RecordFailure() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failureCount++
	log.Printf("[failover] model failure #%d (threshold %d)", s.failureCount, s.threshold)

	if !s.usingFallback && s.failureCount >= s.threshold {
		s.usingFallback = true
		log.Printf("[failover] switching to fallback model %s after %d failures", s.fallback, s.failureCount)
		return true
	}

	return false
}

// RecordSuccess resets the consecutive-failure counter. It deliberately does
// not clear the fallback switch: once flipped, the selector stays on the
// fallback model until ResetToPrimary is called. This avoids flapping between
// models when the primary is still unhealthy.
func (s *Selector) RecordSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failureCount > 0 {
		log.Printf("[failover] request succeeded, resetting failure counter")
		s.failureCount = 0
	}
}

// ResetToPrimary is the explicit operator action that returns the selector
// to the primary model and clears the failure counter.
func (s *Selector) ResetToPrimary() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.usingFallback {
		log.Printf("[failover] resetting to primary model %s", s.primary)
	}
	s.usingFallback = false
	s.failureCount = 0
}

// UsingFallback reports whether the fallback model is in effect.
func (s *Selector) UsingFallback() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usingFallback
}

// FailureCount returns the current consecutive-failure count.
func (s *Selector) FailureCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failureCount
}

// FallbackNotice returns the user-facing notice shown when a response was
// produced by the fallback model, or an empty string when on primary.
func (s *Selector) FallbackNotice() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.usingFallback {
		return ""
	}
	return "Notice: the primary model is currently unavailable; responses are served by the fallback model (" +
		s.fallback + "). Quality may be reduced. The system returns to the primary model after an operator reset."
}
