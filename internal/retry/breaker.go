package retry

import (
	"sync"
	"time"
)

type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

type breaker struct {
	state    BreakerState
	failures int
	openedAt time.Time
}

// breakerSet is the one place breaker state mutates. All transitions happen
// under mu, keyed by dependency class.
type breakerSet struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	byClass   map[Class]*breaker
}

func newBreakerSet(threshold int, cooldown time.Duration) *breakerSet {
	if threshold < 1 {
		threshold = 1
	}
	return &breakerSet{
		threshold: threshold,
		cooldown:  cooldown,
		byClass:   map[Class]*breaker{},
	}
}

func (s *breakerSet) get(class Class) *breaker {
	b, ok := s.byClass[class]
	if !ok {
		b = &breaker{state: BreakerClosed}
		s.byClass[class] = b
	}
	return b
}

// allow reports whether a call may proceed. An open breaker whose cooldown
// has elapsed moves to half-open and lets the probe through.
func (s *breakerSet) allow(class Class, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.get(class)
	switch b.state {
	case BreakerClosed, BreakerHalfOpen:
		return true
	case BreakerOpen:
		if now.Sub(b.openedAt) >= s.cooldown {
			b.state = BreakerHalfOpen
			return true
		}
		return false
	}
	return true
}

func (s *breakerSet) recordSuccess(class Class) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.get(class)
	b.state = BreakerClosed
	b.failures = 0
}

// recordFailure counts one exhausted operation. A failed half-open probe
// reopens immediately regardless of the threshold.
func (s *breakerSet) recordFailure(class Class, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.get(class)
	if b.state == BreakerHalfOpen {
		b.state = BreakerOpen
		b.openedAt = now
		return
	}
	b.failures++
	if b.failures >= s.threshold {
		b.state = BreakerOpen
		b.openedAt = now
	}
}

func (s *breakerSet) state(class Class, now time.Time) BreakerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.get(class)
	if b.state == BreakerOpen && now.Sub(b.openedAt) >= s.cooldown {
		return BreakerHalfOpen
	}
	return b.state
}
