package provider

import (
	"sync"
	"time"
)

// BreakerState is the state of a provider circuit breaker.
type BreakerState string

// Breaker states.
const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

// breaker trips after failureThreshold consecutive failures and stays open for
// cooldown. The first call after the cooldown is a trial; its outcome closes
// or reopens the breaker.
type breaker struct {
	mu               sync.Mutex
	failureThreshold int
	cooldown         time.Duration
	now              func() time.Time

	state    BreakerState
	failures int
	openedAt time.Time
	trialOut bool
}

func newBreaker(failureThreshold int, cooldown time.Duration, now func() time.Time) *breaker {
	return &breaker{
		failureThreshold: failureThreshold,
		cooldown:         cooldown,
		now:              now,
		state:            BreakerClosed,
	}
}

// allow reports whether a call may proceed and claims the trial slot when half open.
func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.advanceLocked()
	switch b.state {
	case BreakerClosed:
		return true
	case BreakerHalfOpen:
		if b.trialOut {
			return false
		}
		b.trialOut = true
		return true
	default:
		return false
	}
}

func (b *breaker) onSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = BreakerClosed
	b.failures = 0
	b.trialOut = false
}

func (b *breaker) onFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	if b.state == BreakerHalfOpen || (b.failureThreshold > 0 && b.failures >= b.failureThreshold) {
		b.state = BreakerOpen
		b.openedAt = b.now()
		b.trialOut = false
	}
}

func (b *breaker) current() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advanceLocked()
	return b.state
}

func (b *breaker) advanceLocked() {
	if b.state == BreakerOpen && b.now().Sub(b.openedAt) >= b.cooldown {
		b.state = BreakerHalfOpen
		b.trialOut = false
	}
}
