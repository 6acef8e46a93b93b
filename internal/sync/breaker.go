package sync

import (
	"math"
	"sync/atomic"
	"time"
)

const (
	circuitClosed   uint32 = 0
	circuitOpen     uint32 = 1
	circuitHalfOpen uint32 = 2
)

// circuitBreaker guards the remote mirror against hammering an endpoint
// that is already failing. Adapted from the teacher's lock-free CAS-loop
// implementation.
type circuitBreaker struct {
	failures    atomic.Int32
	threshold   int32
	resetAfter  time.Duration
	state       atomic.Uint32
	lastFailure atomic.Int64
}

func newCircuitBreaker(threshold int32, resetAfter time.Duration) *circuitBreaker {
	return &circuitBreaker{threshold: threshold, resetAfter: resetAfter}
}

func (cb *circuitBreaker) Allow() bool {
	for {
		switch cb.state.Load() {
		case circuitOpen:
			lastFail := time.Unix(0, cb.lastFailure.Load())
			if time.Since(lastFail) > cb.resetAfter {
				if cb.state.CompareAndSwap(circuitOpen, circuitHalfOpen) {
					return true
				}
				continue
			}
			return false
		case circuitHalfOpen:
			return false
		default:
			return true
		}
	}
}

func (cb *circuitBreaker) RecordSuccess() {
	cb.failures.Store(0)
	cb.state.Store(circuitClosed)
}

func (cb *circuitBreaker) RecordFailure() {
	for {
		current := cb.failures.Load()
		if current == math.MaxInt32 {
			return
		}
		next := current + 1
		if !cb.failures.CompareAndSwap(current, next) {
			continue
		}
		if next >= cb.threshold {
			if cb.state.CompareAndSwap(circuitClosed, circuitOpen) ||
				cb.state.CompareAndSwap(circuitHalfOpen, circuitOpen) {
				cb.lastFailure.Store(time.Now().UnixNano())
			}
		}
		return
	}
}

func (cb *circuitBreaker) State() string {
	switch cb.state.Load() {
	case circuitClosed:
		return "closed"
	case circuitOpen:
		return "open"
	case circuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}
