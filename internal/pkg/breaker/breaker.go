package breaker

import (
	"errors"
	"sync"
	"time"
)

var ErrOpenState = errors.New("circuit breaker is open")

type State uint8

const (
	Closed State = iota
	Open
	HalfOpen
)

// Policy tunes the breaker: Threshold consecutive failures open it,
// OpenTimeout is the cool-down before probing, MaxHalfOpen bounds
// concurrent probes.
type Policy struct {
	Threshold   uint32
	OpenTimeout time.Duration
	MaxHalfOpen uint32
}

type Breaker struct {
	mu           sync.Mutex
	policy       Policy
	state        State
	failCount    uint32
	lastOpenTime time.Time
	halfOpenReq  uint32
}

func New(policy Policy) *Breaker {
	return &Breaker{
		policy: policy,
		state:  Closed,
	}
}

// Allow reports whether a call may proceed. In the Open state it returns
// ErrOpenState until OpenTimeout has elapsed, then admits a bounded number
// of half-open probes.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return nil
	case Open:
		if time.Since(b.lastOpenTime) < b.policy.OpenTimeout {
			return ErrOpenState
		}
		b.state = HalfOpen
		b.halfOpenReq = 0
		fallthrough
	case HalfOpen:
		if b.halfOpenReq >= b.policy.MaxHalfOpen {
			return ErrOpenState
		}
		b.halfOpenReq++
		return nil
	}
	return nil
}

// Success records a successful call, closing the breaker from HalfOpen.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failCount = 0
	if b.state == HalfOpen {
		b.state = Closed
		b.halfOpenReq = 0
	}
}

// Failure records a failed call. A half-open probe failure reopens
// immediately; in Closed state the breaker opens once Threshold
// consecutive failures accumulate.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == HalfOpen {
		b.state = Open
		b.lastOpenTime = time.Now()
		b.halfOpenReq = 0
		return
	}

	b.failCount++
	if b.state == Closed && b.failCount >= b.policy.Threshold {
		b.state = Open
		b.lastOpenTime = time.Now()
	}
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
