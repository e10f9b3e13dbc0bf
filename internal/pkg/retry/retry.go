package retry

import (
	"context"
	"math/rand"
	"time"
)

// Policy describes an exponential backoff with optional jitter and cap.
type Policy struct {
	Attempts     int
	Base         time.Duration
	Max          time.Duration
	JitterFactor float64
}

// Backoff returns the delay before retry n (0-based), without jitter.
// Used by the task worker to shape asynq's retry curve.
func (p Policy) Backoff(n int) time.Duration {
	d := p.Base
	for i := 0; i < n; i++ {
		d *= 2
		if p.Max > 0 && d > p.Max {
			return p.Max
		}
	}
	if p.Max > 0 && d > p.Max {
		return p.Max
	}
	return d
}

// Do runs fn up to p.Attempts times, sleeping with exponential backoff and
// jitter between attempts. Returns the last error, or ctx.Err() if the
// context ends while waiting.
func Do(ctx context.Context, p Policy, fn func() error) error {
	d := p.Base
	var err error

	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	for i := 0; i < p.Attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}

		delay := d
		if p.JitterFactor > 0 {
			jitter := 1 + p.JitterFactor*(2*r.Float64()-1)
			delay = time.Duration(float64(delay) * jitter)
		}
		if p.Max > 0 && delay > p.Max {
			delay = p.Max
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		d *= 2
		if p.Max > 0 && d > p.Max {
			d = p.Max
		}
	}
	return err
}
