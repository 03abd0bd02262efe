package utils

import (
	"context"
	"time"
)

// Pacer enforces the fixed courtesy pause between upstream requests.
// It never retries anything; callers decide what to do with failures.
type Pacer struct {
	Interval time.Duration
	Sleep    func(ctx context.Context, d time.Duration) error
}

// NewPacer creates a pacer that sleeps for interval between requests
func NewPacer(interval time.Duration) *Pacer {
	return &Pacer{Interval: interval, Sleep: SleepContext}
}

// Wait blocks for the configured interval or until ctx is done
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.Interval <= 0 {
		return ctx.Err()
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}
	return sleep(ctx, p.Interval)
}

// SleepContext sleeps for d, returning early with ctx.Err() on cancellation
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
