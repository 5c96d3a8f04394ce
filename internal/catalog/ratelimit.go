package catalog

import (
	"context"
	"forumdl/internal/components/chrono"
	"math/rand"
	"time"
)

// DelayWindow is an inclusive range of milliseconds, {0, 0} disables the delay.
type DelayWindow struct {
	MinMs int64 `json:"min_ms"`
	MaxMs int64 `json:"max_ms"`
}

// RateLimiter waits a uniformly random amount of time inside a window between requests the
// server might consider abusive.
type RateLimiter struct {
	window DelayWindow
	sleep  chrono.SleepAPI
	// pick returns a number in [0, n).
	pick func(n int64) int64
}

func NewRateLimiter(window DelayWindow, sleep chrono.SleepAPI) RateLimiter {
	return RateLimiter{
		window: window,
		sleep:  sleep,
		pick:   rand.Int63n,
	}
}

// Wait delays for the configured window.
func (r RateLimiter) Wait(ctx context.Context) error {
	return r.Delay(ctx, r.window.MinMs, r.window.MaxMs)
}

// Delay waits for a uniformly random integer number of milliseconds in [minMs, maxMs].
func (r RateLimiter) Delay(ctx context.Context, minMs, maxMs int64) error {
	if minMs > maxMs {
		minMs, maxMs = maxMs, minMs
	}
	if minMs < 0 {
		minMs = 0
	}
	if maxMs <= 0 {
		return nil
	}
	ms := minMs + r.pick(maxMs-minMs+1)
	return r.sleep.Sleep(ctx, time.Duration(ms)*time.Millisecond)
}
