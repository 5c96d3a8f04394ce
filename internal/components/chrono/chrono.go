package chrono

import (
	"context"
	"time"
)

// TimeAPI is the interface anything that needs the current time should depend on.
type TimeAPI interface {
	Now() time.Time
}

// SleepAPI is the interface anything that needs to wait should depend on.
type SleepAPI interface {
	// Sleep blocks for the given duration or until the context is cancelled, in which case
	// ctx.Err() is returned.
	Sleep(ctx context.Context, d time.Duration) error
}

type StandardTime struct{}

func (StandardTime) Now() time.Time {
	return time.Now()
}

type StandardSleep struct{}

func (StandardSleep) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
