package migration

import (
	"context"
	"time"
)

// Pacing holds the fixed delays that keep a pass under the remote rate limits.
type Pacing struct {
	// AfterDetail follows every successful ticket detail fetch.
	AfterDetail time.Duration
	// BetweenComments follows every comment write.
	BetweenComments time.Duration
	// AfterIssue follows every successfully migrated ticket.
	AfterIssue time.Duration
}

// DefaultPacing returns the delays used when none are configured.
func DefaultPacing() Pacing {
	return Pacing{
		AfterDetail:     time.Second,
		BetweenComments: time.Second,
		AfterIssue:      2 * time.Second,
	}
}

// Pacer waits between outbound calls.
type Pacer interface {
	Wait(ctx context.Context, d time.Duration) error
}

// SleepPacer waits for the full delay unless ctx is cancelled first.
type SleepPacer struct{}

// Wait blocks for d or until ctx is done.
func (SleepPacer) Wait(ctx context.Context, d time.Duration) error {
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
