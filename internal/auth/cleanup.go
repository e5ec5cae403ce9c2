package auth

import (
	"context"
	"log/slog"
	"time"
)

// Cleaner periodically deletes unverified accounts whose grace window has
// lapsed, freeing their email and username for re-registration.
type Cleaner struct {
	repo     UserRepository
	interval time.Duration
	grace    time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// NewCleaner creates a Cleaner that sweeps every interval, removing
// unverified accounts older than grace.
func NewCleaner(repo UserRepository, interval, grace time.Duration) *Cleaner {
	return &Cleaner{
		repo:     repo,
		interval: interval,
		grace:    grace,
		now:      time.Now,
	}
}

// Run sweeps on a ticker until the context is cancelled. Intended to be
// launched in its own goroutine at startup.
func (c *Cleaner) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	slog.Info("unverified-account cleanup started",
		slog.Duration("interval", c.interval),
		slog.Duration("grace", c.grace),
	)

	for {
		select {
		case <-ctx.Done():
			slog.Info("unverified-account cleanup stopped")
			return
		case <-ticker.C:
			c.sweep(ctx)
		}
	}
}

// sweep runs one deletion pass. Errors are logged, never fatal: the next
// tick retries.
func (c *Cleaner) sweep(ctx context.Context) {
	cutoff := c.now().Add(-c.grace)
	deleted, err := c.repo.DeleteUnverifiedBefore(ctx, cutoff)
	if err != nil {
		slog.Error("unverified-account sweep failed", slog.Any("error", err))
		return
	}
	if deleted > 0 {
		slog.Info("removed stale unverified accounts", slog.Int64("count", deleted))
	}
}
