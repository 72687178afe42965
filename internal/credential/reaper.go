package credential

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// ReapObserver is told how many tokens each sweep removed.
type ReapObserver interface {
	ObserveReaped(n int)
}

// Reaper deletes share tokens that expired more than the retention window ago. Expiry is already
// enforced at redemption; the sweep only keeps the table small.
type Reaper struct {
	shares    ShareRepositoryAPI
	retention time.Duration
	observer  ReapObserver
	logger    *slog.Logger
	cron      *cron.Cron
	now       func() time.Time
}

func NewReaper(shares ShareRepositoryAPI, retention time.Duration, observer ReapObserver, logger *slog.Logger) *Reaper {
	if retention < 0 {
		retention = 0
	}
	return &Reaper{
		shares:    shares,
		retention: retention,
		observer:  observer,
		logger:    logger.With("component", "share_reaper"),
		cron:      cron.New(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Sweep runs one pass and returns the number of tokens removed.
func (r *Reaper) Sweep(ctx context.Context) (int, error) {
	cutoff := r.now().Add(-r.retention)
	n, err := r.shares.DeleteExpired(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if r.observer != nil {
		r.observer.ObserveReaped(int(n))
	}
	if n > 0 {
		r.logger.Info("expired share tokens removed", "count", n, "cutoff", cutoff)
	}
	return int(n), nil
}

// Start schedules Sweep with a cron spec such as "@every 1h".
func (r *Reaper) Start(schedule string) error {
	_, err := r.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := r.Sweep(ctx); err != nil {
			r.logger.Error("share token sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid reaper schedule %q: %w", schedule, err)
	}
	r.cron.Start()
	r.logger.Info("share reaper started", "schedule", schedule, "retention", r.retention)
	return nil
}

// Stop waits for a running sweep to finish or ctx to end.
func (r *Reaper) Stop(ctx context.Context) {
	done := r.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
