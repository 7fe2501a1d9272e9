package audit

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-co-op/gocron"
)

// Purger deletes access events created before a cutoff.
type Purger interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Retention periodically purges access events older than the retention
// period.
type Retention struct {
	store     Purger
	audit     Logger
	logger    *slog.Logger
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
	scheduler *gocron.Scheduler
}

func NewRetention(store Purger, auditLogger Logger, logger *slog.Logger, retention, interval time.Duration) *Retention {
	return &Retention{
		store:     store,
		audit:     auditLogger,
		logger:    logger.With("component", "audit_retention"),
		retention: retention,
		interval:  interval,
		now:       time.Now,
	}
}

// RunOnce purges once and returns the number of deleted events.
func (r *Retention) RunOnce(ctx context.Context) (int64, error) {
	cutoff := r.now().Add(-r.retention)

	deleted, err := r.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge access events: %w", err)
	}

	if deleted > 0 {
		_ = r.audit.Log(ctx, Event{
			EventType: EventAccessEventsPurge,
			Source:    "dashboard",
			Success:   true,
			Metadata: map[string]string{
				"deleted": strconv.FormatInt(deleted, 10),
				"cutoff":  cutoff.UTC().Format(time.RFC3339),
			},
		})
	}

	return deleted, nil
}

// Start schedules the purge and runs it immediately. Stop must be called
// to release the scheduler goroutine.
func (r *Retention) Start(ctx context.Context) error {
	r.scheduler = gocron.NewScheduler(time.UTC)
	r.scheduler.SingletonModeAll()

	_, err := r.scheduler.Every(r.interval).StartImmediately().Do(func() {
		jobCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		deleted, err := r.RunOnce(jobCtx)
		if err != nil {
			r.logger.Error("retention run failed", slog.String("error", err.Error()))
			return
		}
		r.logger.Debug("retention run finished", slog.Int64("deleted", deleted))
	})
	if err != nil {
		return fmt.Errorf("schedule retention: %w", err)
	}

	r.scheduler.StartAsync()
	r.logger.Info("audit retention started",
		slog.Duration("retention", r.retention),
		slog.Duration("interval", r.interval),
	)
	return nil
}

func (r *Retention) Stop() {
	if r.scheduler != nil {
		r.scheduler.Stop()
	}
}
