package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Ananth-NQI/narasumber-backend/internal/services"
	"github.com/Ananth-NQI/narasumber-backend/internal/storage"
)

// CleanupJob periodically removes expired registration tokens and, when a
// pending TTL is configured, stale selection prompts.
// Session expiry is lazy and is not swept here.
type CleanupJob struct {
	store         storage.Store
	continuations services.ContinuationStore
	interval      time.Duration
	pendingTTL    time.Duration
	now           func() time.Time
	log           *logrus.Logger
}

// NewCleanupJob creates a new cleanup job
func NewCleanupJob(store storage.Store, continuations services.ContinuationStore, interval, pendingTTL time.Duration, log *logrus.Logger) *CleanupJob {
	if interval <= 0 {
		interval = time.Hour
	}
	return &CleanupJob{
		store:         store,
		continuations: continuations,
		interval:      interval,
		pendingTTL:    pendingTTL,
		now:           time.Now,
		log:           log,
	}
}

// Run sweeps on every tick until ctx is cancelled
func (j *CleanupJob) Run(ctx context.Context) error {
	j.log.WithField("interval", j.interval.String()).Info("Starting cleanup job")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.log.Info("⏹️  Cleanup job stopped")
			return nil
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep performs one cleanup pass
func (j *CleanupJob) Sweep(ctx context.Context) {
	now := j.now()

	deleted, err := j.store.DeleteExpiredGroupTokens(ctx, now)
	if err != nil {
		j.log.WithError(err).Error("❌ Failed to delete expired group tokens")
	} else if deleted > 0 {
		j.log.WithField("count", deleted).Info("Deleted expired group tokens")
	}

	if j.pendingTTL > 0 {
		if pruned := j.continuations.PruneArmedBefore(now.Add(-j.pendingTTL)); pruned > 0 {
			j.log.WithField("count", pruned).Info("Pruned stale pending selections")
		}
	}
}
