package notification

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// CleanupConfig holds configuration for cleanup tasks
type CleanupConfig struct {
	RetentionDays int           // keep read notifications for N days
	Interval      time.Duration // how often Schedule runs
}

func DefaultCleanupConfig() CleanupConfig {
	return CleanupConfig{
		RetentionDays: 90,
		Interval:      24 * time.Hour,
	}
}

// CleanupService deletes read notifications past their retention.
type CleanupService struct {
	repo *Repository
	log  *zap.Logger
	now  func() time.Time
}

func NewCleanupService(repo *Repository, log *zap.Logger) *CleanupService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CleanupService{repo: repo, log: log, now: time.Now}
}

func (c *CleanupService) RunOnce(ctx context.Context, cfg CleanupConfig) (int64, error) {
	start := c.now()
	cutoff := start.AddDate(0, 0, -cfg.RetentionDays)

	deleted, err := c.repo.DeleteReadBefore(ctx, cutoff)
	if err != nil {
		c.log.Error("notification cleanup failed", zap.Error(err))
		return 0, err
	}

	c.log.Info("notification cleanup completed",
		zap.Int64("deleted", deleted),
		zap.Time("cutoff", cutoff),
		zap.Duration("took", time.Since(start)),
	)
	return deleted, nil
}

// Schedule runs RunOnce every cfg.Interval until ctx is cancelled.
func (c *CleanupService) Schedule(ctx context.Context, cfg CleanupConfig) {
	if cfg.Interval <= 0 {
		c.log.Info("scheduled notification cleanup disabled")
		return
	}

	go func() {
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				_, _ = c.RunOnce(ctx, cfg)
			case <-ctx.Done():
				c.log.Info("scheduled notification cleanup stopped")
				return
			}
		}
	}()
	c.log.Info("scheduled notification cleanup started", zap.Duration("interval", cfg.Interval))
}
