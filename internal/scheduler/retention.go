package scheduler

import (
	"context"

	webhookdomain "github.com/railzwaylabs/shopfaq/internal/webhook/domain"
	"go.uber.org/zap"
)

// PruneWebhookEventsJob drops processed webhook events past retention.
// Unprocessed events are kept so redeliveries can still complete them.
func (s *Scheduler) PruneWebhookEventsJob(ctx context.Context) error {
	run := s.startRun(ctx, "cleanup_webhook_events")
	defer s.finishRun(run)

	retentionDays := s.cfg.WebhookRetentionDays
	if retentionDays <= 0 {
		s.log.Info("webhook event retention disabled", zap.Int("days", retentionDays))
		return nil
	}

	cutoff := s.clock.Now(ctx).AddDate(0, 0, -retentionDays)
	result := s.db.WithContext(ctx).
		Where("processed_at IS NOT NULL AND received_at < ?", cutoff).
		Delete(&webhookdomain.Event{})
	if result.Error != nil {
		run.failed++
		s.log.Error("cleanup webhook events failed", zap.Error(result.Error))
		return result.Error
	}

	run.processed = int(result.RowsAffected)
	return nil
}
