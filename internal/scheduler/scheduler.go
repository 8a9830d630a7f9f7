package scheduler

import (
	"context"
	"fmt"
	"time"

	billingdomain "github.com/railzwaylabs/shopfaq/internal/billing/domain"
	"github.com/railzwaylabs/shopfaq/internal/clock"
	"github.com/railzwaylabs/shopfaq/internal/config"
	subscriptiondomain "github.com/railzwaylabs/shopfaq/internal/subscription/domain"
	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("scheduler",
	fx.Provide(New),
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Cfg     config.Config
	Clock   clock.Clock
	Repo    subscriptiondomain.Repository
	Billing billingdomain.Service
}

// Scheduler runs the background reconciliation jobs on cron specs.
type Scheduler struct {
	db      *gorm.DB
	log     *zap.Logger
	cfg     config.SchedulerConfig
	clock   clock.Clock
	repo    subscriptiondomain.Repository
	billing billingdomain.Service
}

func New(p Params) (*Scheduler, error) {
	cfg := p.Cfg.Scheduler
	if cfg.Enabled {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		for name, spec := range map[string]string{"SCHEDULER_SYNC_SPEC": cfg.SyncSpec, "SCHEDULER_RETENTION_SPEC": cfg.RetentionSpec} {
			if spec == "" {
				continue
			}
			if _, err := parser.Parse(spec); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", config.ErrInvalidConfig, name, err)
			}
		}
	}

	return &Scheduler{
		db:      p.DB,
		log:     p.Log.Named("scheduler"),
		cfg:     cfg,
		clock:   p.Clock,
		repo:    p.Repo,
		billing: p.Billing,
	}, nil
}

// RunForever schedules every job and blocks until ctx is cancelled. Running
// jobs are allowed to finish before it returns.
func (s *Scheduler) RunForever(ctx context.Context) {
	if !s.cfg.Enabled {
		s.log.Info("scheduler disabled")
		return
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	s.add(ctx, c, "reconcile_pending_subscriptions", s.cfg.SyncSpec, s.ReconcilePendingJob)
	s.add(ctx, c, "cleanup_webhook_events", s.cfg.RetentionSpec, s.PruneWebhookEventsJob)

	c.Start()
	s.log.Info("scheduler started",
		zap.String("sync_spec", s.cfg.SyncSpec),
		zap.String("retention_spec", s.cfg.RetentionSpec))

	<-ctx.Done()
	<-c.Stop().Done()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) add(ctx context.Context, c *cron.Cron, name, spec string, job func(context.Context) error) {
	if spec == "" {
		return
	}
	_, err := c.AddFunc(spec, func() {
		if err := job(ctx); err != nil {
			s.log.Error("scheduler job failed", zap.String("job", name), zap.Error(err))
		}
	})
	if err != nil {
		s.log.Error("scheduler job not registered", zap.String("job", name), zap.String("spec", spec), zap.Error(err))
	}
}

// ReconcilePendingJob re-syncs shops left pending longer than the grace
// period, covering merchants who never came back through the callback.
// A failing shop is logged and skipped.
func (s *Scheduler) ReconcilePendingJob(ctx context.Context) error {
	run := s.startRun(ctx, "reconcile_pending_subscriptions")
	defer s.finishRun(run)

	pending, err := s.repo.ListByStatus(ctx, s.db, subscriptiondomain.StatusPending)
	if err != nil {
		s.log.Error("list pending subscriptions failed", zap.Error(err))
		return err
	}

	cutoff := s.clock.Now(ctx).Add(-s.cfg.PendingGrace)
	for _, sub := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if sub.UpdatedAt.After(cutoff) {
			run.skipped++
			continue
		}

		synced, err := s.billing.SyncSubscription(ctx, sub.Shop)
		if err != nil {
			run.failed++
			s.log.Warn("pending subscription sync failed",
				zap.String("shop", sub.Shop),
				zap.Error(err))
			continue
		}
		run.processed++
		s.log.Info("pending subscription reconciled",
			zap.String("shop", sub.Shop),
			zap.String("plan", string(synced.Plan)),
			zap.String("status", string(synced.Status)))
	}
	return nil
}

type jobRun struct {
	name      string
	startedAt time.Time
	processed int
	skipped   int
	failed    int
}

func (s *Scheduler) startRun(ctx context.Context, name string) *jobRun {
	run := &jobRun{name: name, startedAt: s.clock.Now(ctx)}
	s.log.Debug("scheduler job started", zap.String("job", name))
	return run
}

func (s *Scheduler) finishRun(run *jobRun) {
	s.log.Info("scheduler job finished",
		zap.String("job", run.name),
		zap.Int("processed", run.processed),
		zap.Int("skipped", run.skipped),
		zap.Int("failed", run.failed),
		zap.Duration("duration", time.Since(run.startedAt)))
}
