package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/railzwaylabs/shopfaq/internal/clock"
	"github.com/railzwaylabs/shopfaq/internal/config"
	"github.com/railzwaylabs/shopfaq/internal/observability"
	"github.com/railzwaylabs/shopfaq/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Ledger  domain.Ledger
	Clock   clock.Clock
	Cfg     config.Config
	Log     *zap.Logger
	Metrics *observability.Metrics
}

type Service struct {
	ledger  domain.Ledger
	clock   clock.Clock
	loc     *time.Location
	log     *zap.Logger
	metrics *observability.Metrics
}

func New(p Params) (domain.Service, error) {
	loc, err := p.Cfg.Usage.Location()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	return &Service{
		ledger:  p.Ledger,
		clock:   p.Clock,
		loc:     loc,
		log:     p.Log.Named("usage.service"),
		metrics: p.Metrics,
	}, nil
}

func (s *Service) CurrentPeriodKey(ctx context.Context) string {
	return domain.PeriodKey(s.clock.Now(ctx), s.loc)
}

func (s *Service) Increment(ctx context.Context, shop string, metric domain.MetricType) error {
	shop = strings.TrimSpace(shop)
	if shop == "" {
		return domain.ErrInvalidShop
	}
	if !metric.Valid() {
		return domain.ErrInvalidMetricType
	}

	period := s.CurrentPeriodKey(ctx)
	if err := s.ledger.Increment(ctx, shop, metric, period); err != nil {
		s.log.Error("failed to increment usage",
			zap.String("shop", shop),
			zap.String("type", string(metric)),
			zap.String("period", period),
			zap.Error(err),
		)
		return err
	}

	if s.metrics != nil {
		s.metrics.UsageIncrements.WithLabelValues(string(metric)).Inc()
	}
	return nil
}

func (s *Service) GetUsage(ctx context.Context, shop string) (domain.Usage, error) {
	return s.GetUsageForPeriod(ctx, shop, s.CurrentPeriodKey(ctx))
}

func (s *Service) GetUsageForPeriod(ctx context.Context, shop, period string) (domain.Usage, error) {
	shop = strings.TrimSpace(shop)
	if shop == "" {
		return domain.Usage{}, domain.ErrInvalidShop
	}
	if !domain.ValidPeriod(period) {
		return domain.Usage{}, domain.ErrInvalidPeriod
	}
	return s.ledger.Get(ctx, shop, period)
}

func (s *Service) History(ctx context.Context, shop string) ([]domain.Usage, error) {
	shop = strings.TrimSpace(shop)
	if shop == "" {
		return nil, domain.ErrInvalidShop
	}
	return s.ledger.History(ctx, shop)
}
