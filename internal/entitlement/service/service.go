package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	billingdomain "github.com/railzwaylabs/shopfaq/internal/billing/domain"
	"github.com/railzwaylabs/shopfaq/internal/entitlement/domain"
	"github.com/railzwaylabs/shopfaq/internal/observability"
	plandomain "github.com/railzwaylabs/shopfaq/internal/plan/domain"
	subscriptiondomain "github.com/railzwaylabs/shopfaq/internal/subscription/domain"
	usagedomain "github.com/railzwaylabs/shopfaq/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Params struct {
	fx.In

	Log       *zap.Logger
	Catalog   *plandomain.Catalog
	Billing   billingdomain.Service
	Usage     usagedomain.Service
	Published domain.PublishedCounter
	Metrics   *observability.Metrics
}

type Service struct {
	log       *zap.Logger
	catalog   *plandomain.Catalog
	billing   billingdomain.Service
	usage     usagedomain.Service
	published domain.PublishedCounter
	metrics   *observability.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		log:       p.Log.Named("entitlement.service"),
		catalog:   p.Catalog,
		billing:   p.Billing,
		usage:     p.Usage,
		published: p.Published,
		metrics:   p.Metrics,
	}
}

type snapshot struct {
	sub       *subscriptiondomain.Subscription
	usage     usagedomain.Usage
	published int64
}

func (s *Service) gather(ctx context.Context, shop string) (snapshot, error) {
	var snap snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sub, err := s.billing.GetSubscription(gctx, shop)
		if err != nil {
			return fmt.Errorf("load subscription: %w", err)
		}
		snap.sub = sub
		return nil
	})
	g.Go(func() error {
		usage, err := s.usage.GetUsage(gctx, shop)
		if err != nil {
			return fmt.Errorf("load usage: %w", err)
		}
		snap.usage = usage
		return nil
	})
	g.Go(func() error {
		n, err := s.published.CountPublished(gctx, shop)
		if err != nil {
			return fmt.Errorf("count published: %w", err)
		}
		snap.published = n
		return nil
	})

	if err := g.Wait(); err != nil {
		return snapshot{}, err
	}
	return snap, nil
}

func (s *Service) CanPerform(ctx context.Context, shop string, action domain.Action) (domain.Decision, error) {
	shop = strings.TrimSpace(shop)
	if shop == "" {
		return domain.Decision{}, domain.ErrInvalidShop
	}

	snap, err := s.gather(ctx, shop)
	if err != nil {
		s.log.Error("entitlement inputs unavailable", zap.String("shop", shop), zap.String("action", string(action)), zap.Error(err))
		return domain.Decision{}, err
	}
	plan := s.catalog.Get(snap.sub.Plan)

	var (
		key   plandomain.LimitKey
		usage int64
	)
	switch action {
	case domain.ActionGenerate:
		key, usage = plandomain.LimitGenerationsPerMonth, snap.usage.Generation
	case domain.ActionPublishFAQ:
		key, usage = plandomain.LimitProducts, snap.published
	default:
		s.record(action, true)
		return domain.Decision{Allowed: true, Action: action, Plan: plan}, nil
	}

	check := s.catalog.CheckLimit(plan.ID, key, usage)
	decision := domain.Decision{
		Allowed:  check.Allowed,
		Action:   action,
		LimitKey: key,
		Usage:    usage,
		Limit:    check.Limit,
		Plan:     plan,
	}
	if !check.Allowed {
		decision.Reason = denialReason(key, *check.Limit, plan.Name)
		s.log.Info("entitlement denied",
			zap.String("shop", shop),
			zap.String("action", string(action)),
			zap.String("plan", string(plan.ID)),
			zap.Int64("usage", usage),
			zap.Int64("limit", *check.Limit),
		)
	}
	s.record(action, check.Allowed)
	return decision, nil
}

func (s *Service) Summary(ctx context.Context, shop string) (domain.Summary, error) {
	shop = strings.TrimSpace(shop)
	if shop == "" {
		return domain.Summary{}, domain.ErrInvalidShop
	}

	snap, err := s.gather(ctx, shop)
	if err != nil {
		return domain.Summary{}, err
	}
	plan := s.catalog.Get(snap.sub.Plan)

	return domain.Summary{
		Subscription: snap.sub,
		Plan:         plan,
		Period:       snap.usage.Period,
		Generations:  meter(snap.usage.Generation, plan.Limits.GenerationsPerMonth),
		Products:     meter(snap.published, plan.Limits.Products),
		Plans:        s.catalog.Plans(),
	}, nil
}

func (s *Service) record(action domain.Action, allowed bool) {
	if s.metrics == nil {
		return
	}
	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	label := string(action)
	if action != domain.ActionGenerate && action != domain.ActionPublishFAQ {
		label = "other"
	}
	s.metrics.EntitlementDecisions.WithLabelValues(label, outcome).Inc()
}

func denialReason(key plandomain.LimitKey, limit int64, planName string) string {
	switch key {
	case plandomain.LimitGenerationsPerMonth:
		return fmt.Sprintf("You've used all %d AI generations this month on the %s plan.", limit, planName)
	case plandomain.LimitProducts:
		return fmt.Sprintf("You've reached the %d-product limit on the %s plan.", limit, planName)
	default:
		return fmt.Sprintf("You've reached the %s limit on the %s plan.", key, planName)
	}
}

// meter reports percent 0 for unbounded limits.
func meter(used int64, limit plandomain.Limit) domain.Meter {
	bound, ok := limit.Value()
	if !ok {
		return domain.Meter{Used: used}
	}
	m := domain.Meter{Used: used, Limit: &bound}
	switch {
	case bound > 0:
		m.Percent = int(math.Round(float64(used) / float64(bound) * 100))
	case used > 0:
		m.Percent = 100
	}
	return m
}
