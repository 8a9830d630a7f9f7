package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/railzwaylabs/shopfaq/internal/billing/domain"
	"github.com/railzwaylabs/shopfaq/internal/config"
	"github.com/railzwaylabs/shopfaq/internal/observability"
	plandomain "github.com/railzwaylabs/shopfaq/internal/plan/domain"
	subscriptiondomain "github.com/railzwaylabs/shopfaq/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Cfg      config.Config
	Catalog  *plandomain.Catalog
	Repo     subscriptiondomain.Repository
	Provider domain.Provider
	Metrics  *observability.Metrics
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	catalog  *plandomain.Catalog
	repo     subscriptiondomain.Repository
	provider domain.Provider
	metrics  *observability.Metrics

	timeout       time.Duration
	testMode      bool
	currency      string
	publicBaseURL string
}

func New(p Params) domain.Service {
	timeout := p.Cfg.Billing.ProviderTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	currency := p.Cfg.Billing.Currency
	if currency == "" {
		currency = "USD"
	}
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("billing.service"),
		catalog:       p.Catalog,
		repo:          p.Repo,
		provider:      p.Provider,
		metrics:       p.Metrics,
		timeout:       timeout,
		testMode:      p.Cfg.ChargesInTestMode(),
		currency:      currency,
		publicBaseURL: p.Cfg.Billing.PublicBaseURL,
	}
}

func (s *Service) GetSubscription(ctx context.Context, shop string) (*subscriptiondomain.Subscription, error) {
	shop, err := normalizeShop(shop)
	if err != nil {
		return nil, err
	}
	return s.repo.GetOrCreate(ctx, s.db, shop)
}

func (s *Service) SyncSubscription(ctx context.Context, shop string) (*subscriptiondomain.Subscription, error) {
	shop, err := normalizeShop(shop)
	if err != nil {
		return nil, err
	}

	current, err := s.repo.GetOrCreate(ctx, s.db, shop)
	if err != nil {
		return nil, err
	}

	var actives []domain.ActiveSubscription
	if err := s.call(ctx, "query_active_subscriptions", func(ctx context.Context) error {
		var err error
		actives, err = s.provider.QueryActiveSubscriptions(ctx, shop)
		return err
	}); err != nil {
		s.log.Warn("subscription sync failed", zap.String("shop", shop), zap.Error(err))
		return nil, err
	}

	next := *current
	if len(actives) == 0 {
		next.Downgrade()
	} else {
		active := actives[0]
		plan := s.resolvePlan(active)

		next.Plan = plan.ID
		if active.Status == domain.ProviderStatusActive {
			next.Status = subscriptiondomain.StatusActive
		} else {
			next.Status = subscriptiondomain.StatusCancelled
		}
		chargeID := active.ID
		next.ExternalChargeID = &chargeID
		next.ExternalConfirmationURL = nil
		next.PendingPlan = nil
		next.CurrentPeriodEnd = active.CurrentPeriodEnd
	}

	if sameState(current, &next) {
		return current, nil
	}

	stored, err := s.repo.Upsert(ctx, s.db, &next)
	if err != nil {
		return nil, err
	}
	s.log.Info("subscription synced",
		zap.String("shop", shop),
		zap.String("plan", string(stored.Plan)),
		zap.String("status", string(stored.Status)),
		zap.Int("active_count", len(actives)),
	)
	return stored, nil
}

func (s *Service) CreateSubscription(ctx context.Context, shop string, planID plandomain.PlanID, returnURL string) (string, error) {
	shop, err := normalizeShop(shop)
	if err != nil {
		return "", err
	}

	plan, ok := s.catalog.Lookup(planID)
	if !ok || plan.IsFree() {
		return "", domain.ErrFreePlanCharge
	}

	returnURL, err = s.resolveReturnURL(shop, plan.ID, returnURL)
	if err != nil {
		return "", err
	}

	current, err := s.repo.GetOrCreate(ctx, s.db, shop)
	if err != nil {
		return "", err
	}

	currency := plan.Currency
	if currency == "" {
		currency = s.currency
	}
	name := plan.ExternalName
	if name == "" {
		name = plan.Name
	}
	req := domain.ChargeRequest{
		Name:         name,
		Amount:       formatMinorUnits(plan.PriceMinor),
		CurrencyCode: currency,
		Interval:     plan.Interval,
		ReturnURL:    returnURL,
		TrialDays:    domain.TrialDays,
		Test:         s.testMode,
		Metadata:     map[string]string{domain.MetadataPlanID: string(plan.ID)},
	}

	var charge *domain.Charge
	if err := s.call(ctx, "create_recurring_charge", func(ctx context.Context) error {
		var err error
		charge, err = s.provider.CreateRecurringCharge(ctx, shop, req)
		return err
	}); err != nil {
		s.log.Warn("create charge failed", zap.String("shop", shop), zap.String("plan", string(plan.ID)), zap.Error(err))
		return "", err
	}
	if charge == nil || charge.ID == "" || charge.ConfirmationURL == "" {
		return "", fmt.Errorf("%w: create_recurring_charge returned no charge", domain.ErrProviderUnavailable)
	}

	pending := *current
	chargeID, confirmURL, requested := charge.ID, charge.ConfirmationURL, plan.ID
	pending.Status = subscriptiondomain.StatusPending
	pending.ExternalChargeID = &chargeID
	pending.ExternalConfirmationURL = &confirmURL
	pending.PendingPlan = &requested

	if _, err := s.repo.Upsert(ctx, s.db, &pending); err != nil {
		return "", err
	}

	s.log.Info("charge created",
		zap.String("shop", shop),
		zap.String("plan", string(plan.ID)),
		zap.String("charge_id", chargeID),
		zap.Bool("test", req.Test),
	)
	return confirmURL, nil
}

func (s *Service) ConfirmCharge(ctx context.Context, shop, chargeID string, planID plandomain.PlanID) (*subscriptiondomain.Subscription, error) {
	shop, err := normalizeShop(shop)
	if err != nil {
		return nil, err
	}
	chargeID = strings.TrimSpace(chargeID)
	if chargeID == "" {
		s.log.Info("charge declined by merchant", zap.String("shop", shop))
		return nil, domain.ErrChargeDeclined
	}

	before, err := s.repo.GetOrCreate(ctx, s.db, shop)
	if err != nil {
		return nil, err
	}

	synced, err := s.SyncSubscription(ctx, shop)
	if err != nil {
		return nil, err
	}
	if !s.catalog.Get(synced.Plan).IsFree() {
		return synced, nil
	}

	// The provider may not list a just-approved charge yet. Apply the
	// requested plan until the next sync corrects it.
	requested := planID
	if before.PendingPlan != nil && before.ExternalChargeID != nil && *before.ExternalChargeID == chargeID {
		requested = *before.PendingPlan
	}
	plan, ok := s.catalog.Lookup(requested)
	if !ok || plan.IsFree() {
		return synced, nil
	}

	fallback := *synced
	fallback.Plan = plan.ID
	fallback.Status = subscriptiondomain.StatusActive
	fallback.ExternalChargeID = &chargeID
	fallback.ExternalConfirmationURL = nil
	fallback.PendingPlan = nil

	stored, err := s.repo.Upsert(ctx, s.db, &fallback)
	if err != nil {
		return nil, err
	}
	s.log.Warn("applied requested plan before provider confirmed it",
		zap.String("shop", shop),
		zap.String("plan", string(plan.ID)),
		zap.String("charge_id", chargeID),
	)
	return stored, nil
}

func (s *Service) CancelSubscription(ctx context.Context, shop string) (*subscriptiondomain.Subscription, error) {
	shop, err := normalizeShop(shop)
	if err != nil {
		return nil, err
	}

	current, err := s.repo.GetOrCreate(ctx, s.db, shop)
	if err != nil {
		return nil, err
	}

	if current.HasCharge() {
		chargeID := *current.ExternalChargeID
		var status string
		if err := s.call(ctx, "cancel_recurring_charge", func(ctx context.Context) error {
			var err error
			status, err = s.provider.CancelRecurringCharge(ctx, shop, chargeID)
			return err
		}); err != nil {
			s.log.Warn("cancel charge failed", zap.String("shop", shop), zap.String("charge_id", chargeID), zap.Error(err))
			return nil, err
		}
		s.log.Info("charge cancelled", zap.String("shop", shop), zap.String("charge_id", chargeID), zap.String("status", status))
	}

	next := *current
	next.Downgrade()
	return s.repo.Upsert(ctx, s.db, &next)
}

func (s *Service) PurgeShop(ctx context.Context, shop string) error {
	shop, err := normalizeShop(shop)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, s.db, shop)
}

// resolvePlan maps an external subscription to a catalog plan: the plan_id
// metadata first, then exact price equality, else free.
func (s *Service) resolvePlan(active domain.ActiveSubscription) plandomain.Plan {
	if id, ok := active.Metadata[domain.MetadataPlanID]; ok {
		if plan, ok := s.catalog.Lookup(plandomain.PlanID(id)); ok {
			return plan
		}
	}

	minor, ok := parseMinorUnits(active.Amount)
	if !ok {
		s.log.Warn("unparseable subscription amount", zap.String("charge_id", active.ID), zap.String("amount", active.Amount))
		return s.catalog.Free()
	}
	if plan, ok := s.catalog.MatchPrice(minor, active.CurrencyCode); ok {
		return plan
	}
	return s.catalog.Free()
}

// call bounds a provider call by the configured timeout and classifies its
// failure. User errors pass through; everything else is retryable.
func (s *Service) call(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := fn(ctx)
	if err == nil {
		return nil
	}

	if _, ok := domain.AsUserErrors(err); ok {
		s.countProviderError(op, "user_error")
		return err
	}
	s.countProviderError(op, "unavailable")
	if domain.IsRetryable(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s timed out after %s", domain.ErrProviderUnavailable, op, s.timeout)
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrProviderUnavailable, op, err)
}

func (s *Service) countProviderError(op, kind string) {
	if s.metrics != nil {
		s.metrics.ProviderErrors.WithLabelValues(op, kind).Inc()
	}
}

func (s *Service) resolveReturnURL(shop string, planID plandomain.PlanID, returnURL string) (string, error) {
	returnURL = strings.TrimSpace(returnURL)
	if returnURL == "" {
		q := url.Values{}
		q.Set("shop", shop)
		q.Set("plan", string(planID))
		return s.publicBaseURL + "/api/billing/callback?" + q.Encode(), nil
	}

	u, err := url.Parse(returnURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", domain.ErrInvalidReturnURL
	}
	return returnURL, nil
}

func normalizeShop(shop string) (string, error) {
	shop = strings.ToLower(strings.TrimSpace(shop))
	if shop == "" {
		return "", domain.ErrInvalidShop
	}
	return shop, nil
}

func sameState(a, b *subscriptiondomain.Subscription) bool {
	return a.Plan == b.Plan &&
		a.Status == b.Status &&
		equalString(a.ExternalChargeID, b.ExternalChargeID) &&
		equalString(a.ExternalConfirmationURL, b.ExternalConfirmationURL) &&
		equalPlan(a.PendingPlan, b.PendingPlan) &&
		equalTime(a.CurrentPeriodEnd, b.CurrentPeriodEnd)
}

func equalString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalPlan(a, b *plandomain.PlanID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
