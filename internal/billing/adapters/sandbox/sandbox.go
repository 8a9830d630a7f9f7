// Package sandbox is an in-memory billing provider for development and
// tests. Charges are created PENDING and move to ACTIVE or DECLINED when the
// merchant answers the sandbox confirmation page.
package sandbox

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/railzwaylabs/shopfaq/internal/billing/domain"
	"github.com/shopspring/decimal"
)

const ProviderName = "sandbox"

// ConfirmPath is the route serving the sandbox confirmation page.
const ConfirmPath = "/sandbox/confirm"

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return ProviderName
}

func (f *Factory) NewProvider(cfg domain.ProviderConfig) (domain.Provider, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/")
	if base == "" {
		base = "http://localhost:8080"
	}
	return New(base), nil
}

type charge struct {
	shop      string
	req       domain.ChargeRequest
	status    string
	createdAt time.Time
	periodEnd *time.Time
}

type Provider struct {
	mu      sync.Mutex
	baseURL string
	seq     int
	charges map[string]*charge
	now     func() time.Time
}

func New(baseURL string) *Provider {
	return &Provider{
		baseURL: baseURL,
		charges: make(map[string]*charge),
		now:     time.Now,
	}
}

func (p *Provider) QueryActiveSubscriptions(ctx context.Context, shop string) ([]domain.ActiveSubscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var out []domain.ActiveSubscription
	for id, c := range p.charges {
		if c.shop != shop || c.status != domain.ProviderStatusActive {
			continue
		}
		out = append(out, domain.ActiveSubscription{
			ID:               id,
			Name:             c.req.Name,
			Status:           c.status,
			CurrentPeriodEnd: c.periodEnd,
			TrialDays:        c.req.TrialDays,
			Amount:           c.req.Amount,
			CurrencyCode:     c.req.CurrencyCode,
			Interval:         c.req.Interval,
			Test:             c.req.Test,
			Metadata:         copyMetadata(c.req.Metadata),
		})
	}
	return out, nil
}

func (p *Provider) CreateRecurringCharge(ctx context.Context, shop string, req domain.ChargeRequest) (*domain.Charge, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	if ue := validate(req); len(ue) > 0 {
		return nil, ue
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.seq++
	id := fmt.Sprintf("gid://sandbox/AppSubscription/%d", p.seq)
	req.Metadata = copyMetadata(req.Metadata)
	p.charges[id] = &charge{
		shop:      shop,
		req:       req,
		status:    domain.ProviderStatusPending,
		createdAt: p.now(),
	}

	q := url.Values{}
	q.Set("charge_id", id)
	q.Set("shop", shop)
	return &domain.Charge{
		ID:              id,
		ConfirmationURL: p.baseURL + ConfirmPath + "?" + q.Encode(),
		Status:          domain.ProviderStatusPending,
	}, nil
}

func (p *Provider) CancelRecurringCharge(ctx context.Context, shop, chargeID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	c, ok := p.charges[chargeID]
	if !ok || c.shop != shop {
		return "", domain.UserErrors{{Field: []string{"id"}, Message: "Subscription not found"}}
	}
	if c.status == domain.ProviderStatusCancelled {
		return "", domain.UserErrors{{Field: []string{"id"}, Message: "Subscription has already been cancelled"}}
	}
	c.status = domain.ProviderStatusCancelled
	return c.status, nil
}

// Confirm answers the confirmation page. It returns the URL the merchant is
// sent back to: the charge's return URL, with charge_id appended when the
// charge was approved.
func (p *Provider) Confirm(chargeID string, approve bool) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, ok := p.charges[chargeID]
	if !ok {
		return "", domain.UserErrors{{Field: []string{"charge_id"}, Message: "Charge not found"}}
	}
	if c.status != domain.ProviderStatusPending {
		return "", domain.UserErrors{{Field: []string{"charge_id"}, Message: "Charge is no longer pending"}}
	}

	ret, err := url.Parse(c.req.ReturnURL)
	if err != nil {
		return "", domain.UserErrors{{Field: []string{"returnUrl"}, Message: "Return url is invalid"}}
	}

	if !approve {
		c.status = domain.ProviderStatusDeclined
		return ret.String(), nil
	}

	// An approved charge replaces the shop's current one.
	for id, other := range p.charges {
		if id != chargeID && other.shop == c.shop && other.status == domain.ProviderStatusActive {
			other.status = domain.ProviderStatusCancelled
		}
	}
	// First period ends after the trial plus one interval.
	end := p.now().AddDate(0, 0, c.req.TrialDays+30).UTC()
	c.status = domain.ProviderStatusActive
	c.periodEnd = &end

	q := ret.Query()
	q.Set("charge_id", chargeID)
	ret.RawQuery = q.Encode()
	return ret.String(), nil
}

// Expire drops every active charge of shop, as if the provider ended it.
func (p *Provider) Expire(shop string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.charges {
		if c.shop == shop && c.status == domain.ProviderStatusActive {
			c.status = "EXPIRED"
		}
	}
}

// ChargeStatus reports the sandbox status of chargeID.
func (p *Provider) ChargeStatus(chargeID string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.charges[chargeID]
	if !ok {
		return "", false
	}
	return c.status, true
}

func validate(req domain.ChargeRequest) domain.UserErrors {
	var ue domain.UserErrors
	if strings.TrimSpace(req.Name) == "" {
		ue = append(ue, domain.UserError{Field: []string{"name"}, Message: "Name can't be blank"})
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		ue = append(ue, domain.UserError{Field: []string{"lineItems", "price", "amount"}, Message: "Price must be greater than zero"})
	}
	if strings.TrimSpace(req.ReturnURL) == "" {
		ue = append(ue, domain.UserError{Field: []string{"returnUrl"}, Message: "Return url can't be blank"})
	}
	return ue
}

func copyMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
