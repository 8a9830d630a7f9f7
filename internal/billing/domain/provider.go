package domain

import (
	"context"
	"time"
)

// Status values reported by the external billing provider.
const (
	ProviderStatusActive    = "ACTIVE"
	ProviderStatusPending   = "PENDING"
	ProviderStatusDeclined  = "DECLINED"
	ProviderStatusCancelled = "CANCELLED"
)

// MetadataPlanID is the charge metadata key carrying the requested plan id.
const MetadataPlanID = "plan_id"

// TrialDays is the free trial granted on every paid charge.
const TrialDays = 7

type ActiveSubscription struct {
	ID               string
	Name             string
	Status           string
	CurrentPeriodEnd *time.Time
	TrialDays        int
	// Amount is the recurring price as the provider reports it, e.g. "9.00".
	Amount       string
	CurrencyCode string
	Interval     string
	Test         bool
	Metadata     map[string]string
}

type ChargeRequest struct {
	Name         string
	Amount       string
	CurrencyCode string
	Interval     string
	ReturnURL    string
	TrialDays    int
	Test         bool
	Metadata     map[string]string
}

type Charge struct {
	ID              string
	ConfirmationURL string
	Status          string
}

// Provider is the external billing system of record. Implementations return
// UserErrors for rejected requests and wrap transport failures in
// ErrProviderUnavailable.
type Provider interface {
	QueryActiveSubscriptions(ctx context.Context, shop string) ([]ActiveSubscription, error)
	CreateRecurringCharge(ctx context.Context, shop string, req ChargeRequest) (*Charge, error)
	CancelRecurringCharge(ctx context.Context, shop, chargeID string) (string, error)
}

type ProviderConfig struct {
	Provider      string
	PublicBaseURL string
	Config        map[string]any
}

type ProviderFactory interface {
	Provider() string
	NewProvider(cfg ProviderConfig) (Provider, error)
}
