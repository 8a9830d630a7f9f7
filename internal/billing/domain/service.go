package domain

import (
	"context"

	plandomain "github.com/railzwaylabs/shopfaq/internal/plan/domain"
	subscriptiondomain "github.com/railzwaylabs/shopfaq/internal/subscription/domain"
)

type Service interface {
	// GetSubscription returns the shop's record, creating {free, active}
	// on first access.
	GetSubscription(ctx context.Context, shop string) (*subscriptiondomain.Subscription, error)
	// SyncSubscription overwrites the local record with the provider's view.
	SyncSubscription(ctx context.Context, shop string) (*subscriptiondomain.Subscription, error)
	// CreateSubscription creates an external charge for planID and records
	// it as pending. The current plan is not advanced.
	CreateSubscription(ctx context.Context, shop string, planID plandomain.PlanID, returnURL string) (string, error)
	// ConfirmCharge handles the merchant's return from checkout.
	ConfirmCharge(ctx context.Context, shop, chargeID string, planID plandomain.PlanID) (*subscriptiondomain.Subscription, error)
	CancelSubscription(ctx context.Context, shop string) (*subscriptiondomain.Subscription, error)
	// PurgeShop drops the local record after uninstall.
	PurgeShop(ctx context.Context, shop string) error
}
