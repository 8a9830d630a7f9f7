package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	plandomain "github.com/railzwaylabs/shopfaq/internal/plan/domain"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusPending   Status = "pending"
	StatusCancelled Status = "cancelled"
)

// Subscription is the single local billing record of a shop. Only the
// billing service writes it.
type Subscription struct {
	ID                      snowflake.ID       `gorm:"primaryKey" json:"id"`
	Shop                    string             `gorm:"not null;size:255;uniqueIndex:ux_subscriptions_shop" json:"shop"`
	Plan                    plandomain.PlanID  `gorm:"not null;size:32" json:"plan"`
	Status                  Status             `gorm:"not null;size:16;index" json:"status"`
	ExternalChargeID        *string            `gorm:"column:external_charge_id;size:255" json:"external_charge_id,omitempty"`
	ExternalConfirmationURL *string            `gorm:"column:external_confirmation_url" json:"external_confirmation_url,omitempty"`
	PendingPlan             *plandomain.PlanID `gorm:"column:pending_plan;size:32" json:"pending_plan,omitempty"`
	CurrentPeriodEnd        *time.Time         `gorm:"column:current_period_end" json:"current_period_end,omitempty"`
	CreatedAt               time.Time          `gorm:"not null" json:"created_at"`
	UpdatedAt               time.Time          `gorm:"not null" json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

// HasCharge reports whether an external charge is on record.
func (s *Subscription) HasCharge() bool {
	return s.ExternalChargeID != nil && *s.ExternalChargeID != ""
}

// Downgrade resets the record to the free plan with no external charge.
func (s *Subscription) Downgrade() {
	s.Plan = plandomain.PlanFree
	s.Status = StatusActive
	s.ExternalChargeID = nil
	s.ExternalConfirmationURL = nil
	s.PendingPlan = nil
	s.CurrentPeriodEnd = nil
}

var (
	ErrInvalidShop          = errors.New("invalid_shop")
	ErrSubscriptionNotFound = errors.New("subscription_not_found")
)
