package domain

import "errors"

type PlanID string

const (
	PlanFree    PlanID = "free"
	PlanStarter PlanID = "starter"
	PlanGrowth  PlanID = "growth"
	PlanPro     PlanID = "pro"
)

type LimitKey string

const (
	LimitProducts            LimitKey = "products"
	LimitGenerationsPerMonth LimitKey = "generationsPerMonth"
)

type Limits struct {
	Products            Limit `json:"products"`
	GenerationsPerMonth Limit `json:"generationsPerMonth"`
}

func (l Limits) For(key LimitKey) (Limit, bool) {
	switch key {
	case LimitProducts:
		return l.Products, true
	case LimitGenerationsPerMonth:
		return l.GenerationsPerMonth, true
	default:
		return Limit{}, false
	}
}

type Plan struct {
	ID   PlanID `json:"id"`
	Name string `json:"name"`
	// PriceMinor is the recurring price in minor currency units (cents).
	PriceMinor   int64    `json:"price_minor"`
	Currency     string   `json:"currency"`
	Interval     string   `json:"interval"`
	IntervalDays int      `json:"interval_days"`
	ExternalName string   `json:"external_name,omitempty"`
	Limits       Limits   `json:"limits"`
	Features     []string `json:"features"`
	Badge        string   `json:"badge,omitempty"`
	Rank         int      `json:"rank"`
}

func (p Plan) IsFree() bool {
	return p.PriceMinor == 0
}

// LimitCheck is the outcome of comparing usage against one plan limit.
// Limit and Remaining are nil when the limit is Unbounded.
type LimitCheck struct {
	Allowed   bool   `json:"allowed"`
	Limit     *int64 `json:"limit"`
	Usage     int64  `json:"usage"`
	Remaining *int64 `json:"remaining,omitempty"`
}

var (
	ErrEmptyCatalog       = errors.New("empty_plan_catalog")
	ErrDuplicatePlanID    = errors.New("duplicate_plan_id")
	ErrDuplicatePlanPrice = errors.New("duplicate_plan_price")
	ErrInvalidFreePlan    = errors.New("invalid_free_plan")
	ErrInvalidPlanOrder   = errors.New("invalid_plan_order")
)
