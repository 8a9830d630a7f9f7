package domain

import (
	"context"
	"errors"

	plandomain "github.com/railzwaylabs/shopfaq/internal/plan/domain"
	subscriptiondomain "github.com/railzwaylabs/shopfaq/internal/subscription/domain"
)

type Action string

const (
	ActionGenerate   Action = "generate"
	ActionPublishFAQ Action = "publish_faq"
)

// Decision is the guard's answer. A denial is a value, not an error.
type Decision struct {
	Allowed  bool                `json:"allowed"`
	Action   Action              `json:"action"`
	Reason   string              `json:"reason,omitempty"`
	LimitKey plandomain.LimitKey `json:"limit_key,omitempty"`
	Usage    int64               `json:"usage"`
	Limit    *int64              `json:"limit"`
	Plan     plandomain.Plan     `json:"plan"`
}

type Meter struct {
	Used    int64  `json:"used"`
	Limit   *int64 `json:"limit"`
	Percent int    `json:"percent"`
}

type Summary struct {
	Subscription *subscriptiondomain.Subscription `json:"subscription"`
	Plan         plandomain.Plan                  `json:"plan"`
	Period       string                           `json:"period"`
	Generations  Meter                            `json:"generations"`
	Products     Meter                            `json:"products"`
	Plans        []plandomain.Plan                `json:"plans"`
}

// PublishedCounter reports the live number of published resources of a shop.
type PublishedCounter interface {
	CountPublished(ctx context.Context, shop string) (int64, error)
}

type Service interface {
	CanPerform(ctx context.Context, shop string, action Action) (Decision, error)
	Summary(ctx context.Context, shop string) (Summary, error)
}

// DeniedError carries a denial through call chains that return errors.
type DeniedError struct {
	Decision Decision
}

func (e *DeniedError) Error() string {
	return e.Decision.Reason
}

func AsDenied(err error) (*DeniedError, bool) {
	var de *DeniedError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

var ErrInvalidShop = errors.New("invalid_shop")
