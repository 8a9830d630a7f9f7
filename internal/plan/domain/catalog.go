package domain

import (
	"fmt"
	"strings"
)

// Catalog is the immutable, ordered set of plans. Build it once with
// NewCatalog and pass it to whatever needs plan data.
type Catalog struct {
	plans []Plan
	index map[PlanID]int
}

// NewCatalog validates and freezes plans in the given order. Ranks are
// assigned from position. The first plan must be the only free plan, prices
// must strictly increase and no two plans may share a price, because synced
// charges fall back to matching by price.
func NewCatalog(plans ...Plan) (*Catalog, error) {
	if len(plans) == 0 {
		return nil, ErrEmptyCatalog
	}

	c := &Catalog{
		plans: make([]Plan, len(plans)),
		index: make(map[PlanID]int, len(plans)),
	}
	prices := make(map[string]PlanID, len(plans))

	for i, p := range plans {
		// Ids are case-insensitive: "Basic" is stored and looked up as "basic".
		id := normalize(p.ID)
		if id == "" {
			return nil, fmt.Errorf("%w: plan %d has no id", ErrDuplicatePlanID, i)
		}
		if _, exists := c.index[id]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePlanID, id)
		}

		priceKey := fmt.Sprintf("%s:%d", strings.ToUpper(p.Currency), p.PriceMinor)
		if other, exists := prices[priceKey]; exists {
			return nil, fmt.Errorf("%w: %s and %s both cost %s", ErrDuplicatePlanPrice, other, id, priceKey)
		}
		prices[priceKey] = id

		if i == 0 && !p.IsFree() {
			return nil, fmt.Errorf("%w: first plan %s must cost nothing", ErrInvalidFreePlan, id)
		}
		if i > 0 && p.PriceMinor <= plans[i-1].PriceMinor {
			return nil, fmt.Errorf("%w: %s must cost more than %s", ErrInvalidPlanOrder, id, plans[i-1].ID)
		}

		p.ID = id
		p.Rank = i
		p.Features = append([]string(nil), p.Features...)
		c.plans[i] = p
		c.index[id] = i
	}

	return c, nil
}

// MustCatalog panics on an invalid catalog. Used for compiled-in tables.
func MustCatalog(plans ...Plan) *Catalog {
	c, err := NewCatalog(plans...)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) Free() Plan {
	return c.copyOf(0)
}

// Get returns the plan for id, or the free plan when id is empty or unknown.
func (c *Catalog) Get(id PlanID) Plan {
	if i, ok := c.index[normalize(id)]; ok {
		return c.copyOf(i)
	}
	return c.Free()
}

// Lookup is Get without the free-plan fallback.
func (c *Catalog) Lookup(id PlanID) (Plan, bool) {
	i, ok := c.index[normalize(id)]
	if !ok {
		return Plan{}, false
	}
	return c.copyOf(i), true
}

// Plans returns every plan in catalog order.
func (c *Catalog) Plans() []Plan {
	out := make([]Plan, len(c.plans))
	for i := range c.plans {
		out[i] = c.copyOf(i)
	}
	return out
}

// RankOf is the plan's position in the total order. Unknown ids rank as free.
func (c *Catalog) RankOf(id PlanID) int {
	return c.Get(id).Rank
}

// IsUpgrade reports whether moving from `from` to `to` is an upgrade.
func (c *Catalog) IsUpgrade(to, from PlanID) bool {
	return c.RankOf(to) > c.RankOf(from)
}

// CheckLimit compares usage against the plan's limit for key. Unbounded
// limits allow without comparing. Unknown keys are treated as unbounded.
func (c *Catalog) CheckLimit(id PlanID, key LimitKey, usage int64) LimitCheck {
	limit, ok := c.Get(id).Limits.For(key)
	if !ok || limit.IsUnbounded() {
		return LimitCheck{Allowed: true, Usage: usage}
	}

	bound, _ := limit.Value()
	remaining := bound - usage
	if remaining < 0 {
		remaining = 0
	}
	return LimitCheck{
		Allowed:   usage < bound,
		Limit:     &bound,
		Usage:     usage,
		Remaining: &remaining,
	}
}

// MatchPrice returns the first plan in catalog order whose price equals
// amountMinor in currency. An empty currency matches any.
func (c *Catalog) MatchPrice(amountMinor int64, currency string) (Plan, bool) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	for i, p := range c.plans {
		if p.PriceMinor != amountMinor {
			continue
		}
		if currency != "" && p.Currency != "" && !strings.EqualFold(p.Currency, currency) {
			continue
		}
		return c.copyOf(i), true
	}
	return Plan{}, false
}

func (c *Catalog) copyOf(i int) Plan {
	p := c.plans[i]
	p.Features = append([]string(nil), p.Features...)
	return p
}

func normalize(id PlanID) PlanID {
	return PlanID(strings.ToLower(strings.TrimSpace(string(id))))
}
