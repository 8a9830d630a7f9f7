package domain

const IntervalEvery30Days = "EVERY_30_DAYS"

// DefaultCatalog is the shipped four-tier catalog.
func DefaultCatalog() *Catalog {
	return MustCatalog(
		Plan{
			ID:           PlanFree,
			Name:         "Free",
			PriceMinor:   0,
			Currency:     "USD",
			Interval:     IntervalEvery30Days,
			IntervalDays: 30,
			Limits: Limits{
				Products:            Bounded(3),
				GenerationsPerMonth: Bounded(10),
			},
			Features: []string{
				"3 products with FAQ",
				"10 AI generations/month",
				"Basic accordion style",
				"1 AI provider",
			},
		},
		Plan{
			ID:           PlanStarter,
			Name:         "Starter",
			PriceMinor:   900,
			Currency:     "USD",
			Interval:     IntervalEvery30Days,
			IntervalDays: 30,
			ExternalName: "Starter Plan - $9/month",
			Limits: Limits{
				Products:            Bounded(50),
				GenerationsPerMonth: Bounded(100),
			},
			Features: []string{
				"50 products with FAQ",
				"100 AI generations/month",
				"Edit & customize FAQs",
				"Both AI providers (OpenAI & Anthropic)",
				"Email support",
			},
		},
		Plan{
			ID:           PlanGrowth,
			Name:         "Growth",
			PriceMinor:   2900,
			Currency:     "USD",
			Interval:     IntervalEvery30Days,
			IntervalDays: 30,
			ExternalName: "Growth Plan - $29/month",
			Badge:        "Most Popular",
			Limits: Limits{
				Products:            Unbounded(),
				GenerationsPerMonth: Bounded(500),
			},
			Features: []string{
				"Unlimited products with FAQ",
				"500 AI generations/month",
				"Edit & customize FAQs",
				"Both AI providers",
				"Bulk generate for all products",
				"FAQ analytics (clicks & engagement)",
				"Priority support",
			},
		},
		Plan{
			ID:           PlanPro,
			Name:         "Pro",
			PriceMinor:   7900,
			Currency:     "USD",
			Interval:     IntervalEvery30Days,
			IntervalDays: 30,
			ExternalName: "Pro Plan - $79/month",
			Badge:        "Best Value",
			Limits: Limits{
				Products:            Unbounded(),
				GenerationsPerMonth: Unbounded(),
			},
			Features: []string{
				"Unlimited products with FAQ",
				"Unlimited AI generations",
				"Edit & customize FAQs",
				"Both AI providers",
				"Bulk generate for all products",
				"FAQ analytics",
				"Custom FAQ templates",
				"White-label (remove AI badge)",
				"Dedicated support + onboarding",
			},
		},
	)
}
