package service

import (
	"strings"

	"github.com/shopspring/decimal"
)

// parseMinorUnits converts a provider decimal amount ("29.00") to minor
// units. Amounts with sub-cent precision or bad syntax do not parse.
func parseMinorUnits(amount string) (int64, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return 0, false
	}
	minor := d.Shift(2)
	if !minor.IsInteger() || minor.IsNegative() {
		return 0, false
	}
	return minor.IntPart(), true
}

func formatMinorUnits(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}
