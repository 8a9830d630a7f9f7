package domain_test

import (
	"testing"
	"time"

	"github.com/railzwaylabs/shopfaq/internal/usage/domain"
	"github.com/stretchr/testify/assert"
)

func TestPeriodKey(t *testing.T) {
	ts := time.Date(2024, time.March, 31, 23, 30, 0, 0, time.UTC)

	assert.Equal(t, "2024-03", domain.PeriodKey(ts, nil))
	assert.Equal(t, "2024-03", domain.PeriodKey(ts, time.UTC))

	tokyo := time.FixedZone("JST", 9*60*60)
	assert.Equal(t, "2024-04", domain.PeriodKey(ts, tokyo))
}

func TestValidPeriod(t *testing.T) {
	assert.True(t, domain.ValidPeriod("2024-01"))
	assert.False(t, domain.ValidPeriod("2024-13"))
	assert.False(t, domain.ValidPeriod("2024-1"))
	assert.False(t, domain.ValidPeriod(""))
}
