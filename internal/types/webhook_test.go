package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOverageIdempotencyKeyIsDeterministic(t *testing.T) {
	periodStart := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	first := OverageIdempotencyKey("cus_123", "sub_456", periodStart)
	second := OverageIdempotencyKey("cus_123", "sub_456", periodStart)
	assert.Equal(t, first, second)
	assert.Equal(t, "overage-cus_123-sub_456-1748736000", first)
}

func TestOverageIdempotencyKeyNormalizesTimezone(t *testing.T) {
	utc := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	offset := utc.In(time.FixedZone("UTC+5", 5*3600))

	assert.Equal(t,
		OverageIdempotencyKey("cus_123", "sub_456", utc),
		OverageIdempotencyKey("cus_123", "sub_456", offset),
	)
}

func TestBillingPeriodTag(t *testing.T) {
	periodStart := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	assert.Equal(t, "2025-06-01T12:30:00Z", BillingPeriodTag(periodStart))
}

func TestSettlementOutcomeShouldRetry(t *testing.T) {
	assert.True(t, SettlementOutcomeRetry.ShouldRetry())
	assert.False(t, SettlementOutcomeHandled.ShouldRetry())
	assert.False(t, SettlementOutcomeSkipped.ShouldRetry())
}
