package subscription

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/traceroot-ai/sim/internal/types"
)

func TestPerSeatPriceOverride(t *testing.T) {
	tests := []struct {
		name     string
		metadata types.Metadata
		want     string
		ok       bool
	}{
		{"valid override", types.Metadata{MetadataKeyPerSeatPrice: "75"}, "75", true},
		{"decimal override", types.Metadata{MetadataKeyPerSeatPrice: "75.50"}, "75.5", true},
		{"missing key", types.Metadata{}, "0", false},
		{"nil metadata", nil, "0", false},
		{"empty value", types.Metadata{MetadataKeyPerSeatPrice: ""}, "0", false},
		{"malformed value", types.Metadata{MetadataKeyPerSeatPrice: "abc"}, "0", false},
		{"zero value", types.Metadata{MetadataKeyPerSeatPrice: "0"}, "0", false},
		{"negative value", types.Metadata{MetadataKeyPerSeatPrice: "-10"}, "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &Subscription{Metadata: tt.metadata}
			price, ok := sub.PerSeatPriceOverride()
			assert.Equal(t, tt.ok, ok)
			assert.True(t, price.Equal(decimal.RequireFromString(tt.want)))
		})
	}
}

func TestLicensedSeats(t *testing.T) {
	assert.Equal(t, int64(1), (&Subscription{Seats: 0}).LicensedSeats())
	assert.Equal(t, int64(1), (&Subscription{Seats: -2}).LicensedSeats())
	assert.Equal(t, int64(5), (&Subscription{Seats: 5}).LicensedSeats())
}

func TestHighestPriority(t *testing.T) {
	active := func(plan types.PlanTier) *Subscription {
		return &Subscription{
			ID:                 types.GenerateUUID(),
			Plan:               plan,
			SubscriptionStatus: types.SubscriptionStatusActive,
		}
	}

	t.Run("picks highest plan", func(t *testing.T) {
		pro := active(types.PlanTierPro)
		team := active(types.PlanTierTeam)
		got := HighestPriority([]*Subscription{pro, team})
		assert.Equal(t, team.ID, got.ID)
	})

	t.Run("skips inactive", func(t *testing.T) {
		pro := active(types.PlanTierPro)
		enterprise := active(types.PlanTierEnterprise)
		enterprise.SubscriptionStatus = types.SubscriptionStatusCancelled
		got := HighestPriority([]*Subscription{pro, enterprise})
		assert.Equal(t, pro.ID, got.ID)
	})

	t.Run("empty returns nil", func(t *testing.T) {
		assert.Nil(t, HighestPriority(nil))
	})
}
