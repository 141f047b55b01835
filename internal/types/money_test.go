package types

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		want   int64
	}{
		{"whole dollars", "15", 1500},
		{"cents", "15.37", 1537},
		{"fractional cent rounds up", "10.005", 1001},
		{"fractional cent rounds down", "10.004", 1000},
		{"tiny amount", "0.01", 1},
		{"sub-cent rounds half up", "0.005", 1},
		{"zero", "0", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, err := decimal.NewFromString(tt.amount)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, ToMinorUnits(amount))
		})
	}
}

func TestFromMinorUnits(t *testing.T) {
	assert.True(t, FromMinorUnits(1537).Equal(decimal.RequireFromString("15.37")))
	assert.True(t, FromMinorUnits(0).IsZero())
}

func TestMinorUnitsRoundTrip(t *testing.T) {
	amount := decimal.RequireFromString("42.19")
	assert.True(t, FromMinorUnits(ToMinorUnits(amount)).Equal(amount))
}
