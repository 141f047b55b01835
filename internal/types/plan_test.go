package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanTierPriority(t *testing.T) {
	assert.Greater(t, PlanTierEnterprise.Priority(), PlanTierTeam.Priority())
	assert.Greater(t, PlanTierTeam.Priority(), PlanTierPro.Priority())
	assert.Greater(t, PlanTierPro.Priority(), PlanTierFree.Priority())
	assert.Equal(t, 0, PlanTier("unknown").Priority())
}

func TestPlanTierIsPooled(t *testing.T) {
	assert.True(t, PlanTierTeam.IsPooled())
	assert.True(t, PlanTierEnterprise.IsPooled())
	assert.False(t, PlanTierPro.IsPooled())
	assert.False(t, PlanTierFree.IsPooled())
}

func TestPlanTierIsPaid(t *testing.T) {
	assert.True(t, PlanTierPro.IsPaid())
	assert.False(t, PlanTierFree.IsPaid())
}

func TestPlanTierValidate(t *testing.T) {
	assert.NoError(t, PlanTierPro.Validate())
	assert.Error(t, PlanTier("platinum").Validate())
}
