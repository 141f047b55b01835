package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/traceroot-ai/sim/internal/config"
	"github.com/traceroot-ai/sim/internal/domain/subscription"
	"github.com/traceroot-ai/sim/internal/types"
)

type PricingServiceSuite struct {
	suite.Suite
	service PricingService
}

func TestPricingService(t *testing.T) {
	suite.Run(t, new(PricingServiceSuite))
}

func (s *PricingServiceSuite) SetupTest() {
	s.service = NewPricingService(config.GetDefaultConfig())
}

func (s *PricingServiceSuite) newSubscription(plan types.PlanTier, seats int64) *subscription.Subscription {
	return &subscription.Subscription{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		Plan:               plan,
		Seats:              seats,
		SubscriptionStatus: types.SubscriptionStatusActive,
		BaseModel:          types.GetDefaultBaseModel(),
	}
}

func (s *PricingServiceSuite) TestBasePricePro() {
	sub := s.newSubscription(types.PlanTierPro, 1)
	s.True(s.service.BasePrice(types.PlanTierPro, sub).Equal(decimal.NewFromInt(20)))
}

func (s *PricingServiceSuite) TestBasePriceTeamIsPerSeat() {
	sub := s.newSubscription(types.PlanTierTeam, 5)
	s.True(s.service.BasePrice(types.PlanTierTeam, sub).Equal(decimal.NewFromInt(40)))
}

func (s *PricingServiceSuite) TestBasePriceEnterpriseDefault() {
	sub := s.newSubscription(types.PlanTierEnterprise, 2)
	s.True(s.service.BasePrice(types.PlanTierEnterprise, sub).Equal(decimal.NewFromInt(100)))
}

func (s *PricingServiceSuite) TestBasePriceEnterpriseOverride() {
	sub := s.newSubscription(types.PlanTierEnterprise, 2)
	sub.Metadata = types.Metadata{subscription.MetadataKeyPerSeatPrice: "75"}
	s.True(s.service.BasePrice(types.PlanTierEnterprise, sub).Equal(decimal.NewFromInt(75)))
}

func (s *PricingServiceSuite) TestBasePriceEnterpriseMalformedOverrideFallsBack() {
	sub := s.newSubscription(types.PlanTierEnterprise, 2)
	sub.Metadata = types.Metadata{subscription.MetadataKeyPerSeatPrice: "not-a-number"}
	s.True(s.service.BasePrice(types.PlanTierEnterprise, sub).Equal(decimal.NewFromInt(100)))
}

func (s *PricingServiceSuite) TestBasePriceEnterpriseNonPositiveOverrideFallsBack() {
	sub := s.newSubscription(types.PlanTierEnterprise, 2)
	sub.Metadata = types.Metadata{subscription.MetadataKeyPerSeatPrice: "-5"}
	s.True(s.service.BasePrice(types.PlanTierEnterprise, sub).Equal(decimal.NewFromInt(100)))
}

func (s *PricingServiceSuite) TestBasePriceFreeIsZero() {
	s.True(s.service.BasePrice(types.PlanTierFree, nil).IsZero())
}

func (s *PricingServiceSuite) TestSubscriptionAllowancePooledMultipliesSeats() {
	sub := s.newSubscription(types.PlanTierTeam, 3)
	s.True(s.service.SubscriptionAllowance(sub).Equal(decimal.NewFromInt(120)))
}

func (s *PricingServiceSuite) TestSubscriptionAllowanceDefaultsSeatsToOne() {
	sub := s.newSubscription(types.PlanTierTeam, 0)
	s.True(s.service.SubscriptionAllowance(sub).Equal(decimal.NewFromInt(40)))
}

func (s *PricingServiceSuite) TestSubscriptionAllowanceFreeTier() {
	s.True(s.service.SubscriptionAllowance(nil).Equal(decimal.NewFromInt(10)))
}

func (s *PricingServiceSuite) TestCanEditUsageLimit() {
	s.False(s.service.CanEditUsageLimit(nil))

	free := s.newSubscription(types.PlanTierFree, 1)
	s.False(s.service.CanEditUsageLimit(free))

	pro := s.newSubscription(types.PlanTierPro, 1)
	s.True(s.service.CanEditUsageLimit(pro))

	pastDue := s.newSubscription(types.PlanTierPro, 1)
	pastDue.SubscriptionStatus = types.SubscriptionStatusPastDue
	s.False(s.service.CanEditUsageLimit(pastDue))
}

func (s *PricingServiceSuite) TestPerUserMinimumLimit() {
	pro := s.newSubscription(types.PlanTierPro, 1)
	s.True(s.service.PerUserMinimumLimit(pro).Equal(decimal.NewFromInt(20)))

	team := s.newSubscription(types.PlanTierTeam, 3)
	s.True(s.service.PerUserMinimumLimit(team).Equal(decimal.NewFromInt(120)))

	s.True(s.service.PerUserMinimumLimit(nil).Equal(decimal.NewFromInt(10)))
}
