package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/traceroot-ai/sim/internal/domain/organization"
	"github.com/traceroot-ai/sim/internal/domain/subscription"
	"github.com/traceroot-ai/sim/internal/domain/usage"
	ierr "github.com/traceroot-ai/sim/internal/errors"
	"github.com/traceroot-ai/sim/internal/testutil"
	"github.com/traceroot-ai/sim/internal/types"
)

type OverageServiceSuite struct {
	testutil.BaseServiceTestSuite
	service OverageService
}

func TestOverageService(t *testing.T) {
	suite.Run(t, new(OverageServiceSuite))
}

func (s *OverageServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewOverageService(s.serviceParams())
}

func (s *OverageServiceSuite) serviceParams() ServiceParams {
	return ServiceParams{
		Logger:          s.GetLogger(),
		Config:          s.GetConfig(),
		DB:              s.GetTxRunner(),
		SubRepo:         s.GetStores().SubscriptionRepo,
		UsageRepo:       s.GetStores().UsageRepo,
		OrgRepo:         s.GetStores().OrganizationRepo,
		PaymentProvider: s.GetPaymentProvider(),
	}
}

func (s *OverageServiceSuite) seedCounter(userID string, cost float64) {
	err := s.GetStores().UsageRepo.Upsert(s.GetContext(), &usage.Counter{
		UserID:            userID,
		CurrentPeriodCost: decimal.NewFromFloat(cost),
		BaseModel:         types.GetDefaultBaseModel(),
	})
	s.NoError(err)
}

func (s *OverageServiceSuite) seedSubscription(plan types.PlanTier, refType types.ReferenceType, refID string, seats int64) *subscription.Subscription {
	sub := &subscription.Subscription{
		ID:                     types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		ProviderSubscriptionID: "sub_" + s.GetUUID(),
		ProviderCustomerID:     "cus_" + s.GetUUID(),
		Plan:                   plan,
		ReferenceType:          refType,
		ReferenceID:            refID,
		Seats:                  seats,
		SubscriptionStatus:     types.SubscriptionStatusActive,
		BaseModel:              types.GetDefaultBaseModel(),
	}
	s.NoError(s.GetStores().SubscriptionRepo.Create(s.GetContext(), sub))
	return sub
}

func (s *OverageServiceSuite) seedOrganization(orgID string, memberIDs ...string) {
	err := s.GetStores().OrganizationRepo.Create(s.GetContext(), &organization.Organization{
		ID:        orgID,
		Name:      "acme",
		BaseModel: types.GetDefaultBaseModel(),
	})
	s.NoError(err)
	for _, userID := range memberIDs {
		s.NoError(s.GetStores().OrganizationRepo.AddMember(s.GetContext(), &organization.Member{
			OrganizationID: orgID,
			UserID:         userID,
			Role:           "member",
			BaseModel:      types.GetDefaultBaseModel(),
		}))
	}
}

func (s *OverageServiceSuite) TestProUserOverage() {
	s.seedCounter("user-1", 35)
	s.seedSubscription(types.PlanTierPro, types.ReferenceTypeUser, "user-1", 1)

	result, err := s.service.CalculateUserOverage(s.GetContext(), "user-1")
	s.NoError(err)
	s.Equal(types.PlanTierPro, result.Plan)
	s.True(result.BasePrice.Equal(decimal.NewFromInt(20)))
	s.True(result.ActualUsage.Equal(decimal.NewFromInt(35)))
	s.True(result.OverageAmount.Equal(decimal.NewFromInt(15)))
}

func (s *OverageServiceSuite) TestProUserUnderAllowanceHasZeroOverage() {
	s.seedCounter("user-1", 12.50)
	s.seedSubscription(types.PlanTierPro, types.ReferenceTypeUser, "user-1", 1)

	result, err := s.service.CalculateUserOverage(s.GetContext(), "user-1")
	s.NoError(err)
	s.True(result.OverageAmount.IsZero())
}

func (s *OverageServiceSuite) TestFreeUserNeverBilled() {
	s.seedCounter("user-1", 500)

	result, err := s.service.CalculateUserOverage(s.GetContext(), "user-1")
	s.NoError(err)
	s.Equal(types.PlanTierFree, result.Plan)
	s.True(result.BasePrice.IsZero())
	s.True(result.OverageAmount.IsZero())
}

func (s *OverageServiceSuite) TestPooledMemberHasZeroIndividualOverage() {
	s.seedCounter("user-1", 90)
	s.seedSubscription(types.PlanTierTeam, types.ReferenceTypeUser, "user-1", 3)

	result, err := s.service.CalculateUserOverage(s.GetContext(), "user-1")
	s.NoError(err)
	s.Equal(types.PlanTierTeam, result.Plan)
	s.True(result.OverageAmount.IsZero())
}

func (s *OverageServiceSuite) TestUnknownUserReturnsNotFound() {
	_, err := s.service.CalculateUserOverage(s.GetContext(), "ghost")
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *OverageServiceSuite) TestHighestPrioritySubscriptionGoverns() {
	s.seedCounter("user-1", 35)
	s.seedSubscription(types.PlanTierFree, types.ReferenceTypeUser, "user-1", 1)
	s.seedSubscription(types.PlanTierPro, types.ReferenceTypeUser, "user-1", 1)

	result, err := s.service.CalculateUserOverage(s.GetContext(), "user-1")
	s.NoError(err)
	s.Equal(types.PlanTierPro, result.Plan)
	s.True(result.OverageAmount.Equal(decimal.NewFromInt(15)))
}

func (s *OverageServiceSuite) TestTeamPooledOverage() {
	// 3 seats x $40 = $120 pooled allowance; usage 135 -> overage 15.
	s.seedOrganization("org-1", "m1", "m2", "m3")
	s.seedSubscription(types.PlanTierTeam, types.ReferenceTypeOrganization, "org-1", 3)
	s.seedCounter("m1", 50)
	s.seedCounter("m2", 40)
	s.seedCounter("m3", 45)

	result, err := s.service.CalculateOrganizationOverage(s.GetContext(), "org-1")
	s.NoError(err)
	s.Equal(int64(3), result.LicensedSeats)
	s.True(result.BaseSubscriptionAmount.Equal(decimal.NewFromInt(120)))
	s.True(result.TotalUsage.Equal(decimal.NewFromInt(135)))
	s.True(result.TotalOverage.Equal(decimal.NewFromInt(15)))
	s.Len(result.Members, 3)
}

func (s *OverageServiceSuite) TestEnterpriseOverageWithPerSeatOverride() {
	// perSeatPrice 75 x 2 seats = 150 allowance; usage 200 -> overage 50.
	s.seedOrganization("org-1", "m1", "m2")
	sub := s.seedSubscription(types.PlanTierEnterprise, types.ReferenceTypeOrganization, "org-1", 2)
	sub.Metadata = types.Metadata{subscription.MetadataKeyPerSeatPrice: "75"}
	s.NoError(s.GetStores().SubscriptionRepo.Update(s.GetContext(), sub))
	s.seedCounter("m1", 120)
	s.seedCounter("m2", 80)

	result, err := s.service.CalculateOrganizationOverage(s.GetContext(), "org-1")
	s.NoError(err)
	s.True(result.BaseSubscriptionAmount.Equal(decimal.NewFromInt(150)))
	s.True(result.TotalOverage.Equal(decimal.NewFromInt(50)))
}

func (s *OverageServiceSuite) TestMembersWithoutCountersContributeZero() {
	s.seedOrganization("org-1", "m1", "m2")
	s.seedSubscription(types.PlanTierTeam, types.ReferenceTypeOrganization, "org-1", 2)
	s.seedCounter("m1", 100)

	result, err := s.service.CalculateOrganizationOverage(s.GetContext(), "org-1")
	s.NoError(err)
	s.True(result.TotalUsage.Equal(decimal.NewFromInt(100)))
	s.Len(result.Members, 2)
}

func (s *OverageServiceSuite) TestEmptyOrganizationChargesNothing() {
	s.seedOrganization("org-1")
	s.seedSubscription(types.PlanTierTeam, types.ReferenceTypeOrganization, "org-1", 2)

	result, err := s.service.CalculateOrganizationOverage(s.GetContext(), "org-1")
	s.NoError(err)
	s.True(result.TotalUsage.IsZero())
	s.True(result.TotalOverage.IsZero())
	s.Empty(result.Members)
}

func (s *OverageServiceSuite) TestOrganizationWithoutPooledPlanRejected() {
	s.seedOrganization("org-1", "m1")

	_, err := s.service.CalculateOrganizationOverage(s.GetContext(), "org-1")
	s.Error(err)
	s.True(ierr.IsValidation(err))
}
