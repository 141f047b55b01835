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

type UsageLimitServiceSuite struct {
	testutil.BaseServiceTestSuite
	service UsageLimitService
}

func TestUsageLimitService(t *testing.T) {
	suite.Run(t, new(UsageLimitServiceSuite))
}

func (s *UsageLimitServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewUsageLimitService(ServiceParams{
		Logger:          s.GetLogger(),
		Config:          s.GetConfig(),
		DB:              s.GetTxRunner(),
		SubRepo:         s.GetStores().SubscriptionRepo,
		UsageRepo:       s.GetStores().UsageRepo,
		OrgRepo:         s.GetStores().OrganizationRepo,
		PaymentProvider: s.GetPaymentProvider(),
	})
}

func (s *UsageLimitServiceSuite) seedUser(plan types.PlanTier, cost float64) string {
	userID := "user-" + s.GetUUID()
	s.NoError(s.GetStores().UsageRepo.Upsert(s.GetContext(), &usage.Counter{
		UserID:            userID,
		CurrentPeriodCost: decimal.NewFromFloat(cost),
		BaseModel:         types.GetDefaultBaseModel(),
	}))
	if plan != types.PlanTierFree {
		s.NoError(s.GetStores().SubscriptionRepo.Create(s.GetContext(), &subscription.Subscription{
			ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
			Plan:               plan,
			ReferenceType:      types.ReferenceTypeUser,
			ReferenceID:        userID,
			Seats:              1,
			SubscriptionStatus: types.SubscriptionStatusActive,
			BaseModel:          types.GetDefaultBaseModel(),
		}))
	}
	return userID
}

func (s *UsageLimitServiceSuite) seedOrg(seats int64, memberCosts map[string]float64) string {
	orgID := "org-" + s.GetUUID()
	s.NoError(s.GetStores().OrganizationRepo.Create(s.GetContext(), &organization.Organization{
		ID:        orgID,
		Name:      orgID,
		BaseModel: types.GetDefaultBaseModel(),
	}))
	for userID, cost := range memberCosts {
		s.NoError(s.GetStores().OrganizationRepo.AddMember(s.GetContext(), &organization.Member{
			OrganizationID: orgID,
			UserID:         userID,
			Role:           "member",
			BaseModel:      types.GetDefaultBaseModel(),
		}))
		s.NoError(s.GetStores().UsageRepo.Upsert(s.GetContext(), &usage.Counter{
			UserID:            userID,
			CurrentPeriodCost: decimal.NewFromFloat(cost),
			BaseModel:         types.GetDefaultBaseModel(),
		}))
	}
	s.NoError(s.GetStores().SubscriptionRepo.Create(s.GetContext(), &subscription.Subscription{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		Plan:               types.PlanTierTeam,
		ReferenceType:      types.ReferenceTypeOrganization,
		ReferenceID:        orgID,
		Seats:              seats,
		SubscriptionStatus: types.SubscriptionStatusActive,
		BaseModel:          types.GetDefaultBaseModel(),
	}))
	return orgID
}

func (s *UsageLimitServiceSuite) TestGetUsageData() {
	userID := s.seedUser(types.PlanTierPro, 15)
	s.NoError(s.GetStores().UsageRepo.SetLimit(s.GetContext(), userID, decimal.NewFromInt(60)))

	resp, err := s.service.GetUsageData(s.GetContext(), userID)
	s.NoError(err)
	s.Equal(userID, resp.UserID)
	s.True(resp.CurrentUsage.Equal(decimal.NewFromInt(15)))
	s.True(resp.Limit.Equal(decimal.NewFromInt(60)))
	s.False(resp.BillingBlocked)
}

func (s *UsageLimitServiceSuite) TestGetUsageDataDefaultsLimitToAllowance() {
	userID := s.seedUser(types.PlanTierPro, 5)

	resp, err := s.service.GetUsageData(s.GetContext(), userID)
	s.NoError(err)
	s.True(resp.Limit.Equal(decimal.NewFromInt(20)))
}

func (s *UsageLimitServiceSuite) TestGetUsageDataUnknownUser() {
	_, err := s.service.GetUsageData(s.GetContext(), "ghost")
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *UsageLimitServiceSuite) TestUpdateLimitOnPaidPlan() {
	userID := s.seedUser(types.PlanTierPro, 15)

	s.NoError(s.service.UpdateUserUsageLimit(s.GetContext(), userID, decimal.NewFromInt(100)))

	counter, err := s.GetStores().UsageRepo.Get(s.GetContext(), userID)
	s.NoError(err)
	s.True(counter.UsageLimit.Equal(decimal.NewFromInt(100)))
}

func (s *UsageLimitServiceSuite) TestFreeUserCannotEditLimit() {
	userID := s.seedUser(types.PlanTierFree, 5)

	err := s.service.UpdateUserUsageLimit(s.GetContext(), userID, decimal.NewFromInt(100))
	s.Error(err)
	s.True(ierr.IsPermissionDenied(err))
}

func (s *UsageLimitServiceSuite) TestLimitBelowPlanMinimumRejected() {
	userID := s.seedUser(types.PlanTierPro, 5)

	err := s.service.UpdateUserUsageLimit(s.GetContext(), userID, decimal.NewFromInt(10))
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *UsageLimitServiceSuite) TestLimitBelowCurrentUsageRejected() {
	userID := s.seedUser(types.PlanTierPro, 80)

	err := s.service.UpdateUserUsageLimit(s.GetContext(), userID, decimal.NewFromInt(50))
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *UsageLimitServiceSuite) TestOrganizationLimitUpdate() {
	orgID := s.seedOrg(3, map[string]float64{"m1": 30, "m2": 20})

	s.NoError(s.service.UpdateOrganizationUsageLimit(s.GetContext(), orgID, decimal.NewFromInt(200)))

	org, err := s.GetStores().OrganizationRepo.Get(s.GetContext(), orgID)
	s.NoError(err)
	s.True(org.UsageLimit.Equal(decimal.NewFromInt(200)))
}

func (s *UsageLimitServiceSuite) TestOrganizationLimitBelowAllowanceRejected() {
	orgID := s.seedOrg(3, map[string]float64{"m1": 10})

	// Allowance is 3 x $40 = $120.
	err := s.service.UpdateOrganizationUsageLimit(s.GetContext(), orgID, decimal.NewFromInt(100))
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *UsageLimitServiceSuite) TestOrganizationLimitBelowUsageRejected() {
	orgID := s.seedOrg(3, map[string]float64{"m1": 100, "m2": 60})

	err := s.service.UpdateOrganizationUsageLimit(s.GetContext(), orgID, decimal.NewFromInt(130))
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *UsageLimitServiceSuite) TestOrganizationWithoutPooledPlanCannotEdit() {
	orgID := "org-" + s.GetUUID()
	s.NoError(s.GetStores().OrganizationRepo.Create(s.GetContext(), &organization.Organization{
		ID:        orgID,
		Name:      orgID,
		BaseModel: types.GetDefaultBaseModel(),
	}))

	err := s.service.UpdateOrganizationUsageLimit(s.GetContext(), orgID, decimal.NewFromInt(500))
	s.Error(err)
	s.True(ierr.IsPermissionDenied(err))
}
