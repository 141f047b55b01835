package service

import (
	"context"
	"sort"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"
	"github.com/traceroot-ai/sim/internal/api/dto"
	"github.com/traceroot-ai/sim/internal/domain/subscription"
	ierr "github.com/traceroot-ai/sim/internal/errors"
	"github.com/traceroot-ai/sim/internal/types"
)

// memberFetchConcurrency bounds the parallel per-member usage reads during
// pooled aggregation.
const memberFetchConcurrency = 8

// OverageService computes billable overage for a subject or organization at
// a point in time. It only reads; settlement is the orchestrator's job.
type OverageService interface {
	CalculateUserOverage(ctx context.Context, userID string) (*dto.UserOverageResult, error)
	CalculateOrganizationOverage(ctx context.Context, organizationID string) (*dto.OrganizationOverageResult, error)
}

type overageService struct {
	ServiceParams
	pricing PricingService
}

func NewOverageService(params ServiceParams) OverageService {
	return &overageService{
		ServiceParams: params,
		pricing:       NewPricingService(params.Config),
	}
}

func (s *overageService) CalculateUserOverage(ctx context.Context, userID string) (*dto.UserOverageResult, error) {
	counter, err := s.UsageRepo.Get(ctx, userID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil, ierr.WithError(err).
				WithHintf("user %s not found", userID).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("failed to read usage counter").
			Mark(ierr.ErrDatabase)
	}

	sub := s.governingSubscription(ctx, types.ReferenceTypeUser, userID)

	result := &dto.UserOverageResult{
		UserID:        userID,
		Plan:          types.PlanTierFree,
		BasePrice:     decimal.Zero,
		ActualUsage:   counter.CurrentPeriodCost,
		OverageAmount: decimal.Zero,
	}

	if sub == nil || !sub.Plan.IsPaid() {
		// Free usage is capped, never billed.
		return result, nil
	}

	result.Plan = sub.Plan
	result.BasePrice = s.pricing.BasePrice(sub.Plan, sub)

	if sub.IsPooled() {
		// Pooled subscriptions settle at the organization level; the
		// individual view reports zero billable overage.
		return result, nil
	}

	result.OverageAmount = maxZero(counter.CurrentPeriodCost.Sub(result.BasePrice))
	return result, nil
}

func (s *overageService) CalculateOrganizationOverage(ctx context.Context, organizationID string) (*dto.OrganizationOverageResult, error) {
	subs, err := s.SubRepo.ListActiveByReference(ctx, types.ReferenceTypeOrganization, organizationID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to resolve organization subscription").
			Mark(ierr.ErrDatabase)
	}

	sub := subscription.HighestPriority(subs)
	if sub == nil || !sub.IsPooled() {
		return nil, ierr.NewError("organization has no pooled subscription").
			WithHintf("organization %s has no active team or enterprise subscription", organizationID).
			Mark(ierr.ErrValidation)
	}

	members, err := s.OrgRepo.ListMembers(ctx, organizationID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to list organization members").
			Mark(ierr.ErrDatabase)
	}

	perSeat := s.pricing.BasePrice(sub.Plan, sub)
	seats := sub.LicensedSeats()
	baseAmount := perSeat.Mul(decimal.NewFromInt(seats))

	result := &dto.OrganizationOverageResult{
		OrganizationID:         organizationID,
		Plan:                   sub.Plan,
		LicensedSeats:          seats,
		BaseSubscriptionAmount: baseAmount,
		TotalUsage:             decimal.Zero,
		TotalOverage:           decimal.Zero,
		Members:                []*dto.MemberUsage{},
	}

	if len(members) == 0 {
		// Nothing to charge; not an error.
		return result, nil
	}

	// Per-member reads are independent and read-only, safe to fan out.
	p := pool.NewWithResults[*dto.MemberUsage]().
		WithContext(ctx).
		WithMaxGoroutines(memberFetchConcurrency)

	for _, member := range members {
		userID := member.UserID
		p.Go(func(ctx context.Context) (*dto.MemberUsage, error) {
			counter, err := s.UsageRepo.Get(ctx, userID)
			if err != nil {
				if ierr.IsNotFound(err) {
					// Member has consumed nothing yet.
					return &dto.MemberUsage{UserID: userID, CurrentPeriodCost: decimal.Zero}, nil
				}
				return nil, err
			}
			return &dto.MemberUsage{UserID: userID, CurrentPeriodCost: counter.CurrentPeriodCost}, nil
		})
	}

	memberUsages, err := p.Wait()
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to aggregate member usage").
			Mark(ierr.ErrDatabase)
	}

	sort.Slice(memberUsages, func(i, j int) bool {
		return memberUsages[i].UserID < memberUsages[j].UserID
	})

	result.Members = memberUsages
	result.TotalUsage = lo.Reduce(memberUsages, func(acc decimal.Decimal, m *dto.MemberUsage, _ int) decimal.Decimal {
		return acc.Add(m.CurrentPeriodCost)
	}, decimal.Zero)
	result.TotalOverage = maxZero(result.TotalUsage.Sub(baseAmount))

	return result, nil
}

// governingSubscription resolves the highest-priority active subscription for
// a subject. Read errors are logged and treated as "no subscription found".
func (s *overageService) governingSubscription(ctx context.Context, refType types.ReferenceType, refID string) *subscription.Subscription {
	subs, err := s.SubRepo.ListActiveByReference(ctx, refType, refID)
	if err != nil {
		s.Logger.Errorw("failed to resolve subscription, treating as none",
			"reference_type", refType,
			"reference_id", refID,
			"error", err,
		)
		return nil
	}
	return subscription.HighestPriority(subs)
}

func maxZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
