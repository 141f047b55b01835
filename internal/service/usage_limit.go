package service

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/traceroot-ai/sim/internal/api/dto"
	"github.com/traceroot-ai/sim/internal/domain/subscription"
	ierr "github.com/traceroot-ai/sim/internal/errors"
	"github.com/traceroot-ai/sim/internal/types"
)

// UsageLimitService serves the usage dashboard and validates self-serve cap
// changes. A cap can never be lowered beneath the plan's included allowance
// or beneath what the subject has already consumed this period.
type UsageLimitService interface {
	GetUsageData(ctx context.Context, userID string) (*dto.UsageDataResponse, error)
	UpdateUserUsageLimit(ctx context.Context, userID string, limit decimal.Decimal) error
	UpdateOrganizationUsageLimit(ctx context.Context, organizationID string, limit decimal.Decimal) error
}

type usageLimitService struct {
	ServiceParams
	pricing PricingService
	overage OverageService
}

func NewUsageLimitService(params ServiceParams) UsageLimitService {
	return &usageLimitService{
		ServiceParams: params,
		pricing:       NewPricingService(params.Config),
		overage:       NewOverageService(params),
	}
}

func (s *usageLimitService) GetUsageData(ctx context.Context, userID string) (*dto.UsageDataResponse, error) {
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

	resp := &dto.UsageDataResponse{
		UserID:         userID,
		CurrentUsage:   counter.CurrentPeriodCost,
		Limit:          s.effectiveLimit(ctx, userID, counter.UsageLimit),
		LastPeriodCost: counter.LastPeriodCost,
		BillingBlocked: counter.BillingBlocked,
	}

	subs, err := s.SubRepo.ListActiveByReference(ctx, types.ReferenceTypeUser, userID)
	if err == nil {
		if sub := subscription.HighestPriority(subs); sub != nil {
			if !sub.CurrentPeriodStart.IsZero() {
				start := sub.CurrentPeriodStart
				resp.BillingPeriodStart = &start
			}
			if !sub.CurrentPeriodEnd.IsZero() {
				end := sub.CurrentPeriodEnd
				resp.BillingPeriodEnd = &end
			}
		}
	} else {
		s.Logger.Warnw("failed to resolve billing period for usage view",
			"user_id", userID,
			"error", err,
		)
	}

	return resp, nil
}

func (s *usageLimitService) UpdateUserUsageLimit(ctx context.Context, userID string, limit decimal.Decimal) error {
	subs, err := s.SubRepo.ListActiveByReference(ctx, types.ReferenceTypeUser, userID)
	if err != nil {
		return ierr.WithError(err).
			WithHint("failed to resolve subscription").
			Mark(ierr.ErrDatabase)
	}
	sub := subscription.HighestPriority(subs)

	if !s.pricing.CanEditUsageLimit(sub) {
		return ierr.NewError("usage limit is not editable on this plan").
			WithHint("upgrade to a paid plan to adjust your usage limit").
			Mark(ierr.ErrPermissionDenied)
	}

	minimum := s.pricing.PerUserMinimumLimit(sub)
	if limit.LessThan(minimum) {
		return ierr.NewError("usage limit below plan minimum").
			WithHintf("usage limit must be at least %s", minimum.String()).
			WithReportableDetails(map[string]any{
				"minimum":   minimum.String(),
				"requested": limit.String(),
			}).
			Mark(ierr.ErrValidation)
	}

	counter, err := s.UsageRepo.Get(ctx, userID)
	if err != nil && !ierr.IsNotFound(err) {
		return ierr.WithError(err).
			WithHint("failed to read usage counter").
			Mark(ierr.ErrDatabase)
	}
	if counter != nil && limit.LessThan(counter.CurrentPeriodCost) {
		return ierr.NewError("usage limit below current usage").
			WithHintf("you have already used %s this period", counter.CurrentPeriodCost.String()).
			WithReportableDetails(map[string]any{
				"current_usage": counter.CurrentPeriodCost.String(),
				"requested":     limit.String(),
			}).
			Mark(ierr.ErrValidation)
	}

	if err := s.UsageRepo.SetLimit(ctx, userID, limit); err != nil {
		return ierr.WithError(err).
			WithHint("failed to update usage limit").
			Mark(ierr.ErrDatabase)
	}

	s.Logger.Infow("updated user usage limit", "user_id", userID, "limit", limit.String())
	return nil
}

func (s *usageLimitService) UpdateOrganizationUsageLimit(ctx context.Context, organizationID string, limit decimal.Decimal) error {
	subs, err := s.SubRepo.ListActiveByReference(ctx, types.ReferenceTypeOrganization, organizationID)
	if err != nil {
		return ierr.WithError(err).
			WithHint("failed to resolve organization subscription").
			Mark(ierr.ErrDatabase)
	}
	sub := subscription.HighestPriority(subs)

	if !s.pricing.CanEditUsageLimit(sub) || sub == nil || !sub.IsPooled() {
		return ierr.NewError("organization usage limit is not editable").
			WithHint("an active team or enterprise subscription is required").
			Mark(ierr.ErrPermissionDenied)
	}

	minimum := s.pricing.SubscriptionAllowance(sub)
	if limit.LessThan(minimum) {
		return ierr.NewError("usage limit below subscription allowance").
			WithHintf("usage limit must be at least %s", minimum.String()).
			WithReportableDetails(map[string]any{
				"minimum":   minimum.String(),
				"requested": limit.String(),
			}).
			Mark(ierr.ErrValidation)
	}

	result, err := s.overage.CalculateOrganizationOverage(ctx, organizationID)
	if err != nil {
		return err
	}
	if limit.LessThan(result.TotalUsage) {
		return ierr.NewError("usage limit below current usage").
			WithHintf("the organization has already used %s this period", result.TotalUsage.String()).
			WithReportableDetails(map[string]any{
				"current_usage": result.TotalUsage.String(),
				"requested":     limit.String(),
			}).
			Mark(ierr.ErrValidation)
	}

	if err := s.OrgRepo.SetUsageLimit(ctx, organizationID, limit); err != nil {
		return ierr.WithError(err).
			WithHint("failed to update organization usage limit").
			Mark(ierr.ErrDatabase)
	}

	s.Logger.Infow("updated organization usage limit",
		"organization_id", organizationID,
		"limit", limit.String(),
	)
	return nil
}

// effectiveLimit substitutes the plan allowance when no explicit cap has been
// stored yet.
func (s *usageLimitService) effectiveLimit(ctx context.Context, userID string, stored decimal.Decimal) decimal.Decimal {
	if stored.IsPositive() {
		return stored
	}
	subs, err := s.SubRepo.ListActiveByReference(ctx, types.ReferenceTypeUser, userID)
	if err != nil {
		return stored
	}
	return s.pricing.SubscriptionAllowance(subscription.HighestPriority(subs))
}
