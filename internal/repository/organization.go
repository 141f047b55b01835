package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/traceroot-ai/sim/internal/domain/organization"
	ierr "github.com/traceroot-ai/sim/internal/errors"
	"github.com/traceroot-ai/sim/internal/logger"
	"github.com/traceroot-ai/sim/internal/postgres"
	"github.com/traceroot-ai/sim/internal/types"
)

type organizationRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewOrganizationRepository(db *postgres.DB, logger *logger.Logger) organization.Repository {
	return &organizationRepository{db: db, logger: logger}
}

func (r *organizationRepository) Create(ctx context.Context, org *organization.Organization) error {
	query := `
		INSERT INTO organizations (
			id, name, usage_limit, status, created_at, updated_at
		) VALUES (
			:id, :name, :usage_limit, :status, :created_at, :updated_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, org); err != nil {
		return ierr.WithError(err).
			WithHint("failed to create organization").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *organizationRepository) Get(ctx context.Context, id string) (*organization.Organization, error) {
	query := `SELECT * FROM organizations WHERE id = $1 AND status != $2`

	var org organization.Organization
	q := r.db.GetQuerier(ctx)
	if err := q.GetContext(ctx, &org, query, id, types.StatusDeleted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.WithError(err).
				WithHintf("organization %s not found", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("failed to get organization").
			Mark(ierr.ErrDatabase)
	}
	return &org, nil
}

func (r *organizationRepository) AddMember(ctx context.Context, member *organization.Member) error {
	query := `
		INSERT INTO organization_members (
			organization_id, user_id, role, status, created_at, updated_at
		) VALUES (
			:organization_id, :user_id, :role, :status, :created_at, :updated_at
		)
		ON CONFLICT (organization_id, user_id) DO UPDATE SET
			role = EXCLUDED.role,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at`

	if _, err := r.db.NamedExecContext(ctx, query, member); err != nil {
		return ierr.WithError(err).
			WithHint("failed to add organization member").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *organizationRepository) ListMembers(ctx context.Context, organizationID string) ([]*organization.Member, error) {
	query := `
		SELECT * FROM organization_members
		WHERE organization_id = $1 AND status = $2
		ORDER BY user_id`

	members := make([]*organization.Member, 0)
	q := r.db.GetQuerier(ctx)
	if err := q.SelectContext(ctx, &members, query, organizationID, types.StatusActive); err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to list organization members").
			Mark(ierr.ErrDatabase)
	}
	return members, nil
}

func (r *organizationRepository) SetUsageLimit(ctx context.Context, organizationID string, limit decimal.Decimal) error {
	query := `
		UPDATE organizations SET
			usage_limit = $2,
			updated_at = NOW()
		WHERE id = $1 AND status != $3`

	q := r.db.GetQuerier(ctx)
	result, err := q.ExecContext(ctx, query, organizationID, limit, types.StatusDeleted)
	if err != nil {
		return ierr.WithError(err).
			WithHint("failed to update organization usage limit").
			Mark(ierr.ErrDatabase)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return ierr.NewError("organization not found").
			WithHintf("organization %s not found", organizationID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}
