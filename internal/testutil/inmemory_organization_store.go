package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/traceroot-ai/sim/internal/domain/organization"
	ierr "github.com/traceroot-ai/sim/internal/errors"
	"github.com/traceroot-ai/sim/internal/types"
)

// InMemoryOrganizationStore implements organization.Repository
type InMemoryOrganizationStore struct {
	*InMemoryStore[*organization.Organization]

	mu      sync.RWMutex
	members map[string][]*organization.Member // organizationID -> members
}

func NewInMemoryOrganizationStore() *InMemoryOrganizationStore {
	return &InMemoryOrganizationStore{
		InMemoryStore: NewInMemoryStore[*organization.Organization](),
		members:       make(map[string][]*organization.Member),
	}
}

func (s *InMemoryOrganizationStore) Create(ctx context.Context, org *organization.Organization) error {
	if err := s.InMemoryStore.Create(ctx, org.ID, org); err != nil {
		return ierr.WithError(err).
			WithHint("organization already exists").
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (s *InMemoryOrganizationStore) Get(ctx context.Context, id string) (*organization.Organization, error) {
	org, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("organization %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	return org, nil
}

func (s *InMemoryOrganizationStore) AddMember(ctx context.Context, member *organization.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.members[member.OrganizationID] {
		if existing.UserID == member.UserID {
			s.members[member.OrganizationID][i] = member
			return nil
		}
	}
	s.members[member.OrganizationID] = append(s.members[member.OrganizationID], member)
	return nil
}

func (s *InMemoryOrganizationStore) ListMembers(ctx context.Context, organizationID string) ([]*organization.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := make([]*organization.Member, 0)
	for _, member := range s.members[organizationID] {
		if member.Status == types.StatusActive {
			active = append(active, member)
		}
	}
	return active, nil
}

func (s *InMemoryOrganizationStore) SetUsageLimit(ctx context.Context, organizationID string, limit decimal.Decimal) error {
	org, err := s.InMemoryStore.Get(ctx, organizationID)
	if err != nil {
		return ierr.WithError(fmt.Errorf("organization not found")).
			WithHintf("organization %s not found", organizationID).
			Mark(ierr.ErrNotFound)
	}
	org.UsageLimit = limit
	return s.InMemoryStore.Update(ctx, organizationID, org)
}
