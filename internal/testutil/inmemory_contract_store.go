package testutil

import (
	"context"

	"github.com/ispops/billing/internal/domain/contract"
	"github.com/ispops/billing/internal/types"
	"github.com/samber/lo"
)

// InMemoryContractStore implements contract.Repository
type InMemoryContractStore struct {
	*InMemoryStore[*contract.Contract]
}

func NewInMemoryContractStore() *InMemoryContractStore {
	return &InMemoryContractStore{
		InMemoryStore: NewInMemoryStore[*contract.Contract](copyContract),
	}
}

func copyContract(c *contract.Contract) *contract.Contract {
	if c == nil {
		return nil
	}
	cp := *c
	if c.FirstDueDate != nil {
		cp.FirstDueDate = lo.ToPtr(*c.FirstDueDate)
	}
	if c.CancellationDate != nil {
		cp.CancellationDate = lo.ToPtr(*c.CancellationDate)
	}
	return &cp
}

func contractFilterFn(ctx context.Context, c *contract.Contract, filter interface{}) bool {
	if !CheckTenantFilter(ctx, c.TenantID) {
		return false
	}

	f, ok := filter.(*types.ContractFilter)
	if !ok || f == nil {
		return true
	}

	if string(c.Status) != f.GetStatus() {
		return false
	}
	if f.PaymentProfileID != "" && c.PaymentProfileID != f.PaymentProfileID {
		return false
	}
	if len(f.ContractIDs) > 0 && !lo.Contains(f.ContractIDs, c.ID) {
		return false
	}
	if !f.IncludeCancelled && c.CancellationDate != nil {
		return false
	}
	return true
}

func contractSortFn(i, j *contract.Contract) bool {
	if i.CreatedAt.Equal(j.CreatedAt) {
		return i.ID < j.ID
	}
	return i.CreatedAt.Before(j.CreatedAt)
}

// Add seeds a contract
func (s *InMemoryContractStore) Add(ctx context.Context, c *contract.Contract) error {
	return s.InMemoryStore.Create(ctx, c.ID, c)
}

func (s *InMemoryContractStore) Get(ctx context.Context, id string) (*contract.Contract, error) {
	return s.InMemoryStore.Get(ctx, id)
}

func (s *InMemoryContractStore) List(ctx context.Context, filter *types.ContractFilter) ([]*contract.Contract, error) {
	if filter == nil {
		filter = types.NewNoLimitContractFilter()
	}
	return s.InMemoryStore.List(ctx, filter, contractFilterFn, contractSortFn)
}
