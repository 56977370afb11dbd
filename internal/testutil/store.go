package testutil

import (
	"context"
	"slices"
	"sync"

	ierr "github.com/ispops/billing/internal/errors"
	"github.com/ispops/billing/internal/types"
)

// FilterFunc reports whether item matches filter
type FilterFunc[T any] func(ctx context.Context, item T, filter interface{}) bool

// SortFunc reports whether i sorts before j
type SortFunc[T any] func(i, j T) bool

// CloneFunc returns an independent copy of an item
type CloneFunc[T any] func(item T) T

// InMemoryStore is a map backed store shared by the in-memory repositories.
// Items are cloned on the way in and out so callers never share state with the store.
type InMemoryStore[T any] struct {
	mu    sync.RWMutex
	items map[string]T
	clone CloneFunc[T]
}

func NewInMemoryStore[T any](clone CloneFunc[T]) *InMemoryStore[T] {
	if clone == nil {
		clone = func(item T) T { return item }
	}
	return &InMemoryStore[T]{
		items: make(map[string]T),
		clone: clone,
	}
}

func notFound(id string) error {
	return ierr.NewError("item not found").
		WithHintf("item %s not found", id).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryStore[T]) Create(ctx context.Context, id string, item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; ok {
		return ierr.NewError("item already exists").
			WithHintf("item %s already exists", id).
			Mark(ierr.ErrAlreadyExists)
	}
	s.items[id] = s.clone(item)
	return nil
}

func (s *InMemoryStore[T]) Get(ctx context.Context, id string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		var zero T
		return zero, notFound(id)
	}
	return s.clone(item), nil
}

// List returns the items matching filterFn ordered by sortFn. A filter implementing
// types.BaseFilter also paginates the result.
func (s *InMemoryStore[T]) List(ctx context.Context, filter interface{}, filterFn FilterFunc[T], sortFn SortFunc[T]) ([]T, error) {
	s.mu.RLock()
	result := make([]T, 0, len(s.items))
	for _, item := range s.items {
		if filterFn == nil || filterFn(ctx, item, filter) {
			result = append(result, s.clone(item))
		}
	}
	s.mu.RUnlock()

	if sortFn != nil {
		slices.SortStableFunc(result, func(a, b T) int {
			switch {
			case sortFn(a, b):
				return -1
			case sortFn(b, a):
				return 1
			default:
				return 0
			}
		})
	}

	if f, ok := filter.(types.BaseFilter); ok && !f.IsUnlimited() {
		return paginate(result, f.GetOffset(), f.GetLimit()), nil
	}
	return result, nil
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	return items[offset:min(offset+limit, len(items))]
}

func (s *InMemoryStore[T]) Update(ctx context.Context, id string, item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return notFound(id)
	}
	s.items[id] = s.clone(item)
	return nil
}

func (s *InMemoryStore[T]) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return notFound(id)
	}
	delete(s.items, id)
	return nil
}

// Snapshot copies the current contents and returns a function that restores them
func (s *InMemoryStore[T]) Snapshot() func() {
	s.mu.RLock()
	saved := make(map[string]T, len(s.items))
	for id, item := range s.items {
		saved[id] = s.clone(item)
	}
	s.mu.RUnlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.items = saved
	}
}

func (s *InMemoryStore[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]T)
}

// CheckTenantFilter reports whether an item belongs to the tenant in ctx
func CheckTenantFilter(ctx context.Context, itemTenantID string) bool {
	tenantID := types.GetTenantID(ctx)
	return tenantID == "" || itemTenantID == "" || itemTenantID == tenantID
}
