package store

import (
	"context"
	"errors"
	"maps"
	"sort"
	"sync"

	"ecommerce/internal/customer/models"
	id "ecommerce/pkg/domain"
	"ecommerce/pkg/platform/sentinel"
)

// InMemory keeps customers in a map. Aggregates are cloned on the way in and
// out so callers never mutate stored state without saving.
type InMemory struct {
	mu        sync.RWMutex
	customers map[id.CustomerID]*models.Customer
}

func NewInMemory() *InMemory {
	return &InMemory{customers: make(map[id.CustomerID]*models.Customer)}
}

// Save inserts or replaces a customer. Email must be unique across customers.
func (s *InMemory) Save(_ context.Context, c *models.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for otherID, other := range s.customers {
		if otherID != c.ID() && other.Email().String() == c.Email().String() {
			return sentinel.ErrAlreadyUsed
		}
	}
	s.customers[c.ID()] = c.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, customerID id.CustomerID) (*models.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.customers[customerID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return c.Clone(), nil
}

func (s *InMemory) FindByEmail(_ context.Context, addr string) (*models.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.customers {
		if c.Email().String() == addr {
			return c.Clone(), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) ExistsByEmail(ctx context.Context, addr string) (bool, error) {
	_, err := s.FindByEmail(ctx, addr)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// List returns customers oldest first.
func (s *InMemory) List(_ context.Context) ([]*models.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		out = append(out, c.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt().Equal(out[j].CreatedAt()) {
			return out[i].ID() < out[j].ID()
		}
		return out[i].CreatedAt().Before(out[j].CreatedAt())
	})
	return out, nil
}

func (s *InMemory) DeleteByID(_ context.Context, customerID id.CustomerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.customers[customerID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.customers, customerID)
	return nil
}

// Snapshot captures the current contents for transactional rollback.
func (s *InMemory) Snapshot() func() {
	s.mu.RLock()
	saved := maps.Clone(s.customers)
	s.mu.RUnlock()
	return func() {
		s.mu.Lock()
		s.customers = saved
		s.mu.Unlock()
	}
}
