package store

import (
	"context"
	"maps"
	"sort"
	"sync"

	"ecommerce/internal/ordering/models"
	id "ecommerce/pkg/domain"
	"ecommerce/pkg/platform/sentinel"
)

// InMemory is a map-backed order store. Orders are cloned on save and on read.
type InMemory struct {
	mu     sync.RWMutex
	orders map[id.OrderID]*models.Order
}

func NewInMemory() *InMemory {
	return &InMemory{orders: make(map[id.OrderID]*models.Order)}
}

func (s *InMemory) Save(_ context.Context, o *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID()] = o.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, orderID id.OrderID) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[orderID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return o.Clone(), nil
}

func (s *InMemory) FindByCustomerID(_ context.Context, customerID id.CustomerID) ([]*models.Order, error) {
	return s.filter(func(o *models.Order) bool { return o.CustomerID() == customerID }), nil
}

func (s *InMemory) FindByStatus(_ context.Context, status models.OrderStatus) ([]*models.Order, error) {
	return s.filter(func(o *models.Order) bool { return o.Status() == status }), nil
}

func (s *InMemory) FindByCustomerIDAndStatus(_ context.Context, customerID id.CustomerID, status models.OrderStatus) ([]*models.Order, error) {
	return s.filter(func(o *models.Order) bool {
		return o.CustomerID() == customerID && o.Status() == status
	}), nil
}

func (s *InMemory) DeleteByID(_ context.Context, orderID id.OrderID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[orderID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.orders, orderID)
	return nil
}

// Snapshot captures the current contents for transactional rollback.
func (s *InMemory) Snapshot() func() {
	s.mu.RLock()
	saved := maps.Clone(s.orders)
	s.mu.RUnlock()
	return func() {
		s.mu.Lock()
		s.orders = saved
		s.mu.Unlock()
	}
}

// filter returns matching clones, newest first.
func (s *InMemory) filter(keep func(*models.Order) bool) []*models.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Order, 0)
	for _, o := range s.orders {
		if keep(o) {
			out = append(out, o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt().Equal(out[j].CreatedAt()) {
			return out[i].ID() < out[j].ID()
		}
		return out[i].CreatedAt().After(out[j].CreatedAt())
	})
	return out
}
