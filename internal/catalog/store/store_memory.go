package store

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"

	"ecommerce/internal/catalog/models"
	id "ecommerce/pkg/domain"
	"ecommerce/pkg/platform/sentinel"
)

// InMemory is a map-backed product store. Products are cloned on save and on
// read.
type InMemory struct {
	mu       sync.RWMutex
	products map[id.ProductID]*models.Product
}

func NewInMemory() *InMemory {
	return &InMemory{products: make(map[id.ProductID]*models.Product)}
}

func (s *InMemory) Save(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID()] = p.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, productID id.ProductID) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[productID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return p.Clone(), nil
}

// FindAllAvailable lists products currently on the shelf.
func (s *InMemory) FindAllAvailable(_ context.Context) ([]*models.Product, error) {
	return s.filter(func(p *models.Product) bool { return p.IsAvailable() }), nil
}

// FindByNameContaining matches name fragments case-insensitively.
func (s *InMemory) FindByNameContaining(_ context.Context, fragment string) ([]*models.Product, error) {
	needle := strings.ToLower(fragment)
	return s.filter(func(p *models.Product) bool {
		return strings.Contains(strings.ToLower(p.Name()), needle)
	}), nil
}

func (s *InMemory) FindLowStockProducts(_ context.Context, threshold int) ([]*models.Product, error) {
	return s.filter(func(p *models.Product) bool { return p.IsLowStock(threshold) }), nil
}

func (s *InMemory) DeleteByID(_ context.Context, productID id.ProductID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[productID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.products, productID)
	return nil
}

// Snapshot captures the current contents for transactional rollback.
func (s *InMemory) Snapshot() func() {
	s.mu.RLock()
	saved := maps.Clone(s.products)
	s.mu.RUnlock()
	return func() {
		s.mu.Lock()
		s.products = saved
		s.mu.Unlock()
	}
}

// filter returns matching clones ordered by name, then id.
func (s *InMemory) filter(keep func(*models.Product) bool) []*models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Product, 0)
	for _, p := range s.products {
		if keep(p) {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name() == out[j].Name() {
			return out[i].ID() < out[j].ID()
		}
		return out[i].Name() < out[j].Name()
	})
	return out
}
