package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/lish_client/internal/domain"
	"golang.org/x/sync/singleflight"
)

// ProductAPI is the slice of the backend the catalog needs.
type ProductAPI interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, productID int64) (*domain.Product, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

// Service serves the menu with a short-lived in-memory cache. Concurrent cache
// misses for the same key are collapsed into one upstream call.
type Service struct {
	api ProductAPI
	sfg singleflight.Group // Prevents fetch stampede
	ttl time.Duration

	mu           sync.RWMutex
	products     []domain.Product
	productsAt   time.Time
	categories   []domain.Category
	categoriesAt time.Time
}

func NewService(api ProductAPI) *Service {
	return &Service{
		api: api,
		ttl: 5 * time.Minute,
	}
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	if s.products != nil && time.Since(s.productsAt) < s.ttl {
		cached := make([]domain.Product, len(s.products))
		copy(cached, s.products)
		s.mu.RUnlock()
		return cached, nil
	}
	s.mu.RUnlock()

	v, err, _ := s.sfg.Do("products", func() (interface{}, error) {
		products, err := s.api.ListProducts(ctx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.products = products
		s.productsAt = time.Now()
		s.mu.Unlock()
		return products, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Product), nil
}

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	if s.categories != nil && time.Since(s.categoriesAt) < s.ttl {
		cached := make([]domain.Category, len(s.categories))
		copy(cached, s.categories)
		s.mu.RUnlock()
		return cached, nil
	}
	s.mu.RUnlock()

	v, err, _ := s.sfg.Do("categories", func() (interface{}, error) {
		categories, err := s.api.ListCategories(ctx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.categories = categories
		s.categoriesAt = time.Now()
		s.mu.Unlock()
		return categories, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Category), nil
}

// GetProduct prefers the cached listing and falls back to the backend.
func (s *Service) GetProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	s.mu.RLock()
	if time.Since(s.productsAt) < s.ttl {
		for _, p := range s.products {
			if p.ID == productID {
				cp := p
				s.mu.RUnlock()
				return &cp, nil
			}
		}
	}
	s.mu.RUnlock()

	return s.api.GetProduct(ctx, productID)
}

// Invalidate drops the cached menu, forcing the next call upstream.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.products = nil
	s.productsAt = time.Time{}
	s.categories = nil
	s.categoriesAt = time.Time{}
	s.mu.Unlock()
}
