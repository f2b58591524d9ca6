package catalog

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/fjod/lish_client/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockProductAPI struct {
	m        sync.Mutex
	products []domain.Product
	err      error

	listCalls     int
	categoryCalls int
	getCalls      int

	// When set, ListProducts blocks until release is closed.
	started chan struct{}
	release chan struct{}
}

func (m *mockProductAPI) ListProducts(context.Context) ([]domain.Product, error) {
	m.m.Lock()
	m.listCalls++
	started := m.started
	release := m.release
	m.m.Unlock()

	if started != nil {
		select {
		case started <- struct{}{}:
		default:
		}
	}
	if release != nil {
		<-release
	}

	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.Product, len(m.products))
	copy(out, m.products)
	return out, nil
}

func (m *mockProductAPI) GetProduct(_ context.Context, productID int64) (*domain.Product, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.getCalls++
	for _, p := range m.products {
		if p.ID == productID {
			cp := p
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("product not found")
}

func (m *mockProductAPI) ListCategories(context.Context) ([]domain.Category, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.categoryCalls++
	if m.err != nil {
		return nil, m.err
	}
	return []domain.Category{{ID: 1, Name: "Rice"}}, nil
}

func TestListProducts_CachesResult(t *testing.T) {
	mock := &mockProductAPI{products: []domain.Product{{ID: 1, Name: "Com tam", Price: 45000}}}
	sut := NewService(mock)
	ctx := context.Background()

	first, err := sut.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := sut.ListProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, mock.listCalls, "second call must hit the cache")
}

func TestListProducts_ConcurrentMissesCollapsed(t *testing.T) {
	mock := &mockProductAPI{
		products: []domain.Product{{ID: 1, Name: "Com tam", Price: 45000}},
		started:  make(chan struct{}, 1),
		release:  make(chan struct{}),
	}
	sut := NewService(mock)
	ctx := context.Background()

	const callers = 5
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = sut.ListProducts(ctx)
		}(i)
	}

	<-mock.started
	close(mock.release)
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 1, mock.listCalls, "concurrent misses must share one upstream call")
}

func TestListProducts_Error(t *testing.T) {
	mock := &mockProductAPI{err: fmt.Errorf("backend down")}
	sut := NewService(mock)

	_, err := sut.ListProducts(context.Background())
	require.ErrorContains(t, err, "backend down")
}

func TestInvalidate_ForcesRefetch(t *testing.T) {
	mock := &mockProductAPI{products: []domain.Product{{ID: 1, Name: "Com tam"}}}
	sut := NewService(mock)
	ctx := context.Background()

	_, err := sut.ListProducts(ctx)
	require.NoError(t, err)

	sut.Invalidate()

	_, err = sut.ListProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, mock.listCalls)
}

func TestGetProduct_PrefersCachedListing(t *testing.T) {
	mock := &mockProductAPI{products: []domain.Product{{ID: 1, Name: "Com tam", Price: 45000}}}
	sut := NewService(mock)
	ctx := context.Background()

	_, err := sut.ListProducts(ctx)
	require.NoError(t, err)

	p, err := sut.GetProduct(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Com tam", p.Name)
	assert.Equal(t, 0, mock.getCalls, "cached listing must answer lookups")

	_, err = sut.GetProduct(ctx, 99)
	require.Error(t, err)
	assert.Equal(t, 1, mock.getCalls)
}

func TestListCategories_Cached(t *testing.T) {
	mock := &mockProductAPI{}
	sut := NewService(mock)
	ctx := context.Background()

	_, err := sut.ListCategories(ctx)
	require.NoError(t, err)
	_, err = sut.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, mock.categoryCalls)
}
