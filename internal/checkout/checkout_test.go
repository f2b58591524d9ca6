package checkout

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/fjod/lish_client/internal/cart"
	"github.com/fjod/lish_client/internal/domain"
	"github.com/fjod/lish_client/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCartBackend struct {
	m     sync.Mutex
	lines []domain.CartLine

	clearCalls int
}

func (m *mockCartBackend) GetCart(context.Context, int64) ([]domain.CartLine, error) {
	m.m.Lock()
	defer m.m.Unlock()
	out := make([]domain.CartLine, len(m.lines))
	copy(out, m.lines)
	return out, nil
}

func (m *mockCartBackend) AddItem(context.Context, int64, int64, int) error { return nil }

func (m *mockCartBackend) RemoveItem(context.Context, int64, int64) error { return nil }

func (m *mockCartBackend) UpdateQuantity(context.Context, int64, int) error { return nil }

func (m *mockCartBackend) DeleteLine(context.Context, int64) error { return nil }

func (m *mockCartBackend) ClearCart(context.Context, int64) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.clearCalls++
	return nil
}

type mockOrderAPI struct {
	m          sync.Mutex
	placeErr   error
	orders     []domain.Order
	placeCalls int
}

func (m *mockOrderAPI) PlaceOrder(_ context.Context, order domain.Order) (*domain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.placeCalls++
	if m.placeErr != nil {
		return nil, m.placeErr
	}
	order.ID = "order-1"
	order.Status = "pending"
	return &order, nil
}

func (m *mockOrderAPI) ListOrders(context.Context, int64) ([]domain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	return m.orders, nil
}

func (m *mockOrderAPI) GetOrder(context.Context, string) (*domain.Order, error) {
	return nil, fmt.Errorf("not found")
}

func setupCheckout(t *testing.T, lines []domain.CartLine) (*Service, *mockOrderAPI, *cart.Synchronizer, *mockCartBackend) {
	t.Helper()

	sessions := session.NewMemoryStore()
	err := sessions.Save(context.Background(), &domain.Session{UserID: 123, Token: "token"})
	require.NoError(t, err)

	backend := &mockCartBackend{lines: lines}
	syncer := cart.NewSynchronizer(backend, sessions)
	require.NoError(t, syncer.Load(context.Background()))

	orders := &mockOrderAPI{}
	return NewService(orders, syncer, sessions), orders, syncer, backend
}

func validContact() ContactInfo {
	return ContactInfo{Name: "An Nguyen", Phone: "0901234567", Address: "12 Nguyen Hue, Q1"}
}

func TestPlaceOrder_Success(t *testing.T) {
	sut, orders, _, backend := setupCheckout(t, []domain.CartLine{
		{LineID: 1, ProductID: 10, Quantity: 2, UnitPrice: 45000, Name: "Com tam"},
		{LineID: 2, ProductID: 11, Quantity: 1, UnitPrice: 55000, Name: "Pho bo"},
	})

	placed, err := sut.PlaceOrder(context.Background(), validContact())
	require.NoError(t, err)

	assert.Equal(t, "order-1", placed.ID)
	assert.Equal(t, "pending", placed.Status)
	assert.Equal(t, int64(145000), placed.TotalAmount)
	assert.Equal(t, "cash", placed.PaymentMethod, "payment method defaults to cash")
	require.Len(t, placed.Items, 2)
	assert.Equal(t, int64(10), placed.Items[0].ProductID)
	assert.Equal(t, 2, placed.Items[0].Quantity)
	assert.Equal(t, int64(45000), placed.Items[0].Price)

	assert.Equal(t, 1, orders.placeCalls)
	assert.Equal(t, 1, backend.clearCalls, "cart must be cleared after a placed order")
}

func TestPlaceOrder_OnlySelectedLines(t *testing.T) {
	sut, orders, syncer, _ := setupCheckout(t, []domain.CartLine{
		{LineID: 1, ProductID: 10, Quantity: 2, UnitPrice: 45000},
		{LineID: 2, ProductID: 11, Quantity: 1, UnitPrice: 55000},
	})

	syncer.ToggleSelect(2)

	placed, err := sut.PlaceOrder(context.Background(), validContact())
	require.NoError(t, err)

	require.Len(t, placed.Items, 1)
	assert.Equal(t, int64(10), placed.Items[0].ProductID)
	assert.Equal(t, int64(90000), placed.TotalAmount)
	assert.Equal(t, 1, orders.placeCalls)
}

func TestPlaceOrder_MissingContact(t *testing.T) {
	sut, orders, _, _ := setupCheckout(t, []domain.CartLine{
		{LineID: 1, ProductID: 10, Quantity: 1, UnitPrice: 45000},
	})

	for _, info := range []ContactInfo{
		{Phone: "0901234567", Address: "12 Nguyen Hue"},
		{Name: "An", Address: "12 Nguyen Hue"},
		{Name: "An", Phone: "0901234567"},
	} {
		_, err := sut.PlaceOrder(context.Background(), info)
		assert.ErrorIs(t, err, ErrMissingContact)
	}
	assert.Equal(t, 0, orders.placeCalls)
}

func TestPlaceOrder_NothingSelected(t *testing.T) {
	sut, orders, syncer, _ := setupCheckout(t, []domain.CartLine{
		{LineID: 1, ProductID: 10, Quantity: 1, UnitPrice: 45000},
	})

	syncer.ToggleSelectAll() // everything selected by default, so this deselects

	_, err := sut.PlaceOrder(context.Background(), validContact())
	assert.ErrorIs(t, err, ErrNothingSelected)
	assert.Equal(t, 0, orders.placeCalls)
}

func TestPlaceOrder_BackendFailure_KeepsCart(t *testing.T) {
	sut, orders, syncer, backend := setupCheckout(t, []domain.CartLine{
		{LineID: 1, ProductID: 10, Quantity: 2, UnitPrice: 45000},
	})
	orders.placeErr = fmt.Errorf("payment gateway timeout")

	_, err := sut.PlaceOrder(context.Background(), validContact())
	require.ErrorContains(t, err, "payment gateway timeout")

	assert.Equal(t, 0, backend.clearCalls, "a failed order must not clear the cart")
	assert.Len(t, syncer.Snapshot().Lines, 1)
}

func TestPlaceOrder_NotSignedIn(t *testing.T) {
	// Seed the snapshot while signed in, then hand checkout an empty store.
	signedIn := session.NewMemoryStore()
	require.NoError(t, signedIn.Save(context.Background(), &domain.Session{UserID: 123, Token: "t"}))

	backend := &mockCartBackend{lines: []domain.CartLine{{LineID: 1, ProductID: 10, Quantity: 1}}}
	syncer := cart.NewSynchronizer(backend, signedIn)
	require.NoError(t, syncer.Load(context.Background()))

	sut := NewService(&mockOrderAPI{}, syncer, session.NewMemoryStore())

	_, err := sut.PlaceOrder(context.Background(), validContact())
	assert.ErrorIs(t, err, cart.ErrNotSignedIn)
}

func TestHistory(t *testing.T) {
	sut, orders, _, _ := setupCheckout(t, nil)
	orders.orders = []domain.Order{{ID: "order-1", Status: "delivered"}}

	got, err := sut.History(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "order-1", got[0].ID)
}

func TestHistory_NotSignedIn(t *testing.T) {
	sut := NewService(&mockOrderAPI{}, cart.NewSynchronizer(&mockCartBackend{}, session.NewMemoryStore()), session.NewMemoryStore())

	_, err := sut.History(context.Background())
	assert.ErrorIs(t, err, cart.ErrNotSignedIn)
}
