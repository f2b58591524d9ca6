package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/fjod/lish_client/internal/cart"
	"github.com/fjod/lish_client/internal/domain"
	"github.com/fjod/lish_client/internal/session"
)

var (
	ErrNothingSelected = errors.New("no lines selected for checkout")
	ErrMissingContact  = errors.New("name, phone and address are required")
)

// OrderAPI is the slice of the backend checkout needs.
type OrderAPI interface {
	PlaceOrder(ctx context.Context, order domain.Order) (*domain.Order, error)
	ListOrders(ctx context.Context, userID int64) ([]domain.Order, error)
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
}

// ContactInfo is the delivery form the checkout screen collects.
type ContactInfo struct {
	Name          string
	Phone         string
	Email         string
	Address       string
	Note          string
	PaymentMethod string
}

// Service turns the synchronizer's selected lines into a placed order.
type Service struct {
	api      OrderAPI
	cart     *cart.Synchronizer
	sessions session.Store
}

func NewService(api OrderAPI, c *cart.Synchronizer, sessions session.Store) *Service {
	return &Service{api: api, cart: c, sessions: sessions}
}

// PlaceOrder submits the selected cart lines. On success the cart is cleared
// (server then local, best-effort: a failed clear never fails the order).
func (s *Service) PlaceOrder(ctx context.Context, info ContactInfo) (*domain.Order, error) {
	if info.Name == "" || info.Phone == "" || info.Address == "" {
		return nil, ErrMissingContact
	}

	lines := s.cart.SelectedLines()
	if len(lines) == 0 {
		return nil, ErrNothingSelected
	}

	sess, err := s.sessions.Load(ctx)
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return nil, cart.ErrNotSignedIn
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	paymentMethod := info.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = "cash"
	}

	order := domain.Order{
		UserID:        sess.UserID,
		Name:          info.Name,
		Phone:         info.Phone,
		Email:         info.Email,
		Address:       info.Address,
		Note:          info.Note,
		TotalAmount:   s.cart.TotalPrice(),
		PaymentMethod: paymentMethod,
	}
	for _, l := range lines {
		order.Items = append(order.Items, domain.OrderItem{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Price:     l.UnitPrice,
		})
	}

	placed, err := s.api.PlaceOrder(ctx, order)
	if err != nil {
		return nil, err
	}

	if clearErr := s.cart.ClearCart(ctx); clearErr != nil {
		log.Printf("cart clear after order failed: %v", clearErr)
	}
	return placed, nil
}

// History returns the signed-in user's past orders.
func (s *Service) History(ctx context.Context) ([]domain.Order, error) {
	sess, err := s.sessions.Load(ctx)
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return nil, cart.ErrNotSignedIn
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	return s.api.ListOrders(ctx, sess.UserID)
}
