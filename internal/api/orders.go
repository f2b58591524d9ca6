package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/fjod/lish_client/internal/domain"
)

// PlaceOrder submits an order and returns the server's canonical copy.
func (c *Client) PlaceOrder(ctx context.Context, order domain.Order) (*domain.Order, error) {
	var placed domain.Order
	if err := c.do(ctx, http.MethodPost, "/orders", nil, order, &placed, true); err != nil {
		return nil, err
	}
	return &placed, nil
}

func (c *Client) ListOrders(ctx context.Context, userID int64) ([]domain.Order, error) {
	q := url.Values{"user_id": {strconv.FormatInt(userID, 10)}}
	var orders []domain.Order
	if err := c.do(ctx, http.MethodGet, "/orders", q, nil, &orders, true); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	var order domain.Order
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/orders/%s", orderID), nil, nil, &order, true); err != nil {
		return nil, err
	}
	return &order, nil
}
