package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/fjod/lish_client/internal/domain"
)

// cartLineDTO matches the backend's cart line shape: server-issued line id plus
// a denormalized product block so the client needs no catalog join to render.
type cartLineDTO struct {
	LineID    int64 `json:"line_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
	Product   struct {
		Name      string `json:"name"`
		Price     int64  `json:"price"`
		Thumbnail string `json:"thumbnail"`
	} `json:"product"`
}

func (d cartLineDTO) toDomain() domain.CartLine {
	return domain.CartLine{
		LineID:    d.LineID,
		ProductID: d.ProductID,
		Quantity:  d.Quantity,
		UnitPrice: d.Product.Price,
		Name:      d.Product.Name,
		Thumbnail: d.Product.Thumbnail,
	}
}

type addItemRequest struct {
	UserID    int64 `json:"user_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type removeItemRequest struct {
	UserID    int64 `json:"user_id"`
	ProductID int64 `json:"product_id"`
}

// GetCart fetches the user's cart lines.
func (c *Client) GetCart(ctx context.Context, userID int64) ([]domain.CartLine, error) {
	q := url.Values{"user_id": {strconv.FormatInt(userID, 10)}}
	var dtos []cartLineDTO
	if err := c.do(ctx, http.MethodGet, "/cart", q, nil, &dtos, true); err != nil {
		return nil, err
	}
	lines := make([]domain.CartLine, 0, len(dtos))
	for _, d := range dtos {
		lines = append(lines, d.toDomain())
	}
	return lines, nil
}

// AddItem adds quantity units of a product; the server merges into any
// existing line, so the client never sends an absolute quantity here.
func (c *Client) AddItem(ctx context.Context, userID, productID int64, quantity int) error {
	body := addItemRequest{UserID: userID, ProductID: productID, Quantity: quantity}
	return c.do(ctx, http.MethodPost, "/cart/add", nil, body, nil, true)
}

// RemoveItem removes one unit of a product; the server drops the line when the
// quantity reaches zero.
func (c *Client) RemoveItem(ctx context.Context, userID, productID int64) error {
	body := removeItemRequest{UserID: userID, ProductID: productID}
	return c.do(ctx, http.MethodPost, "/cart/remove", nil, body, nil, true)
}

// UpdateQuantity sets the absolute quantity of a server-issued line.
func (c *Client) UpdateQuantity(ctx context.Context, lineID int64, quantity int) error {
	path := fmt.Sprintf("/cart/update/%d", lineID)
	q := url.Values{"quantity": {strconv.Itoa(quantity)}}
	return c.do(ctx, http.MethodPut, path, q, nil, nil, true)
}

// DeleteLine removes one line entirely.
func (c *Client) DeleteLine(ctx context.Context, lineID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/cart/delete/%d", lineID), nil, nil, nil, true)
}

// ClearCart removes every line for the user.
func (c *Client) ClearCart(ctx context.Context, userID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/cart/clear/%d", userID), nil, nil, nil, true)
}
