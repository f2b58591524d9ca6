package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fjod/lish_client/internal/domain"
)

func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	if err := c.do(ctx, http.MethodGet, "/products", nil, nil, &products, false); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) GetProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	var product domain.Product
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/products/%d", productID), nil, nil, &product, false); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var categories []domain.Category
	if err := c.do(ctx, http.MethodGet, "/categories", nil, nil, &categories, false); err != nil {
		return nil, err
	}
	return categories, nil
}
