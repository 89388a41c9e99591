package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/tastebite/storefront/internal/money"
)

// CartItem is one line item as the backend stores it. Title, price and image
// are denormalized at add-time and not kept in sync with the catalog.
type CartItem struct {
	ID            string            `json:"_id"`
	ProductID     string            `json:"productId"`
	Title         string            `json:"title"`
	Price         money.Decimal     `json:"price"`
	Image         string            `json:"image"`
	Quantity      int               `json:"quantity"`
	Variants      map[string]string `json:"variants,omitempty"`
	CustomerEmail string            `json:"customerEmail"`
	CustomerName  string            `json:"customerName,omitempty"`
	CreatedAt     time.Time         `json:"createdAt,omitempty"`
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// ListCartItems returns every line item the backend holds for an email.
func (c *Client) ListCartItems(ctx context.Context, email string) ([]CartItem, error) {
	query := url.Values{"email": {email}}
	var items []CartItem
	if err := c.doJSON(ctx, http.MethodGet, "/cart", query, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// CreateCartItem inserts a new line item. The backend assigns the id; callers
// reload the cart afterwards rather than trusting a local echo.
func (c *Client) CreateCartItem(ctx context.Context, item CartItem) error {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	return c.doJSON(ctx, http.MethodPost, "/cart", nil, item, nil)
}

// UpdateCartQuantity overwrites the quantity of one line item.
func (c *Client) UpdateCartQuantity(ctx context.Context, id string, quantity int) error {
	path := fmt.Sprintf("/cart/quantity/%s", url.PathEscape(id))
	return c.doJSON(ctx, http.MethodPatch, path, nil, updateQuantityRequest{Quantity: quantity}, nil)
}

// DeleteCartItem removes one line item.
func (c *Client) DeleteCartItem(ctx context.Context, id string) error {
	path := fmt.Sprintf("/cart/%s", url.PathEscape(id))
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil, nil)
}
