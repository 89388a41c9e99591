package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tastebite/storefront/internal/money"
)

// Variant is one configurable axis on a product (e.g. "Size" -> S/M/L).
type Variant struct {
	Name    string   `json:"name"`
	Options []string `json:"options"`
}

// Product is a catalog entry from the food-menu resource.
type Product struct {
	ID          string        `json:"_id"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Category    string        `json:"category,omitempty"`
	BasePrice   money.Decimal `json:"basePrice"`
	Images      []string      `json:"images,omitempty"`
	Quantity    int           `json:"quantity,omitempty"`
	Variants    []Variant     `json:"variants,omitempty"`
}

// Image returns the product's primary image, empty when none was uploaded.
func (p Product) Image() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// ListFoodMenu fetches the catalog. Query parameters are forwarded as-is; the
// backend decides which filters it honors.
func (c *Client) ListFoodMenu(ctx context.Context, query url.Values) ([]Product, error) {
	var products []Product
	if err := c.doJSON(ctx, http.MethodGet, "/food-menu", query, nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// GetFood fetches a single catalog entry by id.
func (c *Client) GetFood(ctx context.Context, id string) (Product, error) {
	path := fmt.Sprintf("/food-menu/%s", url.PathEscape(id))
	var product Product
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &product); err != nil {
		return Product{}, err
	}
	return product, nil
}
