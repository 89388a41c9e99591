package api

import (
	"context"
	"net/http"

	"github.com/tastebite/storefront/internal/money"
)

// OrderItem is the snapshot of one cart line frozen into an order payload.
type OrderItem struct {
	ProductID string            `json:"productId"`
	Title     string            `json:"title"`
	Price     money.Decimal     `json:"price"`
	Image     string            `json:"image,omitempty"`
	Quantity  int               `json:"quantity"`
	Variants  map[string]string `json:"variants,omitempty"`
}

// Order is the create-order submission payload. It carries the derived totals
// as computed at submit time; the backend treats them as the order of record.
type Order struct {
	CustomerEmail  string        `json:"customerEmail"`
	CustomerName   string        `json:"customerName"`
	Phone          string        `json:"phone"`
	Address        string        `json:"address"`
	City           string        `json:"city"`
	PostalCode     string        `json:"postalCode,omitempty"`
	PaymentMethod  string        `json:"paymentMethod"`
	TransactionID  string        `json:"transactionId,omitempty"`
	IdempotencyKey string        `json:"idempotencyKey"`
	Items          []OrderItem   `json:"items"`
	Subtotal       money.Decimal `json:"subtotal"`
	DeliveryFee    money.Decimal `json:"deliveryFee"`
	Total          money.Decimal `json:"total"`
}

// OrderResult is the backend's acknowledgement of a created order.
type OrderResult struct {
	Success bool   `json:"success"`
	OrderID string `json:"orderId"`
}

type paymentIntentRequest struct {
	Amount money.Decimal `json:"amount"`
}

type paymentIntentResponse struct {
	ClientSecret string `json:"clientSecret"`
}

// CreateOrder persists a completed checkout. Called exactly once per
// user-initiated submit; the idempotency key in the payload covers the
// lost-response case.
func (c *Client) CreateOrder(ctx context.Context, order Order) (OrderResult, error) {
	var result OrderResult
	if err := c.doJSON(ctx, http.MethodPost, "/checkout", nil, order, &result); err != nil {
		return OrderResult{}, err
	}
	return result, nil
}

// CreatePaymentIntent asks the backend for a provider intent covering amount,
// returning the single-use client secret the confirmation step binds to.
func (c *Client) CreatePaymentIntent(ctx context.Context, amount float64) (string, error) {
	var resp paymentIntentResponse
	err := c.doJSON(ctx, http.MethodPost, "/create-payment-intent", nil,
		paymentIntentRequest{Amount: money.Decimal(amount)}, &resp)
	if err != nil {
		return "", err
	}
	return resp.ClientSecret, nil
}
