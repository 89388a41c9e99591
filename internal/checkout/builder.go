// Package checkout turns a reviewed cart plus a filled-in form into exactly
// one order submission. Validation happens entirely client-side before any
// request is sent; a passing submit freezes the cart into a snapshot so later
// cart edits cannot alter an already-submitted order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/tastebite/storefront/internal/api"
	"github.com/tastebite/storefront/internal/cart"
	"github.com/tastebite/storefront/internal/money"
	"github.com/tastebite/storefront/internal/session"
)

const (
	PaymentMethodCard           = "card"
	PaymentMethodCashOnDelivery = "cod"
)

var (
	ErrSubmitInFlight = errors.New("a checkout submission is already in flight")
	ErrEmptyCart      = errors.New("cart is empty, nothing to checkout")
)

// ValidationError is a client-side precondition failure. No request has been
// sent when one of these is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Card carries the card-proxy fields of the manual payment path. When the
// external confirmation widget handles the card instead, these fields stay
// empty and the widget's own validation supersedes ours.
type Card struct {
	Number string
	Expiry string
	CVV    string
	Name   string
}

// Form is the transient checkout form: prefilled identity, shipping fields,
// and the payment method selector. Discarded after a successful submit.
type Form struct {
	Email         string // read-only, prefilled from the session
	Name          string
	Phone         string
	Address       string
	City          string
	PostalCode    string
	PaymentMethod string
	Card          Card
}

// NewForm prefills a form from the session identity, card payment selected,
// as the checkout page does on entry.
func NewForm(sess session.Session) Form {
	return Form{
		Email:         sess.Email,
		Name:          sess.Name,
		PaymentMethod: PaymentMethodCard,
	}
}

// Cart is the slice of the line-item store the builder reads.
type Cart interface {
	Items() []cart.LineItem
	Totals() cart.Totals
	Clear()
}

// OrderCreator is the backend call that persists the order.
type OrderCreator interface {
	CreateOrder(ctx context.Context, order api.Order) (api.OrderResult, error)
}

// Builder validates a form against the current cart and issues one
// create-order request per explicit user action. The in-flight flag is the
// sole concurrency guard: a second submit while one is pending is ignored.
type Builder struct {
	backend OrderCreator
	cart    Cart
	sess    session.Session

	mu             sync.Mutex
	inFlight       bool
	idempotencyKey string
}

func NewBuilder(backend OrderCreator, c Cart, sess session.Session) *Builder {
	return &Builder{backend: backend, cart: c, sess: sess}
}

// Validate applies the precondition rules in order, first failure wins:
// shipping fields, then card-proxy fields (manual card path only), then cart
// non-empty.
func (b *Builder) Validate(form Form, withWidget bool) error {
	for _, field := range []struct{ name, value string }{
		{"phone", form.Phone},
		{"address", form.Address},
		{"city", form.City},
	} {
		if strings.TrimSpace(field.value) == "" {
			return &ValidationError{Field: field.name, Reason: "required shipping field is blank"}
		}
	}

	if form.PaymentMethod == PaymentMethodCard && !withWidget {
		for _, field := range []struct{ name, value string }{
			{"card number", form.Card.Number},
			{"card expiry", form.Card.Expiry},
			{"card cvv", form.Card.CVV},
			{"cardholder name", form.Card.Name},
		} {
			if strings.TrimSpace(field.value) == "" {
				return &ValidationError{Field: field.name, Reason: "required card field is blank"}
			}
		}
	}

	if len(b.cart.Items()) == 0 {
		return ErrEmptyCart
	}
	return nil
}

// Submit validates and, on pass, sends the order built from the cart snapshot
// and derived totals at this moment. Success clears the local cart; failure
// leaves cart and form intact for a retry (never automatic). transactionID is
// set by the payment adapter on the widget path and empty otherwise.
func (b *Builder) Submit(ctx context.Context, form Form, transactionID string) (api.OrderResult, error) {
	withWidget := transactionID != ""
	if err := b.Validate(form, withWidget); err != nil {
		return api.OrderResult{}, err
	}

	b.mu.Lock()
	if b.inFlight {
		b.mu.Unlock()
		return api.OrderResult{}, ErrSubmitInFlight
	}
	b.inFlight = true
	// One key per checkout attempt; a retry of a failed attempt reuses it so
	// the backend can collapse an ambiguous resend.
	if b.idempotencyKey == "" {
		b.idempotencyKey = uuid.NewString()
	}
	key := b.idempotencyKey
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.inFlight = false
		b.mu.Unlock()
	}()

	order := b.buildOrder(form, transactionID, key)

	result, err := b.backend.CreateOrder(ctx, order)
	if err != nil {
		return api.OrderResult{}, fmt.Errorf("checkout failed: %w", err)
	}

	b.mu.Lock()
	b.idempotencyKey = "" // next attempt is a new order
	b.mu.Unlock()
	b.cart.Clear()
	return result, nil
}

// buildOrder freezes the cart and its derived totals into the submission
// payload. The snapshot is by value; later store mutations cannot reach it.
func (b *Builder) buildOrder(form Form, transactionID, key string) api.Order {
	items := b.cart.Items()
	totals := b.cart.Totals()

	orderItems := make([]api.OrderItem, 0, len(items))
	for _, item := range items {
		orderItems = append(orderItems, api.OrderItem{
			ProductID: item.ProductID,
			Title:     item.Title,
			Price:     money.Decimal(item.UnitPrice),
			Image:     item.Image,
			Quantity:  item.Quantity,
			Variants:  item.SelectedVariant,
		})
	}

	return api.Order{
		CustomerEmail:  b.sess.Email,
		CustomerName:   strings.TrimSpace(form.Name),
		Phone:          strings.TrimSpace(form.Phone),
		Address:        strings.TrimSpace(form.Address),
		City:           strings.TrimSpace(form.City),
		PostalCode:     strings.TrimSpace(form.PostalCode),
		PaymentMethod:  form.PaymentMethod,
		TransactionID:  transactionID,
		IdempotencyKey: key,
		Items:          orderItems,
		Subtotal:       money.Decimal(totals.Subtotal),
		DeliveryFee:    money.Decimal(totals.DeliveryFee),
		Total:          money.Decimal(totals.Total),
	}
}

// InFlight reports whether a submission is pending; drives the disabled state
// of the submit control.
func (b *Builder) InFlight() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inFlight
}
