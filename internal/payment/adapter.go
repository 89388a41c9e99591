package payment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/tastebite/storefront/internal/api"
	"github.com/tastebite/storefront/internal/cart"
	"github.com/tastebite/storefront/internal/checkout"
)

var (
	// ErrIntentCreation wraps a failed cart fetch or intent request during
	// Prepare. The session stays in Preparing; the user retries explicitly.
	ErrIntentCreation = errors.New("could not prepare payment")

	ErrIllegalTransition = errors.New("illegal payment session transition")
)

// OrderRecordError is the highest-severity failure: the provider settled the
// charge but the order persistence call failed. Money has moved; the cart is
// left intact so the pending order data is recoverable. Never auto-remediated
// client-side.
type OrderRecordError struct {
	TransactionID string
	Err           error
}

func (e *OrderRecordError) Error() string {
	return fmt.Sprintf("payment succeeded (transaction %s) but order was not recorded: %v", e.TransactionID, e.Err)
}

func (e *OrderRecordError) Unwrap() error { return e.Err }

// CartLoader is the slice of the line-item store the adapter needs: a fresh
// view of the cart and its derived total on checkout-page entry.
type CartLoader interface {
	Load(ctx context.Context) error
	Totals() cart.Totals
	Len() int
}

// IntentCreator is the backend call that turns an amount into a single-use
// client secret.
type IntentCreator interface {
	CreatePaymentIntent(ctx context.Context, amount float64) (string, error)
}

// OrderSubmitter validates the checkout form and persists the order after a
// settled payment; satisfied by *checkout.Builder.
type OrderSubmitter interface {
	Validate(form checkout.Form, withWidget bool) error
	Submit(ctx context.Context, form checkout.Form, transactionID string) (api.OrderResult, error)
}

// Adapter owns one payment checkout session. One Adapter per checkout-page
// visit; terminal states end the session.
type Adapter struct {
	backend   IntentCreator
	cart      CartLoader
	confirmer Confirmer
	orders    OrderSubmitter

	mu           sync.Mutex
	status       Status
	intentSecret string
	intentAmount float64
	orderID      string
}

func NewAdapter(backend IntentCreator, c CartLoader, confirmer Confirmer, orders OrderSubmitter) *Adapter {
	return &Adapter{
		backend:   backend,
		cart:      c,
		confirmer: confirmer,
		orders:    orders,
		status:    StatusPreparing,
	}
}

func (a *Adapter) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// OrderID returns the recorded order's id once the session reaches
// OrderRecorded.
func (a *Adapter) OrderID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.orderID
}

// Prepare runs the checkout-page-entry step: reload the cart, derive its
// total, and request an intent for that exact amount. Any failure leaves the
// session in Preparing with no automatic retry.
func (a *Adapter) Prepare(ctx context.Context) error {
	a.mu.Lock()
	if a.status != StatusPreparing {
		a.mu.Unlock()
		return fmt.Errorf("%w: prepare from %s", ErrIllegalTransition, a.status)
	}
	a.mu.Unlock()

	secret, total, err := a.createIntent(ctx)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.intentSecret = secret
	a.intentAmount = total
	a.status = StatusAwaitingConfirmation
	a.mu.Unlock()
	return nil
}

func (a *Adapter) createIntent(ctx context.Context) (string, float64, error) {
	if err := a.cart.Load(ctx); err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrIntentCreation, err)
	}
	if a.cart.Len() == 0 {
		return "", 0, fmt.Errorf("%w: %v", ErrIntentCreation, checkout.ErrEmptyCart)
	}
	total := a.cart.Totals().Total

	secret, err := a.backend.CreatePaymentIntent(ctx, total)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrIntentCreation, err)
	}
	return secret, total, nil
}

// Confirm runs the user-submit step: validate the form, drive the external
// confirmation, and on settled success persist the order with the provider's
// transaction id attached, exactly once.
//
// Validation uses widget semantics (the widget owns the card fields) and runs
// before anything charges: a ValidationError leaves the session in
// AwaitingConfirmation so the user can fix the form and resubmit. A decline or
// transport failure during confirmation moves the session to
// ConfirmationFailed; Retry returns it to AwaitingConfirmation and the same
// intent is reused (intents are provider-side idempotent). If the cart total
// no longer matches the intent's amount, a fresh intent is requested first;
// a stale intent is never confirmed against a different total.
func (a *Adapter) Confirm(ctx context.Context, form checkout.Form) (api.OrderResult, error) {
	if err := a.orders.Validate(form, true); err != nil {
		return api.OrderResult{}, err
	}

	a.mu.Lock()
	if a.status != StatusAwaitingConfirmation {
		a.mu.Unlock()
		return api.OrderResult{}, fmt.Errorf("%w: confirm from %s", ErrIllegalTransition, a.status)
	}
	// Claim the session inside the entry lock so a second Confirm cannot
	// slip in between the check and the transition.
	a.status = StatusConfirming
	secret := a.intentSecret
	intentAmount := a.intentAmount
	a.mu.Unlock()

	// Supersede a stale intent before touching the provider. A failed refresh
	// is a failed confirmation attempt; Retry reopens the session.
	if total := a.cart.Totals().Total; total != intentAmount {
		log.Printf("payment: cart total changed (%.2f -> %.2f), requesting fresh intent", intentAmount, total)
		newSecret, newTotal, err := a.createIntent(ctx)
		if err != nil {
			a.transition(StatusConfirmationFailed)
			return api.OrderResult{}, err
		}
		a.mu.Lock()
		a.intentSecret = newSecret
		a.intentAmount = newTotal
		a.mu.Unlock()
		secret = newSecret
	}

	transactionID, err := a.confirmer.Confirm(ctx, secret, BillingDetails{
		Email: form.Email,
		Name:  form.Name,
	})
	if err != nil {
		a.transition(StatusConfirmationFailed)
		return api.OrderResult{}, err
	}

	a.transition(StatusSucceeded)

	result, err := a.orders.Submit(ctx, form, transactionID)
	if err != nil {
		// Money has moved. This must never look like an ordinary decline.
		a.transition(StatusOrderRecordFailed)
		return api.OrderResult{}, &OrderRecordError{TransactionID: transactionID, Err: err}
	}

	a.mu.Lock()
	a.status = StatusOrderRecorded
	a.orderID = result.OrderID
	a.mu.Unlock()
	return result, nil
}

// Retry returns a failed confirmation to AwaitingConfirmation so the user can
// resubmit. Terminal states cannot be retried.
func (a *Adapter) Retry() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !CanTransitionTo(a.status, StatusAwaitingConfirmation) {
		return fmt.Errorf("%w: retry from %s", ErrIllegalTransition, a.status)
	}
	a.status = StatusAwaitingConfirmation
	return nil
}

func (a *Adapter) transition(to Status) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !CanTransitionTo(a.status, to) {
		// Guarded by the public entry points; reaching this is a bug.
		log.Printf("payment: illegal transition %s -> %s", a.status, to)
		return
	}
	a.status = to
}
