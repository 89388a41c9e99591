// Package cart holds the line-item store: the local, editable view of one
// identity's cart, kept consistent with the backend by reloading after every
// confirmed mutation. The backend is always the source of truth: completions
// may arrive out of request order, so reconciliation never trusts client-side
// ordering, only "whatever the backend now reports".
package cart

import (
	"context"
	"errors"
	"fmt"
	"log"
	"maps"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/tastebite/storefront/internal/api"
	"github.com/tastebite/storefront/internal/money"
	"github.com/tastebite/storefront/internal/session"
)

var (
	ErrInvalidQuantity  = errors.New("quantity must be at least 1")
	ErrItemNotFound     = errors.New("line item not found in cart")
	ErrMutationInFlight = errors.New("a mutation for this item is still in flight")
	ErrAddInFlight      = errors.New("an add for this product is still in flight")
	ErrNotSignedIn      = session.ErrNotSignedIn
)

// LineItem is one product instance held in the cart. Title, image and unit
// price are snapshots taken at add-time; the catalog may change independently.
type LineItem struct {
	ID              string
	ProductID       string
	Title           string
	Image           string
	UnitPrice       float64
	Quantity        int
	SelectedVariant map[string]string
	CustomerEmail   string
}

// Selection is what the catalog view hands to Add: a product plus the chosen
// variant options and quantity.
type Selection struct {
	ProductID string
	Title     string
	Image     string
	UnitPrice float64
	Quantity  int
	Variant   map[string]string
}

// Backend is the slice of the REST client the store needs.
type Backend interface {
	ListCartItems(ctx context.Context, email string) ([]api.CartItem, error)
	CreateCartItem(ctx context.Context, item api.CartItem) error
	UpdateCartQuantity(ctx context.Context, id string, quantity int) error
	DeleteCartItem(ctx context.Context, id string) error
}

// EventKind classifies user-facing cart notifications.
type EventKind string

const (
	EventItemAdded    EventKind = "item_added"
	EventAddFailed    EventKind = "add_failed"
	EventUpdateFailed EventKind = "update_failed"
	EventRemoveFailed EventKind = "remove_failed"
)

type Event struct {
	Kind       EventKind
	ProductID  string
	LineItemID string
	Err        error
}

// Notifier receives cart events for display. Implementations must not block.
type Notifier interface {
	Notify(Event)
}

type NopNotifier struct{}

func (NopNotifier) Notify(Event) {}

// Config carries the cart policy knobs.
type Config struct {
	// DeliveryFee is the flat fee applied to any non-empty cart.
	DeliveryFee float64
	// CurrencyPrefix feeds money.Format for display strings.
	CurrencyPrefix string
	// MergeIdenticalSelections folds a re-add of the same product+variant into
	// the existing row's quantity instead of inserting a duplicate row. Off by
	// default: the backend stores duplicate rows today, and that stays the
	// observed behavior until product decides otherwise.
	MergeIdenticalSelections bool
}

// Store is the authoritative in-memory cart for one session. Single-writer by
// design (the user drives it); the mutex only guards against a mutation
// completion racing a concurrent read.
type Store struct {
	backend  Backend
	sess     session.Session
	notifier Notifier
	cfg      Config

	loads singleflight.Group

	mu          sync.RWMutex
	items       []LineItem
	pendingAdds map[string]bool // productID -> add in flight
	pendingOps  map[string]bool // lineItemID -> quantity/remove in flight
}

func NewStore(backend Backend, sess session.Session, notifier Notifier, cfg Config) *Store {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Store{
		backend:     backend,
		sess:        sess,
		notifier:    notifier,
		cfg:         cfg,
		pendingAdds: map[string]bool{},
		pendingOps:  map[string]bool{},
	}
}

// Load replaces the local view with whatever the backend reports for the
// session's email. On failure the previous contents are kept and the error is
// returned for the caller to surface; there is no built-in retry. Concurrent
// loads for the same email collapse into one request.
func (s *Store) Load(ctx context.Context) error {
	if !s.sess.SignedIn() {
		return ErrNotSignedIn
	}

	_, err, _ := s.loads.Do(s.sess.Email, func() (any, error) {
		fetched, err := s.backend.ListCartItems(ctx, s.sess.Email)
		if err != nil {
			return nil, err
		}
		items := make([]LineItem, 0, len(fetched))
		for _, it := range fetched {
			items = append(items, fromAPI(it))
		}
		s.mu.Lock()
		s.items = items
		s.mu.Unlock()
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("load cart: %w", err)
	}
	return nil
}

// Add creates a new line item from a catalog selection. No optimistic insert:
// the local view only changes after the backend confirms and the store has
// reloaded the backend-assigned row. At most one add per product may be in
// flight; different products may overlap.
func (s *Store) Add(ctx context.Context, sel Selection) error {
	if !s.sess.SignedIn() {
		return ErrNotSignedIn
	}
	if sel.Quantity < 1 {
		return ErrInvalidQuantity
	}

	s.mu.Lock()
	if s.pendingAdds[sel.ProductID] {
		s.mu.Unlock()
		return ErrAddInFlight
	}
	s.pendingAdds[sel.ProductID] = true
	var existing *LineItem
	if s.cfg.MergeIdenticalSelections {
		existing = s.findSelectionLocked(sel.ProductID, sel.Variant)
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.pendingAdds, sel.ProductID)
		s.mu.Unlock()
	}()

	var err error
	if existing != nil {
		err = s.backend.UpdateCartQuantity(ctx, existing.ID, existing.Quantity+sel.Quantity)
	} else {
		err = s.backend.CreateCartItem(ctx, api.CartItem{
			ProductID:     sel.ProductID,
			Title:         sel.Title,
			Price:         money.Decimal(sel.UnitPrice),
			Image:         sel.Image,
			Quantity:      sel.Quantity,
			Variants:      sel.Variant,
			CustomerEmail: s.sess.Email,
			CustomerName:  s.sess.Name,
		})
	}
	if err != nil {
		s.notifier.Notify(Event{Kind: EventAddFailed, ProductID: sel.ProductID, Err: err})
		return fmt.Errorf("add to cart: %w", err)
	}

	// Reload so the backend-assigned id (or merged quantity) appears.
	if err := s.Load(ctx); err != nil {
		log.Printf("cart: reload after add failed: %v", err)
	}
	s.notifier.Notify(Event{Kind: EventItemAdded, ProductID: sel.ProductID})
	return nil
}

// AddInFlight reports whether an add for the product is pending. Drives the
// per-item loading indicator.
func (s *Store) AddInFlight(productID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pendingAdds[productID]
}

// SetQuantity overwrites a line item's quantity. Quantities below 1 are
// rejected locally with no request sent. The change applies optimistically
// (the local view shows the new quantity before the backend confirms) and is
// rolled back if the update fails. The next Load reconciles either way.
func (s *Store) SetQuantity(ctx context.Context, lineItemID string, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	s.mu.Lock()
	idx := s.indexOfLocked(lineItemID)
	if idx < 0 {
		s.mu.Unlock()
		return ErrItemNotFound
	}
	if s.pendingOps[lineItemID] {
		s.mu.Unlock()
		return ErrMutationInFlight
	}
	s.pendingOps[lineItemID] = true
	prior := s.items[idx].Quantity
	s.items[idx].Quantity = quantity
	s.mu.Unlock()

	err := s.backend.UpdateCartQuantity(ctx, lineItemID, quantity)

	s.mu.Lock()
	delete(s.pendingOps, lineItemID)
	if err != nil {
		if idx := s.indexOfLocked(lineItemID); idx >= 0 {
			s.items[idx].Quantity = prior
		}
	}
	s.mu.Unlock()

	if err != nil {
		s.notifier.Notify(Event{Kind: EventUpdateFailed, LineItemID: lineItemID, Err: err})
		return fmt.Errorf("update quantity: %w", err)
	}
	return nil
}

// Remove deletes a line item. The item leaves the local view only after the
// backend confirms; on failure it stays visible so the display never diverges
// from backend truth.
func (s *Store) Remove(ctx context.Context, lineItemID string) error {
	s.mu.Lock()
	if s.indexOfLocked(lineItemID) < 0 {
		s.mu.Unlock()
		return ErrItemNotFound
	}
	if s.pendingOps[lineItemID] {
		s.mu.Unlock()
		return ErrMutationInFlight
	}
	s.pendingOps[lineItemID] = true
	s.mu.Unlock()

	err := s.backend.DeleteCartItem(ctx, lineItemID)

	s.mu.Lock()
	delete(s.pendingOps, lineItemID)
	if err == nil {
		if idx := s.indexOfLocked(lineItemID); idx >= 0 {
			s.items = append(s.items[:idx], s.items[idx+1:]...)
		}
	}
	s.mu.Unlock()

	if err != nil {
		s.notifier.Notify(Event{Kind: EventRemoveFailed, LineItemID: lineItemID, Err: err})
		return fmt.Errorf("remove item: %w", err)
	}
	return nil
}

// MutationInFlight reports whether a quantity update or removal is pending for
// the line item.
func (s *Store) MutationInFlight(lineItemID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pendingOps[lineItemID]
}

// Clear resets the local view. Used after a successful checkout, when the
// backend has already consumed the cart.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
}

// Items returns a copy of the current line items in backend order.
func (s *Store) Items() []LineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]LineItem, len(s.items))
	copy(items, s.items)
	for i := range items {
		items[i].SelectedVariant = maps.Clone(items[i].SelectedVariant)
	}
	return items
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Totals derives the monetary summary from the current items.
func (s *Store) Totals() Totals {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Derive(s.items, s.cfg.DeliveryFee)
}

// FormatTotal renders the current total for display.
func (s *Store) FormatTotal() string {
	return money.Format(s.cfg.CurrencyPrefix, s.Totals().Total)
}

func (s *Store) Session() session.Session { return s.sess }

func (s *Store) Config() Config { return s.cfg }

func (s *Store) indexOfLocked(lineItemID string) int {
	for i := range s.items {
		if s.items[i].ID == lineItemID {
			return i
		}
	}
	return -1
}

func (s *Store) findSelectionLocked(productID string, variant map[string]string) *LineItem {
	for i := range s.items {
		if s.items[i].ProductID == productID && maps.Equal(s.items[i].SelectedVariant, variant) {
			item := s.items[i]
			return &item
		}
	}
	return nil
}

func fromAPI(it api.CartItem) LineItem {
	quantity := it.Quantity
	if quantity < 1 {
		quantity = 1
	}
	return LineItem{
		ID:              it.ID,
		ProductID:       it.ProductID,
		Title:           it.Title,
		Image:           it.Image,
		UnitPrice:       it.Price.Float64(),
		Quantity:        quantity,
		SelectedVariant: it.Variants,
		CustomerEmail:   it.CustomerEmail,
	}
}
