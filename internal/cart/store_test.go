package cart

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tastebite/storefront/internal/api"
	"github.com/tastebite/storefront/internal/session"
)

type mockBackend struct {
	m     sync.Mutex
	items []api.CartItem
	next  int

	listErr   error
	createErr error
	updateErr error
	deleteErr error

	listCalls   int
	createCalls int
	updateCalls int
	deleteCalls int

	// createStarted/createRelease let a test hold an add in flight.
	createStarted chan struct{}
	createRelease chan struct{}
}

func (m *mockBackend) ListCartItems(_ context.Context, email string) ([]api.CartItem, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]api.CartItem, 0, len(m.items))
	for _, it := range m.items {
		if it.CustomerEmail == email {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *mockBackend) CreateCartItem(_ context.Context, item api.CartItem) error {
	if m.createStarted != nil {
		m.createStarted <- struct{}{}
		<-m.createRelease
	}
	m.m.Lock()
	defer m.m.Unlock()
	m.createCalls++
	if m.createErr != nil {
		return m.createErr
	}
	m.next++
	item.ID = fmt.Sprintf("c%d", m.next)
	m.items = append(m.items, item)
	return nil
}

func (m *mockBackend) UpdateCartQuantity(_ context.Context, id string, quantity int) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.updateCalls++
	if m.updateErr != nil {
		return m.updateErr
	}
	for i := range m.items {
		if m.items[i].ID == id {
			m.items[i].Quantity = quantity
			return nil
		}
	}
	return fmt.Errorf("item not found")
}

func (m *mockBackend) DeleteCartItem(_ context.Context, id string) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.deleteCalls++
	if m.deleteErr != nil {
		return m.deleteErr
	}
	for i := range m.items {
		if m.items[i].ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("item not found")
}

type recordingNotifier struct {
	m      sync.Mutex
	events []Event
}

func (n *recordingNotifier) Notify(e Event) {
	n.m.Lock()
	defer n.m.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) kinds() []EventKind {
	n.m.Lock()
	defer n.m.Unlock()
	kinds := make([]EventKind, len(n.events))
	for i, e := range n.events {
		kinds[i] = e.Kind
	}
	return kinds
}

func testSession() session.Session {
	return session.New("kayum@example.com", "Kayum")
}

func newSut(backend *mockBackend, notifier Notifier, cfg Config) *Store {
	if cfg.DeliveryFee == 0 {
		cfg.DeliveryFee = 120
	}
	return NewStore(backend, testSession(), notifier, cfg)
}

func seededBackend() *mockBackend {
	return &mockBackend{
		items: []api.CartItem{
			{ID: "c1", ProductID: "p1", Title: "Beef Burger", Price: 250, Quantity: 2, CustomerEmail: "kayum@example.com"},
			{ID: "c2", ProductID: "p2", Title: "Fries", Price: 100, Quantity: 1, CustomerEmail: "kayum@example.com"},
		},
		next: 2,
	}
}

func TestLoad_ReplacesLocalView(t *testing.T) {
	sut := newSut(seededBackend(), nil, Config{})

	require.NoError(t, sut.Load(context.Background()))
	items := sut.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "c1", items[0].ID)
	assert.Equal(t, 250.0, items[0].UnitPrice)

	totals := sut.Totals()
	assert.Equal(t, 600.0, totals.Subtotal)
	assert.Equal(t, 120.0, totals.DeliveryFee)
	assert.Equal(t, 720.0, totals.Total)
}

func TestLoad_FailureKeepsPreviousContents(t *testing.T) {
	backend := seededBackend()
	sut := newSut(backend, nil, Config{})
	require.NoError(t, sut.Load(context.Background()))

	backend.m.Lock()
	backend.listErr = fmt.Errorf("connection refused")
	backend.m.Unlock()

	err := sut.Load(context.Background())
	require.ErrorContains(t, err, "connection refused")
	assert.Len(t, sut.Items(), 2, "previous contents must survive a failed load")
}

func TestLoad_NotSignedIn(t *testing.T) {
	sut := NewStore(seededBackend(), session.Session{}, nil, Config{DeliveryFee: 120})
	require.ErrorIs(t, sut.Load(context.Background()), ErrNotSignedIn)
}

func TestAdd_ReloadsWithBackendAssignedID(t *testing.T) {
	backend := &mockBackend{}
	notifier := &recordingNotifier{}
	sut := newSut(backend, notifier, Config{})

	err := sut.Add(context.Background(), Selection{
		ProductID: "p1",
		Title:     "Beef Burger",
		UnitPrice: 250,
		Quantity:  2,
		Variant:   map[string]string{"Size": "Large"},
	})
	require.NoError(t, err)

	items := sut.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "c1", items[0].ID, "id must come from the backend, not be invented locally")
	assert.Equal(t, "kayum@example.com", items[0].CustomerEmail)
	assert.Equal(t, []EventKind{EventItemAdded}, notifier.kinds())
}

func TestAdd_FailureLeavesStoreUntouched(t *testing.T) {
	// Failed add: store keeps pre-add contents, AddFailed observable.
	backend := seededBackend()
	notifier := &recordingNotifier{}
	sut := newSut(backend, notifier, Config{})
	require.NoError(t, sut.Load(context.Background()))

	backend.m.Lock()
	backend.createErr = fmt.Errorf("network error")
	backend.m.Unlock()

	err := sut.Add(context.Background(), Selection{ProductID: "p9", Title: "Pizza", UnitPrice: 500, Quantity: 1})
	require.ErrorContains(t, err, "network error")

	items := sut.Items()
	assert.Len(t, items, 2)
	for _, it := range items {
		assert.NotEqual(t, "p9", it.ProductID)
	}
	assert.Equal(t, []EventKind{EventAddFailed}, notifier.kinds())
}

func TestAdd_RejectsZeroQuantity(t *testing.T) {
	backend := &mockBackend{}
	sut := newSut(backend, nil, Config{})

	err := sut.Add(context.Background(), Selection{ProductID: "p1", Quantity: 0})
	require.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Zero(t, backend.createCalls, "no request may be sent for an invalid quantity")
}

func TestAdd_SameSelectionTwice_DefaultDuplicatesRow(t *testing.T) {
	// Default config: every add inserts a new row.
	backend := &mockBackend{}
	sut := newSut(backend, nil, Config{})
	sel := Selection{ProductID: "p1", Title: "Beef Burger", UnitPrice: 250, Quantity: 1, Variant: map[string]string{"Size": "Large"}}

	require.NoError(t, sut.Add(context.Background(), sel))
	require.NoError(t, sut.Add(context.Background(), sel))

	items := sut.Items()
	require.Len(t, items, 2)
	assert.NotEqual(t, items[0].ID, items[1].ID)
}

func TestAdd_SameSelectionTwice_MergeFlagIncrementsQuantity(t *testing.T) {
	// Merge enabled: one row, summed quantity.
	backend := &mockBackend{}
	sut := newSut(backend, nil, Config{MergeIdenticalSelections: true})
	sel := Selection{ProductID: "p1", Title: "Beef Burger", UnitPrice: 250, Quantity: 1, Variant: map[string]string{"Size": "Large"}}

	require.NoError(t, sut.Add(context.Background(), sel))
	sel.Quantity = 2
	require.NoError(t, sut.Add(context.Background(), sel))

	items := sut.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, 1, backend.createCalls)
	assert.Equal(t, 1, backend.updateCalls)
}

func TestAdd_MergeFlag_DifferentVariantStillInserts(t *testing.T) {
	backend := &mockBackend{}
	sut := newSut(backend, nil, Config{MergeIdenticalSelections: true})

	require.NoError(t, sut.Add(context.Background(), Selection{
		ProductID: "p1", UnitPrice: 250, Quantity: 1, Variant: map[string]string{"Size": "Large"},
	}))
	require.NoError(t, sut.Add(context.Background(), Selection{
		ProductID: "p1", UnitPrice: 250, Quantity: 1, Variant: map[string]string{"Size": "Regular"},
	}))

	assert.Len(t, sut.Items(), 2)
	assert.Equal(t, 2, backend.createCalls)
}

func TestAdd_SecondAddForSameProductWhileInFlight(t *testing.T) {
	backend := &mockBackend{
		createStarted: make(chan struct{}, 1),
		createRelease: make(chan struct{}),
	}
	sut := newSut(backend, nil, Config{})
	sel := Selection{ProductID: "p1", UnitPrice: 250, Quantity: 1}

	done := make(chan error, 1)
	go func() { done <- sut.Add(context.Background(), sel) }()
	<-backend.createStarted

	assert.True(t, sut.AddInFlight("p1"))
	require.ErrorIs(t, sut.Add(context.Background(), sel), ErrAddInFlight)

	close(backend.createRelease)
	require.NoError(t, <-done)
	assert.False(t, sut.AddInFlight("p1"))
	assert.Equal(t, 1, backend.createCalls)
}

func TestSetQuantity_Optimistic(t *testing.T) {
	backend := seededBackend()
	sut := newSut(backend, nil, Config{})
	require.NoError(t, sut.Load(context.Background()))

	require.NoError(t, sut.SetQuantity(context.Background(), "c1", 5))
	assert.Equal(t, 5, sut.Items()[0].Quantity)
	assert.Equal(t, 5, backend.items[0].Quantity)
}

func TestSetQuantity_BelowOneIsLocalNoOp(t *testing.T) {
	backend := seededBackend()
	sut := newSut(backend, nil, Config{})
	require.NoError(t, sut.Load(context.Background()))

	for _, q := range []int{0, -1} {
		err := sut.SetQuantity(context.Background(), "c1", q)
		require.ErrorIs(t, err, ErrInvalidQuantity)
	}
	assert.Equal(t, 2, sut.Items()[0].Quantity, "prior quantity must be retained")
	assert.Zero(t, backend.updateCalls, "no request may be sent")
}

func TestSetQuantity_FailureRestoresPriorQuantity(t *testing.T) {
	backend := seededBackend()
	notifier := &recordingNotifier{}
	sut := newSut(backend, notifier, Config{})
	require.NoError(t, sut.Load(context.Background()))

	backend.m.Lock()
	backend.updateErr = fmt.Errorf("network error")
	backend.m.Unlock()

	err := sut.SetQuantity(context.Background(), "c1", 9)
	require.ErrorContains(t, err, "network error")
	assert.Equal(t, 2, sut.Items()[0].Quantity)
	assert.Equal(t, []EventKind{EventUpdateFailed}, notifier.kinds())
	assert.False(t, sut.MutationInFlight("c1"))
}

func TestSetQuantity_UnknownItem(t *testing.T) {
	sut := newSut(seededBackend(), nil, Config{})
	require.NoError(t, sut.Load(context.Background()))

	require.ErrorIs(t, sut.SetQuantity(context.Background(), "nope", 3), ErrItemNotFound)
}

func TestRemove_Success(t *testing.T) {
	backend := seededBackend()
	sut := newSut(backend, nil, Config{})
	require.NoError(t, sut.Load(context.Background()))

	require.NoError(t, sut.Remove(context.Background(), "c1"))
	items := sut.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "c2", items[0].ID)
	assert.Equal(t, 220.0, sut.Totals().Total)
}

func TestRemove_FailureKeepsItemVisible(t *testing.T) {
	// No fire-and-forget delete: a failed backend delete must leave the
	// item in the local view.
	backend := seededBackend()
	notifier := &recordingNotifier{}
	sut := newSut(backend, notifier, Config{})
	require.NoError(t, sut.Load(context.Background()))

	backend.m.Lock()
	backend.deleteErr = fmt.Errorf("network error")
	backend.m.Unlock()

	err := sut.Remove(context.Background(), "c1")
	require.ErrorContains(t, err, "network error")
	assert.Len(t, sut.Items(), 2)
	assert.Equal(t, []EventKind{EventRemoveFailed}, notifier.kinds())
}

func TestClear_ResetsLocalViewOnly(t *testing.T) {
	backend := seededBackend()
	sut := newSut(backend, nil, Config{})
	require.NoError(t, sut.Load(context.Background()))

	sut.Clear()
	assert.Zero(t, sut.Len())
	assert.Equal(t, Totals{}, sut.Totals())
	assert.Zero(t, backend.deleteCalls, "Clear is local; the backend cart was consumed by checkout")
}

func TestItems_ReturnsCopy(t *testing.T) {
	sut := newSut(seededBackend(), nil, Config{})
	require.NoError(t, sut.Load(context.Background()))

	items := sut.Items()
	items[0].Quantity = 99
	assert.Equal(t, 2, sut.Items()[0].Quantity)
}

func TestFormatTotal(t *testing.T) {
	sut := newSut(seededBackend(), nil, Config{CurrencyPrefix: "৳"})
	require.NoError(t, sut.Load(context.Background()))
	assert.Equal(t, "৳ 720.00", sut.FormatTotal())
}

func TestFromAPI_ClampsQuantity(t *testing.T) {
	item := fromAPI(api.CartItem{ID: "c1", Quantity: 0})
	assert.Equal(t, 1, item.Quantity)
}
