package catalog

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tastebite/storefront/internal/api"
)

type mockCatalogBackend struct {
	m         sync.Mutex
	products  []api.Product
	err       error
	listCalls int
	lastQuery url.Values
}

func (m *mockCatalogBackend) ListFoodMenu(_ context.Context, query url.Values) ([]api.Product, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.listCalls++
	m.lastQuery = query
	if m.err != nil {
		return nil, m.err
	}
	return m.products, nil
}

func (m *mockCatalogBackend) GetFood(_ context.Context, id string) (api.Product, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return api.Product{}, m.err
	}
	for _, p := range m.products {
		if p.ID == id {
			return p, nil
		}
	}
	return api.Product{}, fmt.Errorf("GET /food-menu/%s: %w", id, api.ErrNotFound)
}

func menuBackend() *mockCatalogBackend {
	return &mockCatalogBackend{
		products: []api.Product{
			{ID: "p1", Title: "Beef Burger", BasePrice: 250, Category: "burgers"},
			{ID: "p2", Title: "Fries", BasePrice: 100, Category: "sides"},
		},
	}
}

func TestList_ForwardsFilterAsQuery(t *testing.T) {
	backend := menuBackend()
	sut := NewReader(backend, nil)

	products, err := sut.List(context.Background(), Filter{Category: "burgers", Search: "beef", Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, products, 2)

	assert.Equal(t, "burgers", backend.lastQuery.Get("category"))
	assert.Equal(t, "beef", backend.lastQuery.Get("search"))
	assert.Equal(t, "2", backend.lastQuery.Get("page"))
	assert.Equal(t, "10", backend.lastQuery.Get("limit"))
}

func TestList_EmptyFilterSendsNoParams(t *testing.T) {
	backend := menuBackend()
	sut := NewReader(backend, nil)

	_, err := sut.List(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Empty(t, backend.lastQuery)
}

func TestList_BackendError(t *testing.T) {
	backend := &mockCatalogBackend{err: fmt.Errorf("connection refused")}
	sut := NewReader(backend, nil)

	_, err := sut.List(context.Background(), Filter{})
	require.ErrorContains(t, err, "connection refused")
}

func TestList_CacheHitSkipsBackend(t *testing.T) {
	backend := menuBackend()
	cache := NewMemoryCache(time.Minute)
	sut := NewReader(backend, cache)

	_, err := sut.List(context.Background(), Filter{Category: "burgers"})
	require.NoError(t, err)
	assert.Equal(t, 1, backend.listCalls)

	// Cache population is async.
	require.Eventually(t, func() bool {
		_, err := cache.Get(context.Background(), Filter{Category: "burgers"}.cacheKey())
		return err == nil
	}, 100*time.Millisecond, 5*time.Millisecond, "listing was not cached")

	_, err = sut.List(context.Background(), Filter{Category: "burgers"})
	require.NoError(t, err)
	assert.Equal(t, 1, backend.listCalls, "second list must be served from cache")

	// A different filter is a different key.
	_, err = sut.List(context.Background(), Filter{Category: "sides"})
	require.NoError(t, err)
	assert.Equal(t, 2, backend.listCalls)
}

func TestGetByID_Success(t *testing.T) {
	sut := NewReader(menuBackend(), nil)

	product, err := sut.GetByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Beef Burger", product.Title)
	assert.Equal(t, 250.0, product.BasePrice.Float64())
}

func TestGetByID_NotFound(t *testing.T) {
	sut := NewReader(menuBackend(), nil)

	_, err := sut.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryCache_Expiry(t *testing.T) {
	sut := NewMemoryCache(10 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, sut.Set(ctx, "menu:all", []api.Product{{ID: "p1"}}))
	products, err := sut.Get(ctx, "menu:all")
	require.NoError(t, err)
	assert.Len(t, products, 1)

	assert.Eventually(t, func() bool {
		_, err := sut.Get(ctx, "menu:all")
		return err == ErrCacheMiss
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryCache_Delete(t *testing.T) {
	sut := NewMemoryCache(time.Minute)
	ctx := context.Background()

	require.NoError(t, sut.Set(ctx, "menu:all", nil))
	require.NoError(t, sut.Delete(ctx, "menu:all"))
	_, err := sut.Get(ctx, "menu:all")
	require.ErrorIs(t, err, ErrCacheMiss)
}
