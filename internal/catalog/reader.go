// Package catalog is the read-only view over the food-menu resource. It holds
// no state beyond query parameters and an optional read-through cache.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tastebite/storefront/internal/api"
)

// ErrNotFound is returned by GetByID when the id does not resolve.
var ErrNotFound = api.ErrNotFound

// cacheSetTimeout bounds the detached cache write after a backend fetch.
const cacheSetTimeout = 5 * time.Second

// Backend is the slice of the REST client the reader needs.
type Backend interface {
	ListFoodMenu(ctx context.Context, query url.Values) ([]api.Product, error)
	GetFood(ctx context.Context, id string) (api.Product, error)
}

// Filter narrows a catalog listing. Zero values mean "no constraint"; the
// backend decides which parameters it honors.
type Filter struct {
	Category string
	Search   string
	Page     int
	PageSize int
}

func (f Filter) query() url.Values {
	q := url.Values{}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.PageSize > 0 {
		q.Set("limit", strconv.Itoa(f.PageSize))
	}
	return q
}

func (f Filter) cacheKey() string {
	return fmt.Sprintf("menu:%s|%s|%d|%d", f.Category, f.Search, f.Page, f.PageSize)
}

// Reader lists and resolves catalog entries, consulting the cache first and
// collapsing concurrent misses for the same filter into one backend fetch.
type Reader struct {
	backend Backend
	cache   Cache
	sfg     singleflight.Group
}

// NewReader builds a reader. A nil cache disables caching entirely.
func NewReader(backend Backend, cache Cache) *Reader {
	return &Reader{backend: backend, cache: cache}
}

// List returns the catalog entries matching the filter.
func (r *Reader) List(ctx context.Context, filter Filter) ([]api.Product, error) {
	key := filter.cacheKey()

	if r.cache != nil {
		products, err := r.cache.Get(ctx, key)
		if err == nil {
			return products, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			log.Printf("catalog: cache get error: %v", err)
		}
	}

	v, err, _ := r.sfg.Do(key, func() (any, error) {
		products, err := r.backend.ListFoodMenu(ctx, filter.query())
		if err != nil {
			return nil, err
		}
		if r.cache != nil {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), cacheSetTimeout)
				defer cancel()
				if err := r.cache.Set(ctx, key, products); err != nil {
					log.Printf("catalog: cache set error: %v", err)
				}
			}()
		}
		return products, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	return v.([]api.Product), nil
}

// GetByID resolves one catalog entry. ErrNotFound when the id is unknown.
func (r *Reader) GetByID(ctx context.Context, id string) (api.Product, error) {
	product, err := r.backend.GetFood(ctx, id)
	if err != nil {
		if api.IsNotFound(err) {
			return api.Product{}, fmt.Errorf("product %s: %w", id, ErrNotFound)
		}
		return api.Product{}, fmt.Errorf("get product %s: %w", id, err)
	}
	return product, nil
}
