// Package catalog holds process-lifetime snapshots of the listing catalog
// and its coordinates. Both caches load lazily on first use and are
// read-only afterward; the resolver and dispatcher share them across
// workers.
package catalog

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/dev-urban/mailchimp-automation/internal/model"
)

// ListingSource is the bulk read the catalog cache is built from.
type ListingSource interface {
	FetchAllListings(ctx context.Context) ([]model.Listing, error)
}

// Catalog is a lazily-populated snapshot of every listing, indexed by code.
type Catalog struct {
	source ListingSource

	mu      sync.RWMutex
	loaded  bool
	ordered []model.Listing
	byCode  map[string]model.Listing
}

// NewCatalog wraps a listing source in an empty, not-yet-loaded cache.
func NewCatalog(source ListingSource) *Catalog {
	return &Catalog{source: source}
}

// EnsureLoaded snapshots the full catalog on first call; every later call is
// a no-op, including after a failed load. A failure logs and leaves the
// cache empty — callers see "no catalog available" and decide themselves
// whether to build a new cache and retry.
func (c *Catalog) EnsureLoaded(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return
	}
	c.loaded = true

	listings, err := c.source.FetchAllListings(ctx)
	if err != nil {
		zap.L().Error("catalog load failed, cache stays empty", zap.Error(err))
		return
	}

	c.ordered = listings
	c.byCode = make(map[string]model.Listing, len(listings))
	for _, l := range listings {
		c.byCode[l.Code] = l
	}
	zap.L().Info("catalog loaded", zap.Int("listings", len(listings)))
}

// Get returns the listing for a code, if present.
func (c *Catalog) Get(code string) (model.Listing, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	l, ok := c.byCode[code]
	return l, ok
}

// All returns the catalog snapshot in load order. The returned slice is
// shared; callers must not modify it.
func (c *Catalog) All() []model.Listing {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ordered
}

// Len returns the number of cached listings.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.ordered)
}
