package catalog

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/dev-urban/mailchimp-automation/internal/model"
)

// CoordinateSource is the bulk read the coordinate cache is built from. The
// source query already filters NULL pairs; the load re-checks anyway so a
// partial row can never be cached.
type CoordinateSource interface {
	FetchAllCoordinates(ctx context.Context) ([]model.CoordinateRow, error)
}

// Coordinates is a lazily-populated snapshot of listing code → coordinate.
type Coordinates struct {
	source CoordinateSource

	mu     sync.RWMutex
	loaded bool
	byCode map[string]model.Coordinate
}

// NewCoordinates wraps a coordinate source in an empty, not-yet-loaded cache.
func NewCoordinates(source CoordinateSource) *Coordinates {
	return &Coordinates{source: source}
}

// EnsureLoaded snapshots all known coordinates on first call; later calls
// are no-ops. A failed load logs and leaves the cache empty, which makes
// every listing take the neighborhood fallback path instead of crashing.
func (c *Coordinates) EnsureLoaded(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return
	}
	c.loaded = true

	rows, err := c.source.FetchAllCoordinates(ctx)
	if err != nil {
		zap.L().Error("coordinate load failed, cache stays empty", zap.Error(err))
		return
	}

	c.byCode = make(map[string]model.Coordinate, len(rows))
	for _, row := range rows {
		if row.Lat == nil || row.Lon == nil {
			continue
		}
		c.byCode[row.Code] = model.Coordinate{Lat: *row.Lat, Lon: *row.Lon}
	}
	zap.L().Info("coordinates loaded", zap.Int("coordinates", len(c.byCode)))
}

// Get returns the coordinate for a listing code, if one is known.
func (c *Coordinates) Get(code string) (model.Coordinate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	coord, ok := c.byCode[code]
	return coord, ok
}

// Len returns the number of cached coordinates.
func (c *Coordinates) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byCode)
}
