// Package similar implements the similar-listings engine: a radius-bounded
// geo ranking when the target has coordinates, and a curated
// neighborhood-adjacency fallback otherwise. Results are memoized per target
// code for the life of the process.
package similar

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/dev-urban/mailchimp-automation/internal/catalog"
	"github.com/dev-urban/mailchimp-automation/internal/model"
	"github.com/dev-urban/mailchimp-automation/internal/neighborhood"
	"github.com/dev-urban/mailchimp-automation/internal/normalize"
)

// Config holds the matching constants. The two reference deployments
// disagree on the band and radius (0.65–1.35 / 3 km vs 0.8–1.2 / 5 km), so
// all of them are configuration, not code.
type Config struct {
	RadiusKm      float64
	PriceBandLow  float64
	PriceBandHigh float64
	AreaBandLow   float64
	AreaBandHigh  float64
	MaxResults    int
}

// Resolver finds up to MaxResults listings similar to a target. It reads the
// two shared caches and owns the only frequently-written shared structure,
// the per-code memo.
type Resolver struct {
	catalog *catalog.Catalog
	coords  *catalog.Coordinates
	cfg     Config

	mu   sync.RWMutex
	memo map[string][]model.SimilarListing
}

// New creates a resolver over the given caches.
func New(cat *catalog.Catalog, coords *catalog.Coordinates, cfg Config) *Resolver {
	return &Resolver{
		catalog: cat,
		coords:  coords,
		cfg:     cfg,
		memo:    make(map[string][]model.SimilarListing),
	}
}

// Resolve returns up to MaxResults listings similar to the target. An empty
// result is a valid outcome ("no match found") and is memoized like any
// other; it is distinct from an unavailable catalog, which the caches log on
// load. The geo and neighborhood strategies are never combined for one
// target: a located listing with no nearby matches resolves empty.
func (r *Resolver) Resolve(ctx context.Context, target model.Listing) []model.SimilarListing {
	r.mu.RLock()
	memoized, ok := r.memo[target.Code]
	r.mu.RUnlock()
	if ok {
		return memoized
	}

	// The dispatcher preloads both caches; this is the defensive re-check
	// for direct callers.
	r.catalog.EnsureLoaded(ctx)
	r.coords.EnsureLoaded(ctx)

	var results []model.SimilarListing
	if origin, ok := r.coords.Get(target.Code); ok {
		results = r.resolveByDistance(origin, target)
	} else {
		zap.L().Debug("listing has no coordinates, matching by neighborhood",
			zap.String("code", target.Code))
		results = r.resolveByNeighborhood(target)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if prior, ok := r.memo[target.Code]; ok {
		// Another worker computed the same code concurrently. Both results
		// are pure functions of the frozen caches, so keep the first.
		return prior
	}
	r.memo[target.Code] = results
	return results
}

// qualifies applies the gates shared by both strategies: self-exclusion, the
// display-completeness gate, bedroom equality, and the area and price bands.
// A target missing price or area never matches anything — price and area are
// required filters, not optional ones.
func (r *Resolver) qualifies(target, cand model.Listing) bool {
	if cand.Code == target.Code {
		return false
	}
	if !cand.Displayable() {
		return false
	}
	if !equalBedrooms(target.Bedrooms, cand.Bedrooms) {
		return false
	}
	if !withinBand(target.PrivateArea, cand.PrivateArea, r.cfg.AreaBandLow, r.cfg.AreaBandHigh) {
		return false
	}
	return withinBand(target.SalePrice, cand.SalePrice, r.cfg.PriceBandLow, r.cfg.PriceBandHigh)
}

// resolveByDistance scans the whole catalog, keeps qualifying candidates with
// a known coordinate inside the radius, and returns the closest MaxResults
// sorted ascending by distance. Ties keep catalog order.
func (r *Resolver) resolveByDistance(origin model.Coordinate, target model.Listing) []model.SimilarListing {
	var matches []model.SimilarListing
	for _, cand := range r.catalog.All() {
		if !r.qualifies(target, cand) {
			continue
		}
		coord, ok := r.coords.Get(cand.Code)
		if !ok {
			continue
		}
		d := distanceKm(origin, coord)
		if d > r.cfg.RadiusKm {
			continue
		}
		matches = append(matches, model.SimilarListing{Listing: cand, DistanceKm: d})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].DistanceKm < matches[j].DistanceKm
	})
	if len(matches) > r.cfg.MaxResults {
		matches = matches[:r.cfg.MaxResults]
	}
	return matches
}

// resolveByNeighborhood takes the first MaxResults qualifying candidates in
// catalog scan order whose normalized neighborhood is in the target's
// allowed set. There is deliberately no secondary ranking: without
// coordinates there is no distance to rank by, and the curated adjacency
// already bounds relevance.
func (r *Resolver) resolveByNeighborhood(target model.Listing) []model.SimilarListing {
	var area string
	if target.Neighborhood != nil {
		area = *target.Neighborhood
	}
	allowed := neighborhood.AllowedKeys(area)
	if allowed == nil {
		return nil
	}

	var matches []model.SimilarListing
	for _, cand := range r.catalog.All() {
		if !r.qualifies(target, cand) {
			continue
		}
		if cand.Neighborhood == nil {
			continue
		}
		if _, ok := allowed[normalize.Key(*cand.Neighborhood)]; !ok {
			continue
		}
		matches = append(matches, model.SimilarListing{Listing: cand})
		if len(matches) == r.cfg.MaxResults {
			break
		}
	}
	return matches
}

// equalBedrooms treats two missing counts as equal, matching the upstream
// behavior where unset bedroom counts group together.
func equalBedrooms(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// withinBand reports whether cand lies in [target×low, target×high]. Either
// side missing excludes the candidate.
func withinBand(target, cand *float64, low, high float64) bool {
	if target == nil || cand == nil {
		return false
	}
	return *cand >= *target*low && *cand <= *target*high
}
