// Package campaign drives a full similar-listings campaign: concurrent
// matching and contact updates over a batch of leads, then campaign creation
// for the tagged segment.
package campaign

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dev-urban/mailchimp-automation/internal/catalog"
	"github.com/dev-urban/mailchimp-automation/internal/model"
	"github.com/dev-urban/mailchimp-automation/internal/similar"
)

// Applier performs the per-lead downstream side effect: writing the matched
// listings to the lead's contact and tagging it for the campaign segment.
// Apply-twice must be safe (upsert semantics).
type Applier interface {
	Apply(ctx context.Context, lead model.Lead, matches []model.SimilarListing, tag string) error
}

// Report aggregates the per-lead outcomes of one dispatch. Every lead lands
// in exactly one bucket: Matched + Skipped + Failed == Total. MatchedEmails
// is in completion order, which is arbitrary.
type Report struct {
	Total         int
	Matched       int
	Skipped       int
	Failed        int
	MatchedEmails []string
	CampaignID    string
}

// Dispatcher fans the resolver and applier out over a batch of leads with a
// bounded worker pool.
type Dispatcher struct {
	catalog  *catalog.Catalog
	coords   *catalog.Coordinates
	resolver *similar.Resolver
	applier  Applier
	workers  int
}

// NewDispatcher creates a dispatcher. workers bounds the pool; it should be
// large enough to overlap the applier's network calls but small enough not
// to overwhelm the downstream API.
func NewDispatcher(cat *catalog.Catalog, coords *catalog.Coordinates, resolver *similar.Resolver, applier Applier, workers int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{
		catalog:  cat,
		coords:   coords,
		resolver: resolver,
		applier:  applier,
		workers:  workers,
	}
}

// Run processes every lead exactly once and aggregates outcomes. Individual
// failures are counted, never propagated — a worker returning an error would
// abort the group, so workers classify everything and return nil.
func (d *Dispatcher) Run(ctx context.Context, leads []model.Lead, tag string) *Report {
	// Preload the shared caches before fan-out so the workers never race a
	// cold first load against each other.
	d.catalog.EnsureLoaded(ctx)
	d.coords.EnsureLoaded(ctx)

	var matched, skipped, failed atomic.Int64
	var mu sync.Mutex
	var emails []string

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)

	for _, lead := range leads {
		g.Go(func() error {
			log := zap.L().With(zap.String("email", lead.Email))

			if lead.ListingCode == "" {
				skipped.Add(1)
				log.Warn("lead has no listing code")
				return nil
			}

			target, ok := d.catalog.Get(lead.ListingCode)
			if !ok {
				skipped.Add(1)
				log.Warn("listing not in catalog", zap.String("code", lead.ListingCode))
				return nil
			}

			matches := d.resolver.Resolve(gctx, target)
			if len(matches) == 0 {
				skipped.Add(1)
				log.Info("no similar listings", zap.String("code", lead.ListingCode))
				return nil
			}

			if err := d.applier.Apply(gctx, lead, matches, tag); err != nil {
				failed.Add(1)
				log.Error("contact update failed", zap.Error(err))
				return nil
			}

			matched.Add(1)
			mu.Lock()
			emails = append(emails, lead.Email)
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait() // workers never return errors

	report := &Report{
		Total:         len(leads),
		Matched:       int(matched.Load()),
		Skipped:       int(skipped.Load()),
		Failed:        int(failed.Load()),
		MatchedEmails: emails,
	}
	zap.L().Info("dispatch complete",
		zap.Int("total", report.Total),
		zap.Int("matched", report.Matched),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
	)
	return report
}
