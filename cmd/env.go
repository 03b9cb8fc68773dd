package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/dev-urban/mailchimp-automation/internal/campaign"
	"github.com/dev-urban/mailchimp-automation/internal/catalog"
	"github.com/dev-urban/mailchimp-automation/internal/similar"
	"github.com/dev-urban/mailchimp-automation/internal/store"
	"github.com/dev-urban/mailchimp-automation/pkg/mailchimp"
)

// appEnv holds the stores, caches, and clients shared by the run, similar,
// and serve commands.
type appEnv struct {
	Catalog     *catalog.Catalog
	Coordinates *catalog.Coordinates
	Resolver    *similar.Resolver
	Leads       campaign.LeadSource
	Mailchimp   mailchimp.Client

	closers []func() error
}

// Close releases resources in reverse acquisition order.
func (e *appEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		_ = e.closers[i]()
	}
}

// initEnv validates the configuration for the given mode and wires the
// stores, caches, and resolver. The Mailchimp client is only built in
// campaign mode. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	env := &appEnv{}

	switch cfg.Store.Driver {
	case "postgres":
		catalogStore, err := store.NewPostgres(ctx, cfg.Store.CatalogDatabaseURL, &cfg.Store.Pool)
		if err != nil {
			return nil, eris.Wrap(err, "init catalog store")
		}
		env.closers = append(env.closers, catalogStore.Close)

		// Leads (and their listing coordinates) may live in a separate
		// database from the catalog.
		leadsStore := catalogStore
		if cfg.Store.LeadsDatabaseURL != "" && cfg.Store.LeadsDatabaseURL != cfg.Store.CatalogDatabaseURL {
			leadsStore, err = store.NewPostgres(ctx, cfg.Store.LeadsDatabaseURL, &cfg.Store.Pool)
			if err != nil {
				env.Close()
				return nil, eris.Wrap(err, "init leads store")
			}
			env.closers = append(env.closers, leadsStore.Close)
		}

		env.Catalog = catalog.NewCatalog(catalogStore)
		env.Coordinates = catalog.NewCoordinates(leadsStore)
		env.Leads = leadsStore
	case "sqlite":
		s, err := store.NewSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return nil, eris.Wrap(err, "init sqlite store")
		}
		env.closers = append(env.closers, s.Close)
		if err := s.Migrate(ctx); err != nil {
			env.Close()
			return nil, err
		}

		env.Catalog = catalog.NewCatalog(s)
		env.Coordinates = catalog.NewCoordinates(s)
		env.Leads = s
	default:
		return nil, eris.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}

	env.Resolver = similar.New(env.Catalog, env.Coordinates, similar.Config{
		RadiusKm:      cfg.Similar.RadiusKm,
		PriceBandLow:  cfg.Similar.PriceBandLow,
		PriceBandHigh: cfg.Similar.PriceBandHigh,
		AreaBandLow:   cfg.Similar.AreaBandLow,
		AreaBandHigh:  cfg.Similar.AreaBandHigh,
		MaxResults:    cfg.Similar.MaxResults,
	})

	if mode == "campaign" {
		env.Mailchimp = mailchimp.NewClient(
			cfg.Mailchimp.APIKey,
			cfg.Mailchimp.ServerPrefix,
			cfg.Mailchimp.ListID,
			mailchimp.Settings{
				FromName:    cfg.Mailchimp.FromName,
				ReplyTo:     cfg.Mailchimp.ReplyTo,
				SubjectLine: cfg.Mailchimp.SubjectLine,
			},
		)
	}

	return env, nil
}
