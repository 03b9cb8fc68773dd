// Package store implements the listing, coordinate, and lead sources on
// Postgres and SQLite. The catalog lives in one database and the leads (with
// their listing coordinates) in another, so a deployment typically holds two
// store instances.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/dev-urban/mailchimp-automation/internal/db"
	"github.com/dev-urban/mailchimp-automation/internal/model"
)

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists the bulk reads to prepare on each new connection.
var preparedStatements = map[string]string{
	"fetch_listings": `
		SELECT codigo::text, dormitorios, area_privativa, valor_venda,
		       foto, titulo_site, endereco, bairro_comercial
		FROM tb_imoveis
		ORDER BY codigo`,
	"fetch_coordinates": `
		SELECT codigo_imovel::text, latitude, longitude
		FROM agenciamentos
		WHERE latitude IS NOT NULL AND longitude IS NOT NULL`,
	"fetch_leads": `
		SELECT email, nome, telefone,
		       regexp_replace(mkt_produto, '[^0-9]', '', 'g') AS codigo
		FROM leads
		WHERE email ~* '^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$'
		  AND (tipo = 'MOR' OR fonte IN ('SITE', 'ZAP_IMOVEIS'))
		  AND mkt_produto ~ '[0-9]'`,
}

// PostgresStore implements the source interfaces using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres creates a PostgresStore with a tuned connection pool and
// verifies connectivity.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool (used by tests).
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool exposes the underlying pool for bulk operations like the CSV import.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

// FetchAllListings reads the full catalog in one pass.
func (s *PostgresStore) FetchAllListings(ctx context.Context) ([]model.Listing, error) {
	rows, err := s.pool.Query(ctx, "fetch_listings")
	if err != nil {
		return nil, eris.Wrap(err, "postgres: fetch listings")
	}
	defer rows.Close()

	var listings []model.Listing
	for rows.Next() {
		var l model.Listing
		if err := rows.Scan(&l.Code, &l.Bedrooms, &l.PrivateArea, &l.SalePrice,
			&l.Photo, &l.Title, &l.Address, &l.Neighborhood); err != nil {
			return nil, eris.Wrap(err, "postgres: scan listing")
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate listings")
	}
	return listings, nil
}

// FetchAllCoordinates reads every known geolocation. The query already
// excludes NULL pairs; the cache re-checks on load anyway.
func (s *PostgresStore) FetchAllCoordinates(ctx context.Context) ([]model.CoordinateRow, error) {
	rows, err := s.pool.Query(ctx, "fetch_coordinates")
	if err != nil {
		return nil, eris.Wrap(err, "postgres: fetch coordinates")
	}
	defer rows.Close()

	var coords []model.CoordinateRow
	for rows.Next() {
		var c model.CoordinateRow
		if err := rows.Scan(&c.Code, &c.Lat, &c.Lon); err != nil {
			return nil, eris.Wrap(err, "postgres: scan coordinate")
		}
		coords = append(coords, c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate coordinates")
	}
	return coords, nil
}

// FetchLeads reads the leads eligible for a campaign: valid email, relevant
// origin, and a product code containing digits. The digits-only code is
// extracted in SQL.
func (s *PostgresStore) FetchLeads(ctx context.Context) ([]model.Lead, error) {
	rows, err := s.pool.Query(ctx, "fetch_leads")
	if err != nil {
		return nil, eris.Wrap(err, "postgres: fetch leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		var email, code string
		var name, phone *string
		if err := rows.Scan(&email, &name, &phone, &code); err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		leads = append(leads, model.Lead{
			Email:       email,
			Name:        deref(name),
			Phone:       deref(phone),
			ListingCode: code,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate leads")
	}
	return leads, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
