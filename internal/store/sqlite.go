package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/dev-urban/mailchimp-automation/internal/model"
)

// SQLiteStore implements the source interfaces on a local snapshot database,
// for offline runs and development.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given DSN and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	sdb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := sdb.Exec(pragma); err != nil {
			sdb.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: sdb}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS tb_imoveis (
	codigo           TEXT PRIMARY KEY,
	dormitorios      INTEGER,
	area_privativa   REAL,
	valor_venda      REAL,
	foto             TEXT,
	titulo_site      TEXT,
	endereco         TEXT,
	bairro_comercial TEXT
);

CREATE TABLE IF NOT EXISTS agenciamentos (
	codigo_imovel TEXT PRIMARY KEY,
	latitude      REAL,
	longitude     REAL
);

CREATE TABLE IF NOT EXISTS leads (
	email       TEXT NOT NULL,
	nome        TEXT,
	telefone    TEXT,
	tipo        TEXT,
	fonte       TEXT,
	mkt_produto TEXT
);

CREATE INDEX IF NOT EXISTS idx_leads_email ON leads(email);
`

// Migrate creates the snapshot schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}
	return nil
}

// FetchAllListings reads the full catalog in one pass.
func (s *SQLiteStore) FetchAllListings(ctx context.Context) ([]model.Listing, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT codigo, dormitorios, area_privativa, valor_venda,
		       foto, titulo_site, endereco, bairro_comercial
		FROM tb_imoveis
		ORDER BY codigo`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: fetch listings")
	}
	defer rows.Close()

	var listings []model.Listing
	for rows.Next() {
		var l model.Listing
		if err := rows.Scan(&l.Code, &l.Bedrooms, &l.PrivateArea, &l.SalePrice,
			&l.Photo, &l.Title, &l.Address, &l.Neighborhood); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan listing")
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// FetchAllCoordinates reads every complete geolocation pair.
func (s *SQLiteStore) FetchAllCoordinates(ctx context.Context) ([]model.CoordinateRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT codigo_imovel, latitude, longitude
		FROM agenciamentos
		WHERE latitude IS NOT NULL AND longitude IS NOT NULL`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: fetch coordinates")
	}
	defer rows.Close()

	var coords []model.CoordinateRow
	for rows.Next() {
		var c model.CoordinateRow
		if err := rows.Scan(&c.Code, &c.Lat, &c.Lon); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan coordinate")
		}
		coords = append(coords, c)
	}
	return coords, rows.Err()
}

// FetchLeads reads campaign-eligible leads. SQLite has no regexp operator,
// so the digits-only code extraction and validation happen in Go.
func (s *SQLiteStore) FetchLeads(ctx context.Context) ([]model.Lead, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT email, nome, telefone, mkt_produto
		FROM leads
		WHERE email LIKE '%_@_%._%'
		  AND (tipo = 'MOR' OR fonte IN ('SITE', 'ZAP_IMOVEIS'))`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: fetch leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		var email string
		var name, phone, product *string
		if err := rows.Scan(&email, &name, &phone, &product); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		code := digitsOnly(deref(product))
		if code == "" {
			continue
		}
		leads = append(leads, model.Lead{
			Email:       email,
			Name:        deref(name),
			Phone:       deref(phone),
			ListingCode: code,
		})
	}
	return leads, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// digitsOnly strips everything but 0-9, mirroring the regexp_replace the
// Postgres lead query runs in SQL.
func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
