package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLiteListingsRoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tb_imoveis (codigo, dormitorios, area_privativa, valor_venda, foto, titulo_site, endereco, bairro_comercial)
		VALUES ('100', 3, 98.5, 470000, 'https://cdn/100.jpg', 'Apto 100', 'Rua A, 100', 'Moinhos de Vento'),
		       ('200', NULL, NULL, NULL, NULL, NULL, NULL, NULL)`)
	require.NoError(t, err)

	listings, err := s.FetchAllListings(ctx)
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, "100", listings[0].Code)
	assert.True(t, listings[0].Displayable())
	assert.False(t, listings[1].Displayable())
	assert.Nil(t, listings[1].SalePrice)
}

func TestSQLiteCoordinatesFilterNulls(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agenciamentos (codigo_imovel, latitude, longitude)
		VALUES ('100', -30.0277, -51.2287),
		       ('200', NULL, -51.2),
		       ('300', -30.1, NULL)`)
	require.NoError(t, err)

	coords, err := s.FetchAllCoordinates(ctx)
	require.NoError(t, err)
	require.Len(t, coords, 1)
	assert.Equal(t, "100", coords[0].Code)
}

func TestSQLiteFetchLeads(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leads (email, nome, telefone, tipo, fonte, mkt_produto)
		VALUES ('ana@example.com', 'Ana Souza', '51999990000', 'MOR', 'OUTRO', 'AP-12345'),
		       ('site@example.com', NULL, NULL, 'OUT', 'SITE', 'casa 678'),
		       ('nocode@example.com', 'Sem Código', NULL, 'MOR', 'SITE', 'sem numero'),
		       ('wrongsource@example.com', 'Fora', NULL, 'OUT', 'PORTAL', '999')`)
	require.NoError(t, err)

	leads, err := s.FetchLeads(ctx)
	require.NoError(t, err)
	require.Len(t, leads, 2)

	assert.Equal(t, "ana@example.com", leads[0].Email)
	assert.Equal(t, "12345", leads[0].ListingCode)
	assert.Equal(t, "site@example.com", leads[1].Email)
	assert.Equal(t, "678", leads[1].ListingCode)
}

func TestDigitsOnly(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "12345", digitsOnly("AP-12345"))
	assert.Equal(t, "678", digitsOnly("casa 678"))
	assert.Equal(t, "", digitsOnly("sem numero"))
	assert.Equal(t, "", digitsOnly(""))
}
