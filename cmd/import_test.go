package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "listings.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadListingCSV(t *testing.T) {
	path := writeCSV(t, `codigo,dormitorios,area_privativa,valor_venda,foto,titulo_site,endereco,bairro_comercial
100,3,98.5,470000,https://cdn/100.jpg,Apto 100,"Rua A, 100",Moinhos de Vento
200,,,,,,,
`)

	rows, err := readListingCSV(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "100", rows[0][0])
	assert.Equal(t, 3, rows[0][1])
	assert.InDelta(t, 98.5, rows[0][2], 0.001)
	assert.InDelta(t, 470000.0, rows[0][3], 0.001)
	assert.Equal(t, "Rua A, 100", rows[0][6])

	// Empty cells become NULLs.
	assert.Equal(t, "200", rows[1][0])
	for _, v := range rows[1][1:] {
		assert.Nil(t, v)
	}
}

func TestReadListingCSVBadHeader(t *testing.T) {
	path := writeCSV(t, "codigo,valor_venda\n100,470000\n")

	_, err := readListingCSV(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "columns")
}

func TestReadListingCSVBadNumber(t *testing.T) {
	path := writeCSV(t, `codigo,dormitorios,area_privativa,valor_venda,foto,titulo_site,endereco,bairro_comercial
100,three,,,,,,
`)

	_, err := readListingCSV(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dormitorios")
}

func TestReadListingCSVMissingFile(t *testing.T) {
	_, err := readListingCSV(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}
