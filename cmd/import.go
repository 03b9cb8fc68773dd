package main

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dev-urban/mailchimp-automation/internal/db"
	"github.com/dev-urban/mailchimp-automation/internal/store"
)

var importCSVPath string

// importColumns is the expected CSV header, matching the tb_imoveis schema.
var importColumns = []string{
	"codigo", "dormitorios", "area_privativa", "valor_venda",
	"foto", "titulo_site", "endereco", "bairro_comercial",
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk-load listings from CSV into the catalog database",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if cfg.Store.Driver != "postgres" {
			return eris.New("import requires the postgres driver")
		}
		if err := cfg.Validate("similar"); err != nil {
			return err
		}

		st, err := store.NewPostgres(ctx, cfg.Store.CatalogDatabaseURL, &cfg.Store.Pool)
		if err != nil {
			return eris.Wrap(err, "init catalog store")
		}
		defer st.Close()

		rows, err := readListingCSV(importCSVPath)
		if err != nil {
			return err
		}

		n, err := db.CopyFrom(ctx, st.Pool(), "tb_imoveis", importColumns, rows)
		if err != nil {
			return eris.Wrap(err, "copy listings")
		}

		zap.L().Info("import complete",
			zap.Int64("rows", n),
			zap.String("csv", importCSVPath),
		)
		return nil
	},
}

// readListingCSV parses the CSV into CopyFrom rows. Empty cells become NULLs.
func readListingCSV(path string) ([][]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "open csv")
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, eris.Wrap(err, "read csv header")
	}
	if len(header) != len(importColumns) {
		return nil, eris.Errorf("csv header has %d columns, want %d", len(header), len(importColumns))
	}

	var rows [][]any
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "read csv line %d", line)
		}

		bedrooms, err := csvInt(rec[1])
		if err != nil {
			return nil, eris.Wrapf(err, "csv line %d: dormitorios", line)
		}
		area, err := csvFloat(rec[2])
		if err != nil {
			return nil, eris.Wrapf(err, "csv line %d: area_privativa", line)
		}
		price, err := csvFloat(rec[3])
		if err != nil {
			return nil, eris.Wrapf(err, "csv line %d: valor_venda", line)
		}

		rows = append(rows, []any{
			rec[0], bedrooms, area, price,
			csvString(rec[4]), csvString(rec[5]), csvString(rec[6]), csvString(rec[7]),
		})
	}
	return rows, nil
}

func csvString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func csvInt(s string) (any, error) {
	if s == "" {
		return nil, nil
	}
	return strconv.Atoi(s)
}

func csvFloat(s string) (any, error) {
	if s == "" {
		return nil, nil
	}
	return strconv.ParseFloat(s, 64)
}

func init() {
	importCmd.Flags().StringVar(&importCSVPath, "csv", "", "path to CSV file (required)")
	_ = importCmd.MarkFlagRequired("csv")
	rootCmd.AddCommand(importCmd)
}
