package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront-api/internal/domain"
	"storefront-api/internal/logger"
)

// Catalog is satisfied by the product service.
type Catalog interface {
	ImportRow(ctx context.Context, productName, description, currency, variantName string, price int64, stock int) (*domain.Product, error)
}

var requiredColumns = []string{"product", "price", "stock"}

// CSVImporter loads catalog rows of the form
// product,description,currency,variant,price,stock.
// Prices are decimal amounts in major units ("12.50").
type CSVImporter struct {
	reader  *csv.Reader
	catalog Catalog
}

func NewCSVImporter(r io.Reader, catalog Catalog) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	return &CSVImporter{reader: csvr, catalog: catalog}
}

type csvRow struct {
	line        int
	Product     string
	Description string
	Currency    string
	Variant     string
	PriceCents  int64
	Stock       int
}

// Run imports every row and returns how many were applied. The first bad row
// stops the import; rows before it stay applied.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return 0, fmt.Errorf("missing column %q", col)
		}
	}

	log := logger.FromContext(ctx)
	imported := 0
	for {
		if err := ctx.Err(); err != nil {
			return imported, err
		}
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}
		line, _ := i.reader.FieldPos(0)

		row, err := parseRow(record, index)
		if err != nil {
			return imported, fmt.Errorf("line %d: %w", line, err)
		}
		if row == nil {
			continue
		}
		row.line = line

		if _, err := i.catalog.ImportRow(ctx, row.Product, row.Description, row.Currency, row.Variant, row.PriceCents, row.Stock); err != nil {
			return imported, fmt.Errorf("line %d: import %q: %w", line, row.Product, err)
		}
		log.Debug("catalog row imported",
			zap.Int("line", row.line),
			zap.String("product", row.Product),
			zap.String("variant", row.Variant),
		)
		imported++
	}
	return imported, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

// parseRow returns nil for blank lines.
func parseRow(record []string, index map[string]int) (*csvRow, error) {
	row := &csvRow{
		Product:     pick(record, index, "product"),
		Description: pick(record, index, "description"),
		Currency:    pick(record, index, "currency"),
		Variant:     pick(record, index, "variant"),
	}
	priceStr := pick(record, index, "price")
	stockStr := pick(record, index, "stock")
	if row.Product == "" && row.Variant == "" && priceStr == "" && stockStr == "" {
		return nil, nil
	}
	if row.Product == "" {
		return nil, domain.InvalidRequest("product name required")
	}

	cents, err := parseCents(priceStr)
	if err != nil {
		return nil, err
	}
	stock, err := strconv.Atoi(stockStr)
	if err != nil {
		return nil, domain.InvalidRequest("invalid stock %q", stockStr)
	}
	row.PriceCents, row.Stock = cents, stock
	return row, nil
}

func parseCents(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, domain.InvalidRequest("invalid price %q", s)
	}
	cents := d.Shift(2)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, domain.InvalidRequest("price %q has more than two decimals", s)
	}
	return cents.IntPart(), nil
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
