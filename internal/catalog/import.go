package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/odyssey-erp/orderflow/internal/shared"
)

// importColumns lists the header names a bulk source must provide.
var importColumns = []string{"name", "hsn_code", "purchase_rate", "selling_price", "stock", "tax", "family", "unit", "group_id", "type"}

// ImportRow is one raw record keyed by column name.
type ImportRow struct {
	Line   int
	Values map[string]string
}

// BulkImportSource yields raw catalog rows from an external export.
type BulkImportSource interface {
	Rows(ctx context.Context) ([]ImportRow, error)
}

// RowError reports why a single row was skipped.
type RowError struct {
	Line   int               `json:"line"`
	Errors map[string]string `json:"errors"`
}

// ImportResult summarises a bulk load.
type ImportResult struct {
	Total    int        `json:"total"`
	Inserted int        `json:"inserted"`
	Failed   int        `json:"failed"`
	Errors   []RowError `json:"errors,omitempty"`
}

// ExcelSource reads the first sheet of an xlsx workbook.
type ExcelSource struct {
	Reader io.Reader
}

// Rows implements BulkImportSource.
func (s ExcelSource) Rows(ctx context.Context) ([]ImportRow, error) {
	f, err := excelize.OpenReader(s.Reader)
	if err != nil {
		return nil, shared.NewValidationError("file", "not a readable xlsx workbook")
	}
	defer func() { _ = f.Close() }()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, shared.NewValidationError("file", "workbook has no sheets")
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("catalog: read sheet %s: %w", sheets[0], err)
	}
	return mapRecords(records)
}

// CSVSource reads comma separated rows with a header line.
type CSVSource struct {
	Reader io.Reader
}

// Rows implements BulkImportSource.
func (s CSVSource) Rows(ctx context.Context) ([]ImportRow, error) {
	r := csv.NewReader(s.Reader)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, shared.NewValidationError("file", "not a readable csv file")
	}
	return mapRecords(records)
}

func mapRecords(records [][]string) ([]ImportRow, error) {
	if len(records) == 0 {
		return nil, shared.NewValidationError("file", "file is empty")
	}
	header := make(map[int]string, len(records[0]))
	seen := make(map[string]bool)
	for i, h := range records[0] {
		name := strings.ToLower(strings.TrimSpace(h))
		header[i] = name
		seen[name] = true
	}
	verr := &shared.ValidationError{}
	for _, col := range []string{"name", "selling_price", "stock", "tax", "type"} {
		if !seen[col] {
			verr.Add(col, "column missing from header")
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	rows := make([]ImportRow, 0, len(records)-1)
	for i, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		values := make(map[string]string, len(importColumns))
		for idx, cell := range rec {
			if name, ok := header[idx]; ok {
				values[name] = strings.TrimSpace(cell)
			}
		}
		rows = append(rows, ImportRow{Line: i + 2, Values: values})
	}
	return rows, nil
}

func isBlank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ParseImportRow converts a raw row into a product or reports field errors.
func ParseImportRow(row ImportRow) (Product, error) {
	v := row.Values
	verr := &shared.ValidationError{}
	p := Product{
		Name:           v["name"],
		HSNCode:        v["hsn_code"],
		Family:         v["family"],
		Unit:           v["unit"],
		GroupID:        v["group_id"],
		Type:           ProductType(strings.ToLower(v["type"])),
		ApprovalStatus: ApprovalPending,
	}
	if p.Type == "" {
		p.Type = ProductTypeSingle
	}
	if raw := v["selling_price"]; raw != "" {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			verr.Add("selling_price", "must be a number")
		} else {
			p.SellingPrice = &price
		}
	}
	if raw := v["purchase_rate"]; raw != "" {
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			verr.Add("purchase_rate", "must be a number")
		}
		p.PurchaseRate = rate
	}
	if raw := v["tax"]; raw != "" {
		tax, err := decimal.NewFromString(raw)
		if err != nil {
			verr.Add("tax", "must be a number")
		}
		p.Tax = tax
	}
	if raw := v["stock"]; raw != "" {
		stock, err := strconv.Atoi(raw)
		if err != nil {
			verr.Add("stock", "must be an integer")
		}
		p.Stock = stock
	}
	if err := verr.OrNil(); err != nil {
		return Product{}, err
	}
	if err := p.Validate(); err != nil {
		return Product{}, err
	}
	RecomputeExcludePrice(&p)
	return p, nil
}

// Import validates each row and inserts the valid ones; invalid rows are reported, not fatal.
func (s *Service) Import(ctx context.Context, actorID int64, src BulkImportSource) (ImportResult, error) {
	rows, err := src.Rows(ctx)
	if err != nil {
		return ImportResult{}, err
	}
	result := ImportResult{Total: len(rows)}
	now := s.now()
	for _, row := range rows {
		p, err := ParseImportRow(row)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, rowError(row.Line, err))
			continue
		}
		p.CreatedAt, p.UpdatedAt = now, now
		err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			_, err := tx.Insert(ctx, p)
			return err
		})
		if err != nil {
			if errors.Is(err, shared.ErrDuplicate) {
				result.Failed++
				result.Errors = append(result.Errors, RowError{Line: row.Line, Errors: map[string]string{"name": "duplicate product"}})
				continue
			}
			return result, fmt.Errorf("catalog: import line %d: %w", row.Line, err)
		}
		result.Inserted++
	}
	s.record(ctx, shared.AuditLog{ActorID: actorID, Action: "product.import", Entity: "product", EntityID: "bulk",
		Meta: map[string]any{"total": result.Total, "inserted": result.Inserted, "failed": result.Failed}, At: now})
	return result, nil
}

func rowError(line int, err error) RowError {
	var verr *shared.ValidationError
	if errors.As(err, &verr) {
		return RowError{Line: line, Errors: verr.Fields}
	}
	return RowError{Line: line, Errors: map[string]string{"row": err.Error()}}
}
