package reports

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// WriteSalesWorkbook renders the sales summary as an xlsx sheet.
func WriteSalesWorkbook(w io.Writer, summary SalesSummary) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const sheet = "Sales"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	rows := [][]any{
		{"From", summary.From},
		{"To", summary.To},
		{},
		{"Status", "Orders", "Amount"},
	}
	for _, st := range summary.ByStatus {
		rows = append(rows, []any{st.Status, st.Count, st.Amount.InexactFloat64()})
	}
	rows = append(rows, []any{"Total", summary.Orders, summary.Amount.InexactFloat64()})
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	_, err := f.WriteTo(w)
	return err
}
