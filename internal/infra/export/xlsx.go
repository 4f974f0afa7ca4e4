// Package export renders SpendLog reports as spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/boddenberg/spendlog/internal/domain"

	"github.com/360EntSecGroup-Skylar/excelize/v2"
	"github.com/dustin/go-humanize"
)

// ContentType is the MIME type of the workbook written by WriteXLSX.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Sheet names.
const (
	SheetReceipts = "Receipts"
	SheetIncome   = "Income"
)

var (
	headerStyle = `{
		"border": [
			{"type": "left", "color": "#000000", "style": 1},
			{"type": "top", "color": "#000000", "style": 1},
			{"type": "right", "color": "#000000", "style": 1},
			{"type": "bottom", "color": "#000000", "style": 1}
		],
		"fill": {"type": "pattern", "pattern": 1, "color": ["#96b753"]},
		"font": {"bold": true},
		"alignment": {"shrink_to_fit": true, "horizontal": "center"}
	}`
	dataStyle = `{
		"border": [
			{"type": "left", "color": "#000000", "style": 1},
			{"type": "top", "color": "#000000", "style": 1},
			{"type": "right", "color": "#000000", "style": 1},
			{"type": "bottom", "color": "#000000", "style": 1}
		],
		"fill": {"type": "pattern", "pattern": 1},
		"alignment": {"shrink_to_fit": true}
	}`
)

// Report is the content of one export.
type Report struct {
	Receipts []domain.Receipt
	Income   []domain.Income
}

// FileName returns the attachment name for a report covering r.
func FileName(r domain.DateRange) string {
	start, end := r.Start.String(), r.End.String()
	switch {
	case start == "" && end == "":
		return "spendlog_report.xlsx"
	case start == "":
		start = "begin"
	case end == "":
		end = "today"
	}
	return fmt.Sprintf("spendlog_report_%s_%s.xlsx", start, end)
}

// FormatAmount renders v with thousands separators followed by the currency code.
func FormatAmount(v float64, code domain.CurrencyCode) string {
	return fmt.Sprintf("%s %s", humanize.Commaf(domain.RoundMoney(v)), code)
}

// WriteXLSX writes rep as a workbook with a Receipts and an Income sheet.
func WriteXLSX(w io.Writer, rep Report) error {
	f := excelize.NewFile()

	f.NewSheet(SheetReceipts)
	f.NewSheet(SheetIncome)
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(f.GetSheetIndex(SheetReceipts))

	header, err := f.NewStyle(headerStyle)
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	data, err := f.NewStyle(dataStyle)
	if err != nil {
		return fmt.Errorf("data style: %w", err)
	}

	receiptRows := make([][]any, 0, len(rep.Receipts))
	for _, r := range rep.Receipts {
		receiptRows = append(receiptRows, []any{
			r.Date.String(), r.MerchantName, string(r.Category), r.Location,
			len(r.Items), FormatAmount(r.TotalAmount, r.Currency),
		})
	}
	if err := writeSheet(f, SheetReceipts, header, data,
		[]string{"Date", "Merchant", "Category", "Location", "Items", "Total"}, receiptRows); err != nil {
		return err
	}

	incomeRows := make([][]any, 0, len(rep.Income))
	for _, in := range rep.Income {
		incomeRows = append(incomeRows, []any{
			in.Date.String(), in.Source, string(in.Category), in.Description,
			FormatAmount(in.Amount, in.Currency),
		})
	}
	if err := writeSheet(f, SheetIncome, header, data,
		[]string{"Date", "Source", "Category", "Description", "Amount"}, incomeRows); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header, data int, columns []string, rows [][]any) error {
	last, _ := excelize.ColumnNumberToName(len(columns))
	if err := f.SetColWidth(sheet, "A", last, 24); err != nil {
		return fmt.Errorf("%s column width: %w", sheet, err)
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("%s stream writer: %w", sheet, err)
	}

	head := make([]interface{}, len(columns))
	for i, c := range columns {
		head[i] = excelize.Cell{StyleID: header, Value: c}
	}
	if err := sw.SetRow("A1", head); err != nil {
		return fmt.Errorf("%s header: %w", sheet, err)
	}

	for n, values := range rows {
		row := make([]interface{}, len(values))
		for i, v := range values {
			row[i] = excelize.Cell{StyleID: data, Value: v}
		}
		cell, _ := excelize.CoordinatesToCellName(1, n+2)
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, n+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("%s flush: %w", sheet, err)
	}
	return nil
}
