package report

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/yairfalse/mittari/pkg/inventory"
	"github.com/yairfalse/mittari/pkg/units"
)

// writeWorkbook renders the full inventory as one Excel workbook: an
// Info sheet, a Summary sheet with a bold grand total, and a detail
// sheet per kind.
func writeWorkbook(path string, inv *inventory.Inventory) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	if err := writeInfoSheet(f, inv, bold); err != nil {
		return err
	}
	if err := writeSummarySheet(f, inv, bold); err != nil {
		return err
	}
	for _, kind := range inventory.AllKinds() {
		results := inv.Results[kind]
		if len(results) == 0 {
			continue
		}
		if err := writeDetailSheet(f, kind, results, bold); err != nil {
			return err
		}
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	return f.SaveAs(path)
}

// setRow writes one row of values starting at column A.
func setRow(f *excelize.File, sheet string, row int, values []any) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}

// styleRow applies a style across the first n columns of a row.
func styleRow(f *excelize.File, sheet string, row, cols, style int) error {
	first, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(cols, row)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, first, last, style)
}

func writeInfoSheet(f *excelize.File, inv *inventory.Inventory, bold int) error {
	const sheet = "Info"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	failed := len(inv.FailedOutcomes())
	rows := [][]any{
		{"Generated", time.Now().Format(time.RFC3339)},
		{"Scopes inventoried", len(inv.Outcomes)},
		{"Scopes failed", failed},
	}
	for _, kind := range inventory.AllKinds() {
		if n := inv.Count(kind); n > 0 {
			rows = append(rows, []any{fmt.Sprintf("%s resources", kind), n})
		}
	}

	for i, row := range rows {
		if err := setRow(f, sheet, i+1, row); err != nil {
			return err
		}
	}
	if err := styleRow(f, sheet, 1, 2, bold); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", "B", 28)
}

func writeSummarySheet(f *excelize.File, inv *inventory.Inventory, bold int) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	header := []any{"Kind", "Count", "Failed", "Size (GB)", "Size (TB)", "Size (GiB)", "Size (TiB)"}
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}
	if err := styleRow(f, sheet, 1, len(header), bold); err != nil {
		return err
	}

	row := 2
	var grandCount, grandFailed int
	for _, kind := range inv.ReportKinds() {
		results := inv.Results[kind]
		failed := 0
		for _, r := range results {
			if r.Failed() {
				failed++
			}
		}
		if err := setRow(f, sheet, row, append([]any{string(kind), len(results), failed}, sizeCells(inv.TotalBytes(kind))...)); err != nil {
			return err
		}
		row++
		grandCount += len(results)
		grandFailed += failed
	}

	total := append([]any{"TOTAL", grandCount, grandFailed}, sizeCells(inv.GrandTotalBytes())...)
	if err := setRow(f, sheet, row, total); err != nil {
		return err
	}
	if err := styleRow(f, sheet, row, len(header), bold); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", "G", 16)
}

func writeDetailSheet(f *excelize.File, kind inventory.Kind, results []inventory.SizingResult, bold int) error {
	sheet := string(kind)
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	header := []any{
		"Scope", "Region", "Zone", "Name", "ID", "Method", "Source",
		"Size (GB)", "Size (TB)", "Size (GiB)", "Size (TiB)",
		"Failure", "Error",
	}
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}
	if err := styleRow(f, sheet, 1, len(header), bold); err != nil {
		return err
	}

	var total int64
	for i, r := range results {
		d := r.Descriptor
		row := append([]any{d.Scope, d.Region, d.Zone, d.Name, d.ID, r.Method, r.Source}, sizeCells(r.Bytes)...)
		row = append(row, string(r.Failure), r.Err)
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
		total += r.Bytes
	}

	totalRow := append([]any{"TOTAL", "", "", "", "", "", ""}, sizeCells(total)...)
	totalRow = append(totalRow, "", "")
	last := len(results) + 2
	if err := setRow(f, sheet, last, totalRow); err != nil {
		return err
	}
	if err := styleRow(f, sheet, last, len(header), bold); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", "M", 18)
}

// sizeCells renders one byte count as numeric cells in all four
// display units.
func sizeCells(bytes int64) []any {
	return []any{
		units.ToGB(bytes).InexactFloat64(),
		units.ToTB(bytes).InexactFloat64(),
		units.ToGiB(bytes).InexactFloat64(),
		units.ToTiB(bytes).InexactFloat64(),
	}
}
