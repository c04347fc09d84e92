package report

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/yairfalse/mittari/pkg/inventory"
	"github.com/yairfalse/mittari/pkg/units"
)

// sizeColumns renders one byte count in all four display units.
func sizeColumns(bytes int64) []string {
	return []string{
		units.ToGB(bytes).String(),
		units.ToTB(bytes).String(),
		units.ToGiB(bytes).String(),
		units.ToTiB(bytes).String(),
	}
}

var sizeHeader = []string{"Size (GB)", "Size (TB)", "Size (GiB)", "Size (TiB)"}

// writeDetailCSV renders one kind's deduplicated results, one row per
// resource plus a trailing total row.
func writeDetailCSV(path string, results []inventory.SizingResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append([]string{"Scope", "Region", "Zone", "Name", "ID", "Method", "Source"}, sizeHeader...)
	header = append(header, "Failure", "Error")
	if err := w.Write(header); err != nil {
		return err
	}

	var total int64
	for _, r := range results {
		d := r.Descriptor
		row := append([]string{d.Scope, d.Region, d.Zone, d.Name, d.ID, r.Method, r.Source}, sizeColumns(r.Bytes)...)
		row = append(row, string(r.Failure), r.Err)
		if err := w.Write(row); err != nil {
			return err
		}
		total += r.Bytes
	}

	totalRow := append([]string{"TOTAL", "", "", "", "", "", ""}, sizeColumns(total)...)
	totalRow = append(totalRow, "", "")
	if err := w.Write(totalRow); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}

// writeSummaryCSV renders per-kind totals and the grand total.
func writeSummaryCSV(path string, inv *inventory.Inventory) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append([]string{"Kind", "Count", "Failed"}, sizeHeader...)
	if err := w.Write(header); err != nil {
		return err
	}

	// Inventoried-but-empty kinds keep their zero row; a kind absent
	// from the file was never asked for.
	var grandCount, grandFailed int
	for _, kind := range inv.ReportKinds() {
		results := inv.Results[kind]
		failed := 0
		for _, r := range results {
			if r.Failed() {
				failed++
			}
		}
		row := append([]string{string(kind), strconv.Itoa(len(results)), strconv.Itoa(failed)}, sizeColumns(inv.TotalBytes(kind))...)
		if err := w.Write(row); err != nil {
			return err
		}
		grandCount += len(results)
		grandFailed += failed
	}

	// The grand total counts attached-disk capacity once: those bytes
	// are already inside their VM's row.
	totalRow := append([]string{"TOTAL", strconv.Itoa(grandCount), strconv.Itoa(grandFailed)}, sizeColumns(inv.GrandTotalBytes())...)
	if err := w.Write(totalRow); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}

// writeScopesCSV renders one row per scope outcome. Failed scopes and
// scopes that were genuinely empty both appear, with distinct status.
func writeScopesCSV(path string, inv *inventory.Inventory) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Scope", "Provider", "Status", "Failure", "Error", "Items", "Duration"}); err != nil {
		return err
	}

	for _, o := range inv.Outcomes {
		status := "ok"
		switch {
		case !o.Success:
			status = "failed"
		case o.Items == 0:
			status = "empty"
		}
		row := []string{
			o.Scope, o.Provider, status,
			string(o.Failure), o.Err,
			strconv.Itoa(o.Items), o.Duration.String(),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
