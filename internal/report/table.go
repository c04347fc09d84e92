package report

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/yairfalse/mittari/pkg/inventory"
	"github.com/yairfalse/mittari/pkg/units"
)

// RenderSummary prints the per-kind totals table to w, the operator's
// end-of-run view.
func RenderSummary(w io.Writer, inv *inventory.Inventory) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Kind", "Count", "Failed", "GB", "TB", "GiB", "TiB"})

	var grandCount, grandFailed int
	for _, kind := range inv.ReportKinds() {
		results := inv.Results[kind]
		failed := 0
		for _, r := range results {
			if r.Failed() {
				failed++
			}
		}
		bytes := inv.TotalBytes(kind)
		t.AppendRow(table.Row{
			string(kind), len(results), failed,
			units.ToGB(bytes).String(), units.ToTB(bytes).String(),
			units.ToGiB(bytes).String(), units.ToTiB(bytes).String(),
		})
		grandCount += len(results)
		grandFailed += failed
	}

	// Attached-disk capacity is already inside its VM's row; the
	// footer counts it once.
	grandBytes := inv.GrandTotalBytes()
	t.AppendFooter(table.Row{
		"TOTAL", grandCount, grandFailed,
		units.ToGB(grandBytes).String(), units.ToTB(grandBytes).String(),
		units.ToGiB(grandBytes).String(), units.ToTiB(grandBytes).String(),
	})
	t.Render()
}

// RenderFailures prints the failed scopes table, or nothing when
// every scope succeeded.
func RenderFailures(w io.Writer, inv *inventory.Inventory) {
	failed := inv.FailedOutcomes()
	if len(failed) == 0 {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Scope", "Provider", "Failure", "Error"})
	for _, o := range failed {
		t.AppendRow(table.Row{o.Scope, o.Provider, string(o.Failure), o.Err})
	}
	t.Render()
}
