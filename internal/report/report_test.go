package report

import (
	"archive/zip"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/yairfalse/mittari/pkg/inventory"
	"github.com/yairfalse/mittari/pkg/units"
)

func testInventory() *inventory.Inventory {
	return &inventory.Inventory{
		Results: map[inventory.Kind][]inventory.SizingResult{
			inventory.KindDisk: {
				{
					Descriptor: inventory.Descriptor{
						Kind: inventory.KindDisk, Scope: "proj-a", ID: "disk-1", Name: "data",
						Region: "us-east1", Zone: "us-east1-b",
					},
					Bytes:  units.FromGiB(100),
					Method: "enumeration",
				},
				{
					Descriptor: inventory.Descriptor{
						Kind: inventory.KindDisk, Scope: "proj-a", ID: "disk-2", Name: "scratch",
						Region: "us-east1",
					},
					Failure: inventory.FailureTimeout,
					Err:     "sizing exceeded 2m0s deadline",
				},
			},
			inventory.KindBucket: {
				{
					Descriptor: inventory.Descriptor{
						Kind: inventory.KindBucket, Scope: "proj-a", ID: "gs://assets", Name: "assets",
						Region: "us-east1",
					},
					Bytes:  units.FromGB(10),
					Method: "gsutil-du",
				},
			},
		},
		Outcomes: []inventory.ScopeOutcome{
			{Scope: "proj-a", Provider: "gcp", Success: true, Items: 3, Duration: 2 * time.Second},
			{Scope: "proj-b", Provider: "gcp", Success: false, Failure: inventory.FailurePermissionDenied, Err: "denied"},
			{Scope: "proj-c", Provider: "gcp", Success: true, Items: 0},
		},
	}
}

func newTestReporter(t *testing.T) *Reporter {
	t.Helper()
	r, err := New(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	return r
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteProducesAllArtifacts(t *testing.T) {
	r := newTestReporter(t)
	written, err := r.Write(testInventory())
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, p := range written {
		names[filepath.Base(p)] = true
	}
	assert.True(t, names["disk.csv"])
	assert.True(t, names["bucket.csv"])
	assert.True(t, names["summary.csv"])
	assert.True(t, names["scopes.csv"])
	assert.True(t, names["inventory.xlsx"])
	// No VM results, no vm.csv.
	assert.False(t, names["vm.csv"])
}

func TestDetailCSVCarriesBothUnitFamiliesAndTotal(t *testing.T) {
	r := newTestReporter(t)
	_, err := r.Write(testInventory())
	require.NoError(t, err)

	rows := readCSV(t, filepath.Join(r.Dir(), "disk.csv"))
	require.Len(t, rows, 4) // header, two disks, total

	header := rows[0]
	assert.Contains(t, header, "Size (GB)")
	assert.Contains(t, header, "Size (GiB)")

	// 100 GiB disk: decimal and binary columns diverge.
	disk := rows[1]
	assert.Equal(t, "107.37", disk[7]) // GB
	assert.Equal(t, "100", disk[9])    // GiB

	// Failed disk keeps its row with the failure class.
	failed := rows[2]
	assert.Equal(t, "timeout", failed[11])

	total := rows[3]
	assert.Equal(t, "TOTAL", total[0])
	assert.Equal(t, "100", total[9])
}

func TestScopesCSVDistinguishesFailedFromEmpty(t *testing.T) {
	r := newTestReporter(t)
	_, err := r.Write(testInventory())
	require.NoError(t, err)

	rows := readCSV(t, filepath.Join(r.Dir(), "scopes.csv"))
	require.Len(t, rows, 4)

	status := map[string]string{}
	failure := map[string]string{}
	for _, row := range rows[1:] {
		status[row[0]] = row[2]
		failure[row[0]] = row[3]
	}
	assert.Equal(t, "ok", status["proj-a"])
	assert.Equal(t, "failed", status["proj-b"])
	assert.Equal(t, "permission_denied", failure["proj-b"])
	assert.Equal(t, "empty", status["proj-c"])
}

func TestSummaryCountsAttachedDiskOnce(t *testing.T) {
	inv := &inventory.Inventory{
		Results: map[inventory.Kind][]inventory.SizingResult{
			inventory.KindVM: {
				{
					Descriptor: inventory.Descriptor{Kind: inventory.KindVM, Scope: "proj-a", ID: "vm-1", Region: "us-east1"},
					Bytes:      units.FromGiB(100),
					Method:     "enumeration",
				},
			},
			inventory.KindDisk: {
				{
					Descriptor: inventory.Descriptor{
						Kind: inventory.KindDisk, Scope: "proj-a", ID: "disk-1", Region: "us-east1",
						Attrs: map[string]string{"attached": "true"},
					},
					Bytes:  units.FromGiB(100),
					Method: "enumeration",
				},
				{
					Descriptor: inventory.Descriptor{
						Kind: inventory.KindDisk, Scope: "proj-a", ID: "disk-2", Region: "us-east1",
						Attrs: map[string]string{"attached": "false"},
					},
					Bytes:  units.FromGiB(50),
					Method: "enumeration",
				},
			},
		},
	}

	r := newTestReporter(t)
	_, err := r.Write(inv)
	require.NoError(t, err)

	rows := readCSV(t, filepath.Join(r.Dir(), "summary.csv"))
	require.Len(t, rows, 4) // header, vm, disk, total

	gib := map[string]string{}
	for _, row := range rows[1:] {
		gib[row[0]] = row[5]
	}
	assert.Equal(t, "100", gib["vm"])
	assert.Equal(t, "150", gib["disk"])
	// 100 GiB of the disk row already sits inside the VM row.
	assert.Equal(t, "150", gib["TOTAL"])
}

func TestSummaryKeepsInventoriedEmptyKinds(t *testing.T) {
	inv := &inventory.Inventory{
		Kinds: []inventory.Kind{inventory.KindVM, inventory.KindBucket},
		Results: map[inventory.Kind][]inventory.SizingResult{
			inventory.KindBucket: {
				{
					Descriptor: inventory.Descriptor{Kind: inventory.KindBucket, Scope: "proj-a", ID: "gs://assets", Region: "us-east1"},
					Bytes:      units.FromGB(10),
					Method:     "gsutil-du",
				},
			},
		},
	}

	r := newTestReporter(t)
	_, err := r.Write(inv)
	require.NoError(t, err)

	rows := readCSV(t, filepath.Join(r.Dir(), "summary.csv"))
	require.Len(t, rows, 4) // header, vm, bucket, total

	// The vm kind was inventoried and found empty everywhere; it still
	// gets its zero row. Kinds never asked for stay absent.
	assert.Equal(t, "vm", rows[1][0])
	assert.Equal(t, "0", rows[1][1])
	assert.Equal(t, "bucket", rows[2][0])
	assert.Equal(t, "1", rows[2][1])
}

func TestWorkbookHasInfoSummaryAndDetailSheets(t *testing.T) {
	r := newTestReporter(t)
	_, err := r.Write(testInventory())
	require.NoError(t, err)

	f, err := excelize.OpenFile(filepath.Join(r.Dir(), "inventory.xlsx"))
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	assert.Contains(t, sheets, "Info")
	assert.Contains(t, sheets, "Summary")
	assert.Contains(t, sheets, "disk")
	assert.Contains(t, sheets, "bucket")
	assert.NotContains(t, sheets, "Sheet1")

	// Grand total row sits after the two kind rows.
	kind, err := f.GetCellValue("Summary", "A2")
	require.NoError(t, err)
	assert.NotEmpty(t, kind)
	total, err := f.GetCellValue("Summary", "A4")
	require.NoError(t, err)
	assert.Equal(t, "TOTAL", total)
}

func TestArchiveContainsReportFiles(t *testing.T) {
	r := newTestReporter(t)
	_, err := r.Write(testInventory())
	require.NoError(t, err)

	zipPath, err := r.Archive()
	require.NoError(t, err)

	zr, err := zip.OpenReader(zipPath)
	require.NoError(t, err)
	defer zr.Close()

	var found bool
	base := filepath.Base(r.Dir())
	for _, f := range zr.File {
		assert.True(t, strings.HasPrefix(f.Name, base))
		if filepath.Base(f.Name) == "summary.csv" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRunDirectoriesAreUnique(t *testing.T) {
	base := t.TempDir()
	a, err := New(base, zerolog.Nop())
	require.NoError(t, err)
	b, err := New(base, zerolog.Nop())
	require.NoError(t, err)
	assert.NotEqual(t, a.Dir(), b.Dir())
}
