// Package report renders a finished inventory into CSV files, an
// Excel workbook, a console summary, and an optional zip archive.
// Accumulated byte counts are converted to display units here and
// nowhere earlier.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yairfalse/mittari/pkg/inventory"
)

// Reporter writes every artifact of one run into a dedicated
// directory so consecutive runs never overwrite each other.
type Reporter struct {
	dir    string
	logger zerolog.Logger
}

// New creates the run directory under base and returns a reporter
// bound to it.
func New(base string, logger zerolog.Logger) (*Reporter, error) {
	stamp := time.Now().Format("20060102-150405")
	short := uuid.NewString()[:8]
	dir := filepath.Join(base, fmt.Sprintf("mittari-%s-%s", stamp, short))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run directory: %w", err)
	}
	return &Reporter{dir: dir, logger: logger}, nil
}

// Dir returns the run directory path.
func (r *Reporter) Dir() string { return r.dir }

// Write renders every report file and returns the paths written.
func (r *Reporter) Write(inv *inventory.Inventory) ([]string, error) {
	var written []string

	for _, kind := range inventory.AllKinds() {
		results := inv.Results[kind]
		if len(results) == 0 {
			continue
		}
		path := filepath.Join(r.dir, string(kind)+".csv")
		if err := writeDetailCSV(path, results); err != nil {
			return written, fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
	}

	summaryPath := filepath.Join(r.dir, "summary.csv")
	if err := writeSummaryCSV(summaryPath, inv); err != nil {
		return written, fmt.Errorf("write %s: %w", summaryPath, err)
	}
	written = append(written, summaryPath)

	scopesPath := filepath.Join(r.dir, "scopes.csv")
	if err := writeScopesCSV(scopesPath, inv); err != nil {
		return written, fmt.Errorf("write %s: %w", scopesPath, err)
	}
	written = append(written, scopesPath)

	workbookPath := filepath.Join(r.dir, "inventory.xlsx")
	if err := writeWorkbook(workbookPath, inv); err != nil {
		return written, fmt.Errorf("write %s: %w", workbookPath, err)
	}
	written = append(written, workbookPath)

	for _, p := range written {
		r.logger.Info().Str("path", p).Msg("report written")
	}
	return written, nil
}
