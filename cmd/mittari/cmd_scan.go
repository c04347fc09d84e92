package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/oklog/run"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/yairfalse/mittari/internal/config"
	"github.com/yairfalse/mittari/internal/engine"
	"github.com/yairfalse/mittari/internal/progress"
	"github.com/yairfalse/mittari/internal/provider"
	"github.com/yairfalse/mittari/internal/report"
	"github.com/yairfalse/mittari/internal/runner"
	"github.com/yairfalse/mittari/internal/telemetry"
	"github.com/yairfalse/mittari/pkg/inventory"

	// Providers register themselves with the registry.
	_ "github.com/yairfalse/mittari/internal/provider/aws"
	_ "github.com/yairfalse/mittari/internal/provider/azure"
	_ "github.com/yairfalse/mittari/internal/provider/gcp"
	_ "github.com/yairfalse/mittari/internal/provider/oci"
)

var (
	scanConfig    string
	scanProviders []string
	scanScopes    []string
	scanKinds     []string
	scanOutput    string
	scanZip       bool
	scanLogLevel  string
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Inventory and size cloud resources across every scope",
	Long: `Scan discovers every scope the enabled providers can see, lists the
storage-bearing resources in each, measures their capacity, and writes
the deduplicated inventory to a timestamped report directory.

Scopes that cannot be inventoried (API disabled, permission denied,
timeout) are recorded in the report with their failure class instead of
aborting the run.`,
	Example: `  mittari scan                                  # All configured providers
  mittari scan --providers gcp,oci              # Two clouds in one run
  mittari scan --kinds vm,disk                  # Only compute capacity
  mittari scan --scopes my-project-1            # A single project
  mittari scan --config mittari.toml --zip      # Config file plus archive`,
	RunE: runScanCmd,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVarP(&scanConfig, "config", "c", "", "Path to TOML config file")
	scanCmd.Flags().StringSliceVarP(&scanProviders, "providers", "p", nil, "Providers to inventory (gcp,azure,aws,oci)")
	scanCmd.Flags().StringSliceVar(&scanScopes, "scopes", nil, "Restrict the run to these scope ids")
	scanCmd.Flags().StringSliceVarP(&scanKinds, "kinds", "k", nil, "Resource kinds to inventory")
	scanCmd.Flags().StringVarP(&scanOutput, "output", "o", "", "Report output directory")
	scanCmd.Flags().BoolVar(&scanZip, "zip", false, "Archive the report directory into a zip")
	scanCmd.Flags().StringVar(&scanLogLevel, "log-level", "", "Log level (trace,debug,info,warn,error)")
}

func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadScanConfig()
	if err != nil {
		return err
	}

	kinds, err := cfg.Kinds()
	if err != nil {
		return err
	}

	// The run directory is created before the logger so the transcript
	// can live inside it.
	bootstrap := telemetry.New("mittari", cfg.Log.Level)
	reporter, err := report.New(cfg.Output.Dir, bootstrap)
	if err != nil {
		return err
	}

	transcript, err := os.Create(filepath.Join(reporter.Dir(), "run.log"))
	if err != nil {
		return fmt.Errorf("create transcript: %w", err)
	}
	defer transcript.Close()
	logger := telemetry.New("mittari", cfg.Log.Level, os.Stderr, transcript)

	execRunner := runner.NewExecRunner(logger,
		"CLOUDSDK_CORE_DISABLE_PROMPTS=1",
		"AWS_PAGER=",
		"AZURE_CORE_NO_COLOR=1",
		"OCI_CLI_AUTO_PROMPT=false",
	)

	providers, err := buildProviders(cfg, execRunner, logger)
	if err != nil {
		return err
	}

	eng := engine.New(cfg, providers, progress.LogObserver{Logger: logger}, logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var inv *inventory.Inventory
	var g run.Group
	g.Add(func() error {
		var runErr error
		inv, runErr = eng.Run(ctx, kinds)
		cancel()
		return runErr
	}, func(error) {
		cancel()
	})
	g.Add(run.SignalHandler(ctx, syscall.SIGINT, syscall.SIGTERM))

	if err := g.Run(); err != nil {
		var sig run.SignalError
		if errors.As(err, &sig) {
			logger.Warn().Str("signal", sig.Signal.String()).Msg("interrupted")
			return fmt.Errorf("interrupted by %s", sig.Signal)
		}
		if !errors.Is(err, context.Canceled) {
			return err
		}
	}
	if inv == nil {
		return fmt.Errorf("run produced no inventory")
	}

	if _, err := reporter.Write(inv); err != nil {
		return err
	}
	if cfg.Output.Zip {
		if _, err := reporter.Archive(); err != nil {
			return err
		}
	}

	report.RenderSummary(os.Stdout, inv)
	report.RenderFailures(os.Stdout, inv)
	fmt.Fprintf(os.Stdout, "\nReports: %s\n", reporter.Dir())
	return nil
}

// loadScanConfig reads the config file if given and layers the command
// line flags on top.
func loadScanConfig() (*config.Config, error) {
	cfg := config.Default()
	if scanConfig != "" {
		loaded, err := config.Load(scanConfig)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if len(scanProviders) > 0 {
		cfg.Providers.Enabled = scanProviders
	}
	if len(scanScopes) > 0 {
		cfg.Providers.Scopes = scanScopes
	}
	if len(scanKinds) > 0 {
		cfg.Providers.Kinds = scanKinds
	}
	if scanOutput != "" {
		cfg.Output.Dir = scanOutput
	}
	if scanZip {
		cfg.Output.Zip = true
	}
	if scanLogLevel != "" {
		cfg.Log.Level = scanLogLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildProviders instantiates every enabled provider from the
// registry.
func buildProviders(cfg *config.Config, r runner.Runner, logger zerolog.Logger) ([]provider.Provider, error) {
	providers := make([]provider.Provider, 0, len(cfg.Providers.Enabled))
	for _, name := range cfg.Providers.Enabled {
		p, err := provider.New(name, provider.Config{Runner: r, Logger: logger})
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return providers, nil
}
