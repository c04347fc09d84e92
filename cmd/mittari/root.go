package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	rootCmd = &cobra.Command{
		Use:   "mittari",
		Short: "Multi-Cloud Capacity Inventory",
		Long: `Mittari - Multi-Cloud Capacity Inventory

Mittari walks every scope your cloud CLIs can see (projects,
subscriptions, compartments, accounts), enumerates the storage-bearing
resources inside, measures their capacity, and writes the deduplicated
inventory as CSV files and an Excel workbook.

Authentication belongs to the vendor CLIs: whatever gcloud, az, aws,
and oci are logged into is what gets inventoried.`,
		Version: version,
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// init sets up the root command
func init() {
	rootCmd.SetVersionTemplate(`Mittari {{.Version}} - Multi-Cloud Capacity Inventory
`)
}
