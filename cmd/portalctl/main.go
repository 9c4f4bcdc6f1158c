package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ingestion-portal/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "portalctl",
		Short: "Operator tooling for the ingestion portal",
		Long: `portalctl runs the portal's scheduled maintenance jobs on demand and
inspects change-set files locally.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(cli.SweepTimeoutsCmd())
	rootCmd.AddCommand(cli.ReconcileUploadsCmd())
	rootCmd.AddCommand(cli.RefreshSchemasCmd())
	rootCmd.AddCommand(cli.DiffCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
