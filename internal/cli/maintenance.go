package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func SweepTimeoutsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-timeouts",
		Short: "Mark uploads stuck in data-quality checks as timed out",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(false)
			if err != nil {
				return err
			}
			defer rt.Close()

			n, err := rt.uploads().SweepTimeouts(cmd.Context(), time.Now())
			if err != nil {
				return fmt.Errorf("failed to sweep timeouts: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Marked %d upload(s) as TIMEOUT\n", n)
			return nil
		},
	}
}

func ReconcileUploadsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile-uploads",
		Short: "Repair uploads left PENDING by an interrupted write",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(false)
			if err != nil {
				return err
			}
			defer rt.Close()

			res, err := rt.uploads().Reconcile(cmd.Context(), time.Now())
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Promoted %d, removed %d pending upload(s)\n", res.Promoted, res.Removed)
			if err != nil {
				return fmt.Errorf("reconciliation finished with errors: %w", err)
			}
			return nil
		},
	}
}

func RefreshSchemasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh-schemas",
		Short: "Reload warehouse schemas into the cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(true)
			if err != nil {
				return err
			}
			defer rt.Close()

			n, err := rt.schemas().Refresh(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to refresh schemas: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Refreshed %d schema(s)\n", n)
			return nil
		},
	}
}
