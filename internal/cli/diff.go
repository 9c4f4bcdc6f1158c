package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ingestion-portal/internal/changeset"
)

var (
	insertColor = color.New(color.FgHiGreen)
	deleteColor = color.New(color.FgRed)
	updateColor = color.New(color.FgYellow)
	oldColor    = color.New(color.FgRed, color.CrossedOut)
	newColor    = color.New(color.FgHiGreen)
)

func DiffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff [file.csv]",
		Short: "Reduce a local change-set CSV and print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			table, err := changeset.Read(f)
			if err != nil {
				return err
			}
			diff, err := changeset.Reduce(table)
			if err != nil {
				return err
			}
			summary, err := changeset.Summarize(table)
			if err != nil {
				return err
			}

			renderDiff(cmd.OutOrStdout(), diff, limit)
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d row(s): %d added, %d updated, %d deleted\n",
				summary.Total(), summary.Inserts, summary.Updates, summary.Deletes)
			return nil
		},
	}
	cmd.Flags().Int("limit", 50, "maximum number of rows to print (0 for all)")
	return cmd
}

func renderDiff(w io.Writer, diff *changeset.Diff, limit int) {
	fmt.Fprintf(w, "%-16s %s\n", "CHANGE", strings.Join(diff.Columns, " | "))
	fmt.Fprintln(w, strings.Repeat("─", 80))

	for i, row := range diff.Rows {
		if limit > 0 && i >= limit {
			fmt.Fprintf(w, "… %d more row(s)\n", len(diff.Rows)-limit)
			return
		}

		cells := make([]string, len(diff.Columns))
		for j, col := range diff.Columns {
			cells[j] = renderCell(row.Values[col])
		}
		fmt.Fprintf(w, "%-16s %s\n", changeColor(row.ChangeType).Sprint(row.ChangeType), strings.Join(cells, " | "))
	}
}

func renderCell(cell string) string {
	oldVal, newVal, changed := changeset.SplitChanged(cell)
	if !changed {
		return cell
	}
	return oldColor.Sprint(oldVal) + " " + newColor.Sprint(newVal)
}

func changeColor(ct changeset.ChangeType) *color.Color {
	switch ct {
	case changeset.Insert:
		return insertColor
	case changeset.Delete:
		return deleteColor
	default:
		return updateColor
	}
}
