package cli

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/roach88/slotgrid/internal/fixture"
)

// NewLayoutCommand creates the layout command.
func NewLayoutCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layout <allocations.yaml>",
		Short: "Assign lanes to a file of allocations",
		Long: `Read named allocations with numeric or timestamp bounds and print
the lane (index) and lane depth (max_index) assigned to each.

Example:
  slotgrid layout ./allocations.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLayout(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runLayout(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	f, err := os.Open(path)
	if err != nil {
		_ = formatter.Error(ErrCodeReadFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open allocations", err)
	}
	defer f.Close()

	in, err := fixture.DecodeLayout(f)
	if err != nil {
		_ = formatter.Error(ErrCodeReadFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to decode allocations", err)
	}

	results, sum, err := in.AssignSummary()
	if err != nil {
		return formatter.Fail(err)
	}

	if formatter.Format == "json" {
		return formatter.Success(results)
	}

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"name", "start", "end", "index", "max_index"})
	for _, r := range results {
		tbl.AppendRow(table.Row{r.Name, r.Start, r.End, r.Index, r.MaxIndex})
	}
	fmt.Fprintln(formatter.Writer, tbl.Render())
	fmt.Fprintf(formatter.Writer, "%d lanes, peak %d\n", sum.LaneCount, sum.Peak)
	return nil
}
