package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewPruneCommand creates the prune command.
func NewPruneCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete reservations left without reservables",
		Long: `Delete reservations whose reservables have all been removed from the
catalogue.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrune(rootOpts, cmd)
		},
	}
	return cmd
}

func runPrune(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	st, err := opts.openStore()
	if err != nil {
		return formatter.Fail(err)
	}
	defer closeStore(st)

	n, err := st.Prune(cmd.Context())
	if err != nil {
		return formatter.Fail(err)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]int64{"pruned": n})
	}
	fmt.Fprintf(formatter.Writer, "✓ Pruned %d reservation(s)\n", n)
	return nil
}
