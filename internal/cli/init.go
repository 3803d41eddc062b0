package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create or migrate the database",
		Long: `Create the SQLite database if it does not exist and bring its schema
up to date. Safe to run on an existing database.

Example:
  slotgrid init --db ./slotgrid.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(rootOpts, cmd)
		},
	}
	return cmd
}

func runInit(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	st, err := opts.openStore()
	if err != nil {
		return formatter.Fail(err)
	}
	closeStore(st)

	if formatter.Format == "json" {
		return formatter.Success(map[string]string{"db": opts.cfg.DB})
	}
	fmt.Fprintf(formatter.Writer, "✓ Database ready: %s\n", opts.cfg.DB)
	return nil
}
