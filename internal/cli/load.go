package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/slotgrid/internal/fixture"
	"github.com/roach88/slotgrid/internal/model"
)

// LoadOptions holds flags for the load command.
type LoadOptions struct {
	*RootOptions

	// IDGenerator overrides reservation IDs (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator model.IDGenerator
	// Now overrides the creation time of loaded reservations (for testing).
	Now func() time.Time
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load <fixture.yaml>",
		Short: "Load a catalogue fixture into the database",
		Long: `Validate a YAML fixture and store its resources, reservables, sets,
grants, sort orders, profiles and reservations.

Reservations are stored as given, without permission checks.

Example:
  slotgrid load --db ./slotgrid.db ./lab.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(opts, args[0], cmd)
		},
	}
	return cmd
}

func runLoad(opts *LoadOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	f, err := os.Open(path)
	if err != nil {
		_ = formatter.Error(ErrCodeReadFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open fixture", err)
	}
	defer f.Close()

	fx, err := fixture.Decode(f)
	if err != nil {
		return formatter.Fail(err)
	}
	formatter.VerboseLog("Fixture %s: %d reservable(s), %d reservation(s)", path, len(fx.Reservables), len(fx.Reservations))

	st, err := opts.openStore()
	if err != nil {
		return formatter.Fail(err)
	}
	defer closeStore(st)

	ids := opts.IDGenerator
	if ids == nil {
		ids = model.UUIDv7Generator{}
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	sum, err := fixture.Apply(cmd.Context(), st, fx, ids, now().UTC().Truncate(time.Millisecond))
	if err != nil {
		return formatter.Fail(err)
	}

	if formatter.Format == "json" {
		return formatter.Success(sum)
	}
	fmt.Fprintf(formatter.Writer, "✓ Loaded %s\n", path)
	fmt.Fprintf(formatter.Writer, "  resources: %d  reservables: %d  sets: %d\n", sum.Resources, sum.Reservables, sum.Sets)
	fmt.Fprintf(formatter.Writer, "  grants: %d  sort orders: %d  profiles: %d\n", sum.Grants, sum.SortOrders, sum.Profiles)
	fmt.Fprintf(formatter.Writer, "  reservations: %d\n", sum.Reservations)
	return nil
}
