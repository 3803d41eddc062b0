package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/slotgrid/internal/booking"
	"github.com/roach88/slotgrid/internal/filter"
	"github.com/roach88/slotgrid/internal/model"
)

// ReserveOptions holds flags for the reserve command.
type ReserveOptions struct {
	*RootOptions
	User         string
	Reason       string
	Start        string
	End          string
	Reservables  []string
	Owners       []string
	Requirements []string // resource=n
}

// NewReserveCommand creates the reserve command.
func NewReserveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReserveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reserve",
		Short: "Reserve one or more reservables",
		Long: `Create a reservation as --user. The user needs the reserve permission
on every reservable, and double_reserve on those already taken in the
interval.

Example:
  slotgrid reserve --user alice --reason "Planning" \
    --start "2024-05-06 09:00" --end "2024-05-06 10:00" \
    --reservable room-a --require projector=1`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReserve(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.User, "user", "", "user making the reservation (required)")
	cmd.Flags().StringVar(&opts.Reason, "reason", "", "reason for the reservation (required)")
	cmd.Flags().StringVar(&opts.Start, "start", "", "start time (required)")
	cmd.Flags().StringVar(&opts.End, "end", "", "end time (required)")
	cmd.Flags().StringSliceVar(&opts.Reservables, "reservable", nil, "reservable slug (repeatable, required)")
	cmd.Flags().StringSliceVar(&opts.Owners, "owner", nil, "owner (repeatable, defaults to --user)")
	cmd.Flags().StringSliceVar(&opts.Requirements, "require", nil, "resource=n requirement (repeatable)")
	for _, name := range []string{"user", "reason", "start", "end", "reservable"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func runReserve(opts *ReserveOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	r, err := opts.reservation()
	if err != nil {
		_ = formatter.Error(ErrCodeInvalidInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid reservation flags", err)
	}

	st, err := opts.openStore()
	if err != nil {
		return formatter.Fail(err)
	}
	defer closeStore(st)

	created, err := booking.New(st).Create(cmd.Context(), opts.User, r)
	if err != nil {
		return formatter.Fail(err)
	}

	if formatter.Format == "json" {
		return formatter.Success(created)
	}
	fmt.Fprintf(formatter.Writer, "✓ Reserved %s: %s\n", created.ID, strings.Join(created.Reservables, ", "))
	fmt.Fprintf(formatter.Writer, "  %s - %s\n", created.Start.Format(time.RFC3339), created.End.Format(time.RFC3339))
	return nil
}

func (o *ReserveOptions) reservation() (model.Reservation, error) {
	start, err := filter.ParseTime(o.Start)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("--start: %w", err)
	}
	end, err := filter.ParseTime(o.End)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("--end: %w", err)
	}

	r := model.Reservation{
		Reason:      o.Reason,
		Start:       start,
		End:         end,
		Owners:      o.Owners,
		Reservables: o.Reservables,
	}
	for _, req := range o.Requirements {
		resource, n, ok := strings.Cut(req, "=")
		if !ok {
			return model.Reservation{}, fmt.Errorf("--require %q: want resource=n", req)
		}
		count, err := strconv.Atoi(n)
		if err != nil {
			return model.Reservation{}, fmt.Errorf("--require %q: %w", req, err)
		}
		r.Requirements = append(r.Requirements, model.NRequirement{Resource: resource, N: count})
	}
	return r, nil
}

// CancelOptions holds flags for the cancel command.
type CancelOptions struct {
	*RootOptions
	User string
}

// NewCancelCommand creates the cancel command.
func NewCancelCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CancelOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cancel <reservation-id>",
		Short: "Cancel a reservation",
		Long: `Delete a reservation as --user. Owners holding reserve may cancel their
own reservations; manage_reservations on every reservable allows
cancelling anyone's.

Example:
  slotgrid cancel 0190f5d2-... --user alice`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCancel(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.User, "user", "", "user cancelling the reservation (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runCancel(opts *CancelOptions, id string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	st, err := opts.openStore()
	if err != nil {
		return formatter.Fail(err)
	}
	defer closeStore(st)

	if err := booking.New(st).Cancel(cmd.Context(), opts.User, id); err != nil {
		return formatter.Fail(err)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]string{"cancelled": id})
	}
	fmt.Fprintf(formatter.Writer, "✓ Cancelled %s\n", id)
	return nil
}
