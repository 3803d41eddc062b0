package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/slotgrid/internal/filter"
	"github.com/roach88/slotgrid/internal/timeview"
)

// TimeViewOptions holds flags for the timeview command.
type TimeViewOptions struct {
	*RootOptions
	Set   string
	Type  string
	Start string
	Zoom  string
	User  string
}

// NewTimeViewCommand creates the timeview command.
func NewTimeViewCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TimeViewOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "timeview",
		Short: "Show a set's reservables of one type on a time grid",
		Long: `Show the slot grid of the reservables of one type in a set.

Zoom hour shows one day in hourly slots, day one week in daily slots and
week four weeks in weekly slots. A user with a custom sort order sees
their rows first.

Example:
  slotgrid timeview --set lab --type room --start 2024-05-06 --zoom day`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTimeView(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Set, "set", "", "reservable set slug (required)")
	cmd.Flags().StringVar(&opts.Type, "type", "", "reservable type (required)")
	cmd.Flags().StringVar(&opts.Start, "start", "", "time inside the window (required)")
	cmd.Flags().StringVar(&opts.Zoom, "zoom", "", "hour|day|week (default from config)")
	cmd.Flags().StringVar(&opts.User, "user", "", "user whose sort order to apply")
	_ = cmd.MarkFlagRequired("set")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("start")

	return cmd
}

func runTimeView(opts *TimeViewOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	start, err := filter.ParseTime(opts.Start)
	if err != nil {
		_ = formatter.Error(ErrCodeInvalidInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid --start", err)
	}

	cfg, err := opts.config()
	if err != nil {
		return formatter.Fail(err)
	}
	zoomName := opts.Zoom
	if zoomName == "" {
		zoomName = cfg.TimeView.DefaultZoom
	}
	zoom, err := timeview.ParseZoom(zoomName)
	if err != nil {
		_ = formatter.Error(ErrCodeInvalidInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid --zoom", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return formatter.Fail(err)
	}

	st, err := opts.openStore()
	if err != nil {
		return formatter.Fail(err)
	}
	defer closeStore(st)

	view, err := timeview.Build(cmd.Context(), st, timeview.Request{
		Set:      opts.Set,
		Type:     opts.Type,
		Start:    start,
		Zoom:     zoom,
		User:     opts.User,
		Location: loc,
	})
	if err != nil {
		return formatter.Fail(err)
	}

	if formatter.Format == "json" {
		return formatter.Success(view)
	}
	return timeview.RenderText(formatter.Writer, view)
}
