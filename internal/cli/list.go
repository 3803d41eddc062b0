package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/roach88/slotgrid/internal/filter"
	"github.com/roach88/slotgrid/internal/model"
	"github.com/roach88/slotgrid/internal/store"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Filters []string // field__lookup=value
}

// listKinds maps a list argument to its filter schema.
var listKinds = map[string]filter.Schema{
	"reservations": filter.ReservationSchema,
	"reservables":  filter.ReservableSchema,
	"resources":    filter.ResourceSchema,
	"sets":         filter.SetSchema,
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list [reservations|reservables|resources|sets]",
		Short: "List catalogue entries matching filters",
		Long: `List reservations (the default), reservables, resources or sets.

Filters use field__lookup=value, as in the HTTP API. Unknown fields or
lookups are rejected with the list of available ones.

Example:
  slotgrid list --filter owners=alice --filter start__gte=2024-05-06
  slotgrid list reservables --filter type=room --filter ordering=-name`,
		Args:          cobra.MaximumNArgs(1),
		ValidArgs:     []string{"reservations", "reservables", "resources", "sets"},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := "reservations"
			if len(args) == 1 {
				kind = args[0]
			}
			return runList(opts, kind, cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Filters, "filter", nil, "field__lookup=value filter (repeatable)")

	return cmd
}

func runList(opts *ListOptions, kind string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	schema, ok := listKinds[kind]
	if !ok {
		_ = formatter.Error(ErrCodeInvalidInput, fmt.Sprintf("unknown list %q", kind), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown list %q", kind))
	}
	f, err := filter.ParsePairs(schema, opts.Filters)
	if err != nil {
		return formatter.Fail(err)
	}

	st, err := opts.openStore()
	if err != nil {
		return formatter.Fail(err)
	}
	defer closeStore(st)

	tbl, data, err := listTable(cmd, st, kind, f)
	if err != nil {
		return formatter.Fail(err)
	}

	if formatter.Format == "json" {
		return formatter.Success(data)
	}
	tbl.SetStyle(table.StyleLight)
	fmt.Fprintln(formatter.Writer, tbl.Render())
	return nil
}

// listTable runs the query for kind and returns both its text table and
// the raw result for JSON output.
func listTable(cmd *cobra.Command, st *store.Store, kind string, f *filter.Filter) (table.Writer, any, error) {
	ctx := cmd.Context()
	tbl := table.NewWriter()

	switch kind {
	case "reservables":
		list, err := st.ListReservables(ctx, f)
		if err != nil {
			return nil, nil, err
		}
		tbl.AppendHeader(table.Row{"slug", "type", "name", "resources"})
		for _, r := range list {
			tbl.AppendRow(table.Row{r.Slug, r.Type, r.Name, joinCounts(r.Resources)})
		}
		return tbl, list, nil

	case "resources":
		list, err := st.ListResources(ctx, f)
		if err != nil {
			return nil, nil, err
		}
		tbl.AppendHeader(table.Row{"slug", "type", "name"})
		for _, r := range list {
			tbl.AppendRow(table.Row{r.Slug, r.Type, r.Name})
		}
		return tbl, list, nil

	case "sets":
		list, err := st.ListReservableSets(ctx, f)
		if err != nil {
			return nil, nil, err
		}
		tbl.AppendHeader(table.Row{"slug", "name", "reservables"})
		for _, s := range list {
			tbl.AppendRow(table.Row{s.Slug, s.Name, strings.Join(s.Reservables, ", ")})
		}
		return tbl, list, nil
	}

	list, err := st.ListReservations(ctx, f)
	if err != nil {
		return nil, nil, err
	}
	tbl.AppendHeader(table.Row{"id", "start", "end", "reason", "reservables", "owners"})
	for _, r := range list {
		tbl.AppendRow(table.Row{
			r.ID,
			r.Start.Format(time.DateTime),
			r.End.Format(time.DateTime),
			r.Reason,
			strings.Join(r.Reservables, ", "),
			strings.Join(r.Owners, ", "),
		})
	}
	return tbl, list, nil
}

func joinCounts(counts []model.NResources) string {
	parts := make([]string, len(counts))
	for i, c := range counts {
		parts[i] = c.Resource + "=" + strconv.Itoa(c.N)
	}
	return strings.Join(parts, ", ")
}
