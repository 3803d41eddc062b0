package cli

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/roach88/slotgrid/internal/model"
	"github.com/roach88/slotgrid/internal/store"
)

// GrantOptions holds flags shared by the grant and revoke commands.
type GrantOptions struct {
	*RootOptions
	User        string
	Reservables []string
	Permissions []string
}

// NewGrantCommand creates the grant command.
func NewGrantCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GrantOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "grant",
		Short: "Give a user permissions on reservables",
		Long: `Grant every --permission on every --reservable to --user and print the
permissions the user then holds. Granting twice is a no-op.

Permissions: reserve, double_reserve, manage_reservations.

Example:
  slotgrid grant --user bob --reservable room-a --permission reserve`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGrant(opts, cmd, (*store.Store).Grant)
		},
	}
	opts.flags(cmd)
	return cmd
}

// NewRevokeCommand creates the revoke command.
func NewRevokeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GrantOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "revoke",
		Short: "Take permissions on reservables away from a user",
		Long: `Revoke every --permission on every --reservable from --user and print
the permissions the user still holds. Revoking a permission that was
never granted is a no-op.

Example:
  slotgrid revoke --user bob --reservable room-a --permission reserve`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGrant(opts, cmd, (*store.Store).Revoke)
		},
	}
	opts.flags(cmd)
	return cmd
}

func (o *GrantOptions) flags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.User, "user", "", "user whose permissions change (required)")
	cmd.Flags().StringSliceVar(&o.Reservables, "reservable", nil, "reservable slug (repeatable, required)")
	cmd.Flags().StringSliceVar(&o.Permissions, "permission", nil, "permission (repeatable, required)")
	for _, name := range []string{"user", "reservable", "permission"} {
		_ = cmd.MarkFlagRequired(name)
	}
}

func (o *GrantOptions) grants() ([]model.Grant, error) {
	var out []model.Grant
	for _, p := range o.Permissions {
		perm := model.Permission(p)
		if !perm.Valid() {
			return nil, fmt.Errorf("--permission %q: unknown permission", p)
		}
		for _, slug := range o.Reservables {
			out = append(out, model.Grant{User: o.User, Reservable: slug, Permission: perm})
		}
	}
	return out, nil
}

func runGrant(opts *GrantOptions, cmd *cobra.Command, apply func(*store.Store, context.Context, model.Grant) error) error {
	formatter := opts.formatter(cmd)

	grants, err := opts.grants()
	if err != nil {
		_ = formatter.Error(ErrCodeInvalidInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid grant flags", err)
	}

	st, err := opts.openStore()
	if err != nil {
		return formatter.Fail(err)
	}
	defer closeStore(st)

	ctx := cmd.Context()
	for _, g := range grants {
		if err := apply(st, ctx, g); err != nil {
			return formatter.Fail(err)
		}
	}

	held, err := st.Grants(ctx, opts.User)
	if err != nil {
		return formatter.Fail(err)
	}

	if formatter.Format == "json" {
		return formatter.Success(held)
	}
	if len(held) == 0 {
		fmt.Fprintf(formatter.Writer, "%s holds no permissions\n", opts.User)
		return nil
	}
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"reservable", "permission"})
	for _, g := range held {
		tbl.AppendRow(table.Row{g.Reservable, g.Permission})
	}
	fmt.Fprintln(formatter.Writer, tbl.Render())
	return nil
}
