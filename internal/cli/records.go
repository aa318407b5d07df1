package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rzpsarthak13/dynatable/internal/client"
	"github.com/rzpsarthak13/dynatable/internal/core"
)

func newRecordsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "records",
		Aliases: []string{"rec"},
		Short:   "Create, read, update and delete records",
		Long: `Read and write records of an existing table.

Values are written column=value and converted to the column type; the
literal null stores NULL. Records are addressed by their id.`,
	}
	cmd.AddCommand(
		newRecordsCreateCommand(a),
		newRecordsGetCommand(a),
		newRecordsListCommand(a),
		newRecordsUpdateCommand(a),
		newRecordsDeleteCommand(a),
	)
	return cmd
}

func newRecordsCreateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "create <table> [column=value]...",
		Short:   "Insert a record",
		Example: `  dynatable records create users email=a@example.com age=31`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			return a.withClient(cmd, func(ctx context.Context, c *client.ClientImpl) error {
				created, err := c.Create(ctx, args[0], rec)
				if err != nil {
					return err
				}
				return a.renderRecords(ctx, cmd, c, args[0], []core.Record{created})
			})
		},
	}
}

func newRecordsGetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <table> <id>",
		Short: "Read a record by id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd, func(ctx context.Context, c *client.ClientImpl) error {
				rec, found, err := c.Read(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("%s %s: %w", args[0], args[1], core.ErrRecordNotFound)
				}
				return a.renderRecords(ctx, cmd, c, args[0], []core.Record{rec})
			})
		},
	}
}

func newRecordsListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list <table> [column=value]...",
		Short:   "List records, optionally filtered by column equality",
		Example: `  dynatable records list users active=true`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			return a.withClient(cmd, func(ctx context.Context, c *client.ClientImpl) error {
				recs, err := c.ReadAll(ctx, args[0], filters)
				if err != nil {
					return err
				}
				return a.renderRecords(ctx, cmd, c, args[0], recs)
			})
		},
	}
}

func newRecordsUpdateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "update <table> <id> column=value...",
		Short:   "Update columns of a record",
		Example: `  dynatable records update users 1 age=32 nickname=null`,
		Args:    cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			partial, err := parseAssignments(args[2:])
			if err != nil {
				return err
			}
			return a.withClient(cmd, func(ctx context.Context, c *client.ClientImpl) error {
				rec, found, err := c.Update(ctx, args[0], args[1], partial)
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("%s %s: %w", args[0], args[1], core.ErrRecordNotFound)
				}
				return a.renderRecords(ctx, cmd, c, args[0], []core.Record{rec})
			})
		},
	}
}

func newRecordsDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <table> <id>",
		Short: "Delete a record by id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd, func(ctx context.Context, c *client.ClientImpl) error {
				deleted, err := c.Delete(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				if !deleted {
					return fmt.Errorf("%s %s: %w", args[0], args[1], core.ErrRecordNotFound)
				}
				return a.renderer(cmd).Result(map[string]interface{}{"table": args[0], "id": args[1], "deleted": true},
					fmt.Sprintf("deleted %s %s", args[0], args[1]))
			})
		},
	}
}

// renderRecords renders recs in schema column order.
func (a *app) renderRecords(ctx context.Context, cmd *cobra.Command, c *client.ClientImpl, table string, recs []core.Record) error {
	ts, err := c.GetSchema(ctx, table)
	if err != nil {
		return err
	}
	return a.renderer(cmd).Records(ts.ColumnNames(), recs)
}
