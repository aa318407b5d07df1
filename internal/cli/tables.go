package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rzpsarthak13/dynatable/internal/client"
)

// errAborted is returned when a confirmation prompt is declined.
var errAborted = errors.New("aborted")

func newTablesCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "Create, drop and inspect tables",
	}
	cmd.AddCommand(
		newTablesListCommand(a),
		newTablesExistsCommand(a),
		newTablesCreateCommand(a),
		newTablesDropCommand(a),
		newTablesDescribeCommand(a),
	)
	return cmd
}

func newTablesListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the tables of the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withClient(cmd, func(ctx context.Context, c *client.ClientImpl) error {
				names, err := c.ListTables(ctx)
				if err != nil {
					return err
				}
				return a.renderer(cmd).Names("table", names)
			})
		},
	}
}

func newTablesExistsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "exists <table>",
		Short: "Report whether a table exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd, func(ctx context.Context, c *client.ClientImpl) error {
				exists, err := c.TableExists(ctx, args[0])
				if err != nil {
					return err
				}
				return a.renderer(cmd).Result(map[string]interface{}{"table": args[0], "exists": exists},
					fmt.Sprintf("%s: %t", args[0], exists))
			})
		},
	}
}

func newTablesCreateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create <table> <column>...",
		Short: "Create a table",
		Long: `Create a table with an integer primary key "id" followed by the given columns.

Columns are written name:type[:option=value,...]. Types are integer, string,
text, datetime, float and boolean. Options are length, nullable, unique and
default.`,
		Example: `  dynatable tables create users email:string:length=120,unique=true,nullable=false age:integer
  dynatable tables create events payload:text seen_at:datetime --db-path events.db`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			columns, err := parseColumns(args[1:])
			if err != nil {
				return err
			}
			return a.withClient(cmd, func(ctx context.Context, c *client.ClientImpl) error {
				ts, err := c.CreateTable(ctx, args[0], columns)
				if err != nil {
					return err
				}
				return a.renderer(cmd).Schema(ts)
			})
		},
	}
}

func newTablesDropCommand(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "drop <table>",
		Short: "Drop a table and all of its records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if !yes {
				if !confirm(cmd, fmt.Sprintf("Drop table %q and all of its records? [y/N]: ", name)) {
					return errAborted
				}
			}
			return a.withClient(cmd, func(ctx context.Context, c *client.ClientImpl) error {
				dropped, err := c.DropTable(ctx, name)
				if err != nil {
					return err
				}
				return a.renderer(cmd).Result(map[string]interface{}{"table": name, "dropped": dropped},
					fmt.Sprintf("dropped %s", name))
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func newTablesDescribeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <table>",
		Short: "Show the columns of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd, func(ctx context.Context, c *client.ClientImpl) error {
				ts, err := c.GetSchema(ctx, args[0])
				if err != nil {
					return err
				}
				return a.renderer(cmd).Schema(ts)
			})
		},
	}
}

// confirm prints prompt on stderr and reads one answer line from stdin.
func confirm(cmd *cobra.Command, prompt string) bool {
	_, _ = fmt.Fprint(cmd.ErrOrStderr(), prompt)
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
