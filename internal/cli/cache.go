package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rzpsarthak13/dynatable/internal/client"
)

func newCacheCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the shared schema cache",
	}
	cmd.AddCommand(newCacheEvictCommand(a))
	return cmd
}

func newCacheEvictCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "evict <table>...",
		Short: "Evict cached schemas so the next access re-reads the catalog",
		Long: `Evict the cached schema of each table from the shared cache and announce
the eviction on the schema event stream, so running clients drop their
local copies too. Tables and records are not touched.`,
		Example: `  dynatable cache evict users orders --cache-type redis --redis-addr localhost:6379`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd, func(ctx context.Context, c *client.ClientImpl) error {
				for _, name := range args {
					if err := c.Forget(ctx, name); err != nil {
						return err
					}
				}
				return a.renderer(cmd).Result(map[string]interface{}{"evicted": args},
					fmt.Sprintf("evicted %s", strings.Join(args, ", ")))
			})
		},
	}
}
