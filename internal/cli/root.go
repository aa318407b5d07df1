// Package cli provides the command-line interface for dynatable.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rzpsarthak13/dynatable/internal/client"
	"github.com/rzpsarthak13/dynatable/internal/registry"
)

// Version information (set at build time).
var Version = "0.1.0"

// app holds what the persistent flags and the pre-run hook produce.
type app struct {
	cfgFile string
	verbose bool
	output  string

	config *registry.InternalConfig
	logger *slog.Logger
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "dynatable",
		Short: "dynatable - runtime-defined relational tables",
		Long: `dynatable creates tables from column descriptions given at runtime,
discovers existing tables from the database catalog, and reads and writes
their records without generated code.

Configuration is layered: defaults, then --config, then DYNATABLE_*
environment variables, then flags.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			return a.load(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (YAML)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Verbose logging on stderr")
	pf.StringVarP(&a.output, "output", "o", "table", "Output format (table|json)")

	pf.String("db-type", "", "Database engine (mysql|postgres|sqlite|duckdb)")
	pf.String("db-path", "", "Database file for sqlite and duckdb")
	pf.String("db-host", "", "Database host")
	pf.Int("db-port", 0, "Database port")
	pf.String("db-name", "", "Database name")
	pf.String("db-user", "", "Database user")
	pf.String("db-password", "", "Database password")
	pf.String("db-ssl-mode", "", "Postgres sslmode")
	pf.String("cache-type", "", "Shared schema cache (none|memory|redis|dynamodb)")
	pf.Duration("cache-ttl", 0, "Shared schema cache TTL")
	pf.String("namespace", "", "Shared schema cache key namespace")
	pf.StringSlice("redis-addr", nil, "Redis addresses")
	pf.String("events-type", "", "Schema events (none|memory|redis|kafka)")
	pf.StringSlice("kafka-broker", nil, "Kafka brokers")
	pf.Float64("sweep-rate", 0, "Catalog probes per second while evicting (0 is unlimited)")
	pf.Int("sweep-limit", 0, "Parallel catalog probes while evicting")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"table", "json"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("db-type", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"mysql", "postgres", "sqlite", "duckdb"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(newTablesCommand(a))
	rootCmd.AddCommand(newRecordsCommand(a))
	rootCmd.AddCommand(newCacheCommand(a))

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func (a *app) load(cmd *cobra.Command) error {
	switch a.output {
	case "table", "json":
	default:
		return fmt.Errorf("unsupported output format %q (table|json)", a.output)
	}

	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	cm := registry.NewConfigManager()
	if err := cm.Load(registry.LoadOptions{File: a.cfgFile, Flags: cmd.Root().PersistentFlags()}); err != nil {
		return err
	}
	a.config = cm.GetConfig()
	if a.cfgFile != "" {
		a.logger.Debug("using config file", slog.String("path", a.cfgFile))
	}
	return nil
}

// withClient opens a client for the duration of fn.
func (a *app) withClient(cmd *cobra.Command, fn func(ctx context.Context, c *client.ClientImpl) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	c, err := client.NewClientFromConfig(ctx, a.config, a.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			a.logger.Warn("close failed", slog.Any("error", err))
		}
	}()
	return fn(ctx, c)
}

func (a *app) renderer(cmd *cobra.Command) *renderer {
	return &renderer{w: cmd.OutOrStdout(), json: a.output == "json"}
}
