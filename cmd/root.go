// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/schemaflow/schemaflow/cmd/flags"
	"github.com/schemaflow/schemaflow/pkg/config"
	"github.com/schemaflow/schemaflow/pkg/flow"
	"github.com/schemaflow/schemaflow/pkg/store"
)

// Version is the schemaflow version
var Version = "development"

func init() {
	// A .env file may carry DATABASE_URL; flags and real env still win
	_ = godotenv.Load()

	viper.SetEnvPrefix("SCHEMAFLOW")
	viper.AutomaticEnv()

	rootCmd.PersistentFlags().String("config", "", "Path to schemaflow.json")
	viper.BindPFlag("CONFIG", rootCmd.PersistentFlags().Lookup("config"))
	flags.ConnectionFlags(rootCmd)
}

var rootCmd = &cobra.Command{
	Use:          "schemaflow",
	Short:        "Declarative schema management for Postgres",
	SilenceUsage: true,
	Version:      Version,
}

// resolveConfig loads schemaflow.json (when present) and flattens it with
// the command line values. Ambient environment reads happen here, at the
// CLI boundary, never in the engine.
func resolveConfig(schemaPath, migrationsDir string) (*config.Resolved, error) {
	cfg, err := config.Load(flags.ConfigPath())
	if err != nil {
		var notFound config.NotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		cfg = nil
	}

	return config.Resolve(cfg, config.Overrides{
		URL:        flags.PostgresURL(),
		Datasource: flags.Datasource(),
		SchemaPath: schemaPath,
		Migrations: migrationsDir,
		EnvURL:     os.Getenv("DATABASE_URL"),
	})
}

// newEngine connects an Engine for the resolved configuration.
func newEngine(ctx context.Context, resolved *config.Resolved) (*flow.Engine, error) {
	return flow.New(ctx, resolved.URL, resolved.Namespace,
		store.New(resolved.MigrationsPath),
		flow.WithLogger(flow.NewLogger()),
		flow.WithCreatedBy(os.Getenv("USER")),
	)
}

// Execute executes the root command.
func Execute() error {
	// register subcommands
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(deployCmd())
	rootCmd.AddCommand(dbCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(schemaCmd())

	return rootCmd.Execute()
}
