// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/schemaflow/schemaflow/cmd/flags"
	"github.com/schemaflow/schemaflow/pkg/config"
	"github.com/schemaflow/schemaflow/pkg/store"
)

func migrateCmd() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Inspect and manage the migration journal",
	}

	migrateCmd.AddCommand(migrateStatusCmd())
	migrateCmd.AddCommand(migrateResetCmd())

	return migrateCmd
}

func migrateStatusCmd() *cobra.Command {
	var migrationsDir string

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "List migrations and their applied state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir := migrationsDir
			if dir == "" {
				resolved, err := resolveConfigForStore()
				if err != nil {
					return err
				}
				dir = resolved
			}

			migrations, err := store.New(dir).Load()
			if err != nil {
				return err
			}

			applied := 0
			for _, m := range migrations {
				if m.Applied() {
					applied++
				}
			}

			pterm.DefaultSection.Println("Migration status")
			pterm.Printfln("Total migrations: %d", len(migrations))
			pterm.Printfln("  Applied: %d", applied)
			pterm.Printfln("  Pending: %d", len(migrations)-applied)

			for _, m := range migrations {
				marker := "○"
				if m.Applied() {
					marker = "✓"
				}
				pterm.Println(fmt.Sprintf("  %s [%s] %s (%s)", marker, m.Meta.ID, m.Meta.Name, m.Meta.Status))
			}
			return nil
		},
	}

	statusCmd.Flags().StringVarP(&migrationsDir, "migrations", "m", "", "path of the migrations directory")

	return statusCmd
}

func migrateResetCmd() *cobra.Command {
	var migrationsDir string
	var force bool

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop all tables and replay every migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			resolved, err := resolveConfig("", migrationsDir)
			if err != nil {
				return err
			}

			if !force {
				pterm.Warning.Println("This drops every table in the target database.")
				ok, _ := pterm.DefaultInteractiveConfirm.Show()
				if !ok {
					return nil
				}
			}

			engine, err := newEngine(ctx, resolved)
			if err != nil {
				return err
			}
			defer engine.Close()

			result, err := engine.Reset(ctx)
			if result != nil {
				for _, table := range result.Dropped {
					pterm.Println("  - " + table)
				}
				for _, m := range result.Replayed {
					pterm.Success.Printfln("[%s] %s replayed", m.Meta.ID, m.Meta.Name)
				}
			}
			if err != nil {
				return err
			}

			pterm.Success.Printfln("Reset complete: %d table(s) dropped, %d migration(s) replayed",
				len(result.Dropped), len(result.Replayed))
			return nil
		},
	}

	resetCmd.Flags().StringVarP(&migrationsDir, "migrations", "m", "", "path of the migrations directory")
	resetCmd.Flags().BoolVarP(&force, "force", "f", false, "skip the confirmation prompt")

	return resetCmd
}

// resolveConfigForStore resolves just the migrations directory; status
// needs no database connection.
func resolveConfigForStore() (string, error) {
	cfg, err := config.Load(flags.ConfigPath())
	if err != nil {
		var notFound config.NotFoundError
		if errors.As(err, &notFound) {
			return "migrations", nil
		}
		return "", err
	}
	return cfg.MigrationsPath(), nil
}
