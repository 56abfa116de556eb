// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/schemaflow/schemaflow/pkg/flow"
	"github.com/schemaflow/schemaflow/pkg/schema"
)

func syncCmd() *cobra.Command {
	var schemaPath, migrationsDir, name string
	var dryRun, force, acceptDataLoss bool

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the schema document into a new migration and apply it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			resolved, err := resolveConfig(schemaPath, migrationsDir)
			if err != nil {
				return err
			}

			declared, err := schema.ReadFile(resolved.SchemaPath)
			if err != nil {
				return err
			}

			engine, err := newEngine(ctx, resolved)
			if err != nil {
				return err
			}
			defer engine.Close()

			result, err := engine.Sync(ctx, declared, flow.SyncOptions{
				Name:           name,
				DryRun:         dryRun,
				Force:          force,
				AcceptDataLoss: acceptDataLoss,
			})
			if err != nil {
				return err
			}

			printDiffSummary(result.Diff)
			printConflicts(result.Conflicts)

			switch {
			case result.InSync:
				return nil
			case result.Duplicate != nil:
				pterm.Info.Printfln("Migration already exists with the same changes: %s", result.Duplicate.Meta.Name)
				pterm.Println("  Use --force to create another one")
				return nil
			}

			m := result.Migration
			pterm.Success.Printfln("Created migration %s_%s", m.Meta.ID, m.Meta.Name)
			pterm.Println(fmt.Sprintf("  %s/up.sql", m.Dir))
			pterm.Println(fmt.Sprintf("  %s/down.sql", m.Dir))
			pterm.Println("  Status: " + string(m.Meta.Status))

			if dryRun {
				pterm.Info.Println("Dry run: skipping database application")
				return nil
			}

			if result.Applied {
				pterm.Success.Println("Applied migration successfully")
			}
			return nil
		},
	}

	syncCmd.Flags().StringVarP(&schemaPath, "schema", "s", "", "path of the schema document")
	syncCmd.Flags().StringVarP(&migrationsDir, "migrations", "m", "", "path of the migrations directory")
	syncCmd.Flags().StringVarP(&name, "name", "n", "", "name for the new migration")
	syncCmd.Flags().BoolVar(&dryRun, "dry-run", false, "create the migration but do not apply it")
	syncCmd.Flags().BoolVarP(&force, "force", "f", false, "create the migration even if an identical one exists")
	syncCmd.Flags().BoolVar(&acceptDataLoss, "accept-data-loss", false, "apply changes even if they may lose data")

	return syncCmd
}
