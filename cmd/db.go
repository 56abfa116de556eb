// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/schemaflow/schemaflow/pkg/flow"
	"github.com/schemaflow/schemaflow/pkg/schema"
)

func dbCmd() *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Work directly against a database, without migration records",
	}

	dbCmd.AddCommand(dbPushCmd())
	dbCmd.AddCommand(dbPullCmd())

	return dbCmd
}

func dbPushCmd() *cobra.Command {
	var schemaPath string
	var acceptDataLoss, forceReset bool

	pushCmd := &cobra.Command{
		Use:   "push",
		Short: "Reconcile the schema document into the database without creating a migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			resolved, err := resolveConfig(schemaPath, "")
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

			result, err := engine.Push(ctx, declared, flow.PushOptions{
				AcceptDataLoss: acceptDataLoss,
				ForceReset:     forceReset,
			})
			if err != nil {
				return err
			}

			printDiffSummary(result.Diff)

			if result.Executed {
				pterm.Success.Println("Pushed schema to database")
			}
			return nil
		},
	}

	pushCmd.Flags().StringVarP(&schemaPath, "schema", "s", "", "path of the schema document")
	pushCmd.Flags().BoolVar(&acceptDataLoss, "accept-data-loss", false, "apply changes even if they may lose data")
	pushCmd.Flags().BoolVar(&forceReset, "force-reset", false, "drop every declared table before reconciling")

	return pushCmd
}

func dbPullCmd() *cobra.Command {
	var output string

	pullCmd := &cobra.Command{
		Use:   "pull",
		Short: "Introspect the database and write it as a schema document",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			resolved, err := resolveConfig("", "")
			if err != nil {
				return err
			}

			engine, err := newEngine(ctx, resolved)
			if err != nil {
				return err
			}
			defer engine.Close()

			live, err := engine.Introspect(ctx)
			if err != nil {
				return err
			}

			raw, err := json.MarshalIndent(live, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding schema document: %w", err)
			}
			if err := os.WriteFile(output, append(raw, '\n'), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}

			pterm.Success.Printfln("Pulled %d table(s) into %s", len(live.Tables), output)
			for _, name := range live.TableNames() {
				pterm.Println(fmt.Sprintf("  + %s (%d columns)", name, len(live.Tables[name].Columns)))
			}
			for _, name := range live.EnumNames() {
				pterm.Println(fmt.Sprintf("  + enum %s %v", name, live.Enums[name]))
			}
			return nil
		},
	}

	pullCmd.Flags().StringVarP(&output, "output", "o", "schema.json", "path of the schema document to write")

	return pullCmd
}
