// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/schemaflow/schemaflow/pkg/schema"
)

func schemaCmd() *cobra.Command {
	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "Work with schema documents",
	}

	schemaCmd.AddCommand(schemaValidateCmd())

	return schemaCmd
}

func schemaValidateCmd() *cobra.Command {
	var schemaPath string

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a schema document without touching a database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := schemaPath
			if path == "" {
				path = "schema.json"
			}

			declared, err := schema.ReadFile(path)
			if err != nil {
				return err
			}

			pterm.Success.Printfln("%s is valid", path)
			pterm.Printfln("  Tables: %d", len(declared.Tables))
			for _, name := range declared.TableNames() {
				pterm.Println(fmt.Sprintf("    %s (%d columns)", name, len(declared.Tables[name].Columns)))
			}
			if len(declared.Enums) > 0 {
				pterm.Printfln("  Enums: %d", len(declared.Enums))
			}
			return nil
		},
	}

	validateCmd.Flags().StringVarP(&schemaPath, "schema", "s", "", "path of the schema document")

	return validateCmd
}
