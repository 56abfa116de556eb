// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/schemaflow/schemaflow/cmd/flags"
	"github.com/schemaflow/schemaflow/pkg/config"
)

func initCmd() *cobra.Command {
	var output, datasource string

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default schemaflow.json configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Default()

			if name := flags.Datasource(); name != "" {
				datasource = name
			}

			if url := flags.PostgresURL(); url != "" {
				cfg.Datasources[datasource] = config.Datasource{
					URL:     url,
					Schemas: []string{"public"},
				}
			}

			if err := cfg.Write(output); err != nil {
				return fmt.Errorf("writing configuration: %w", err)
			}

			pterm.Success.Printfln("Created %s", output)
			pterm.Println("Next steps:")
			pterm.Println("  1. Edit " + output + " to configure the database URL")
			pterm.Println("  2. Create your schema document under schema/")
			pterm.Println("  3. Run: schemaflow sync --datasource " + datasource)
			return nil
		},
	}

	initCmd.Flags().StringVarP(&output, "output", "o", config.DefaultFileName, "path of the configuration file to create")
	initCmd.Flags().StringVarP(&datasource, "name", "n", "default", "name of the initial datasource")

	return initCmd
}
