// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/schemaflow/schemaflow/pkg/flow"
)

func deployCmd() *cobra.Command {
	var migrationsDir, env string
	var yes bool

	deployCmd := &cobra.Command{
		Use:   "deploy",
		Short: "Apply pending migrations to a target environment",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			resolved, err := resolveConfig("", migrationsDir)
			if err != nil {
				return err
			}

			// Production deployments require explicit confirmation
			if strings.EqualFold(env, "production") && !yes {
				return flow.ConfirmationRequiredError{Environment: env}
			}

			engine, err := newEngine(ctx, resolved)
			if err != nil {
				return err
			}
			defer engine.Close()

			result, err := engine.Deploy(ctx)
			if result != nil {
				for _, m := range result.Applied {
					pterm.Success.Printfln("[%s] %s applied", m.Meta.ID, m.Meta.Name)
				}
				if result.Failed != nil {
					pterm.Error.Printfln("[%s] %s failed", result.Failed.Meta.ID, result.Failed.Meta.Name)
				}
			}
			if err != nil {
				return err
			}

			if len(result.Pending) == 0 {
				pterm.Success.Println("No pending migrations to apply")
				return nil
			}

			pterm.Success.Printfln("Applied %d migration(s)", len(result.Applied))
			return nil
		},
	}

	deployCmd.Flags().StringVarP(&migrationsDir, "migrations", "m", "", "path of the migrations directory")
	deployCmd.Flags().StringVarP(&env, "env", "e", "", "name of the target environment")
	deployCmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm a production deployment")

	return deployCmd
}
