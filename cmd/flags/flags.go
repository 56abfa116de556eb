// SPDX-License-Identifier: Apache-2.0

package flags

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func PostgresURL() string {
	return viper.GetString("URL")
}

func Datasource() string {
	return viper.GetString("DATASOURCE")
}

func ConfigPath() string {
	return viper.GetString("CONFIG")
}

func ConnectionFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("url", "", "Postgres URL of the target database")
	cmd.PersistentFlags().String("datasource", "", "Name of a datasource from schemaflow.json")

	viper.BindPFlag("URL", cmd.PersistentFlags().Lookup("url"))
	viper.BindPFlag("DATASOURCE", cmd.PersistentFlags().Lookup("datasource"))
}
