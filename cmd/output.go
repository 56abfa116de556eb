// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"slices"

	"github.com/pterm/pterm"

	"github.com/schemaflow/schemaflow/pkg/diff"
)

// printDiffSummary renders the computed delta as one line per change:
// + created, ~ altered, - dropped, ! data loss.
func printDiffSummary(d *diff.SchemaDiff) {
	if !d.HasChanges() {
		pterm.Success.Println("Database is in sync with the schema document")
		return
	}

	pterm.DefaultSection.Println("Schema diff")

	for _, table := range d.CreateTables {
		pterm.Println(pterm.Green("  + " + table))
	}
	for _, table := range d.AlterTables {
		pterm.Println(pterm.Yellow("  ~ " + table))
	}
	for _, table := range d.DropTables {
		pterm.Println(pterm.Red("  - " + table))
	}

	for _, table := range sortedKeys(d.CreateColumns) {
		for _, col := range d.CreateColumns[table] {
			pterm.Println(pterm.Green(fmt.Sprintf("  + %s.%s", table, col.Name)))
		}
	}
	for _, table := range sortedKeys(d.AlterColumns) {
		for _, change := range d.AlterColumns[table] {
			pterm.Println(pterm.Yellow(fmt.Sprintf("  ~ %s.%s", table, change.Name)))
		}
	}
	for _, table := range sortedKeys(d.DropColumns) {
		for _, col := range d.DropColumns[table] {
			pterm.Println(pterm.Red(fmt.Sprintf("  - %s.%s", table, col)))
		}
	}

	for _, name := range d.CreateEnums {
		pterm.Println(pterm.Green("  + enum " + name))
	}
	for _, name := range d.DropEnums {
		pterm.Println(pterm.Red("  - enum " + name))
	}

	printDataLossWarnings(d)
}

// printDataLossWarnings renders the warning banner listing every affected
// table and column.
func printDataLossWarnings(d *diff.SchemaDiff) {
	if !d.HasDataLoss() {
		return
	}

	pterm.Warning.Println("Data loss may occur:")
	for _, warning := range d.DataLossWarnings {
		pterm.Println(pterm.Red("  ! " + warning))
	}
}

func printConflicts(conflicts []string) {
	if len(conflicts) == 0 {
		return
	}

	pterm.Warning.Println("Potential conflicts detected; these existing migrations affect the same tables:")
	for _, name := range conflicts {
		pterm.Println("  - " + name)
	}
	pterm.Println("  The new migration is created with the combined changes. Review and merge if necessary.")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
