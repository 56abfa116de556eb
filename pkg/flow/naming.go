// SPDX-License-Identifier: Apache-2.0

package flow

import (
	"strings"

	"github.com/schemaflow/schemaflow/pkg/diff"
	"github.com/schemaflow/schemaflow/pkg/store"
)

// MigrationName derives a migration name from the tables a diff touches:
// "add-users", "remove-orders", "add-users-remove-orders", or
// "update-schema" when only finer grained changes are present.
func MigrationName(d *diff.SchemaDiff) string {
	var parts []string

	if len(d.CreateTables) > 0 {
		parts = append(parts, "add-"+strings.Join(d.CreateTables, "-and-"))
	}
	if len(d.DropTables) > 0 {
		parts = append(parts, "remove-"+strings.Join(d.DropTables, "-and-"))
	}

	if len(parts) == 0 {
		return "update-schema"
	}
	return strings.Join(parts, "-")
}

// FindConflicts reports prior migrations whose up SQL mentions a table
// this diff creates or drops. The check is a substring match, not a
// semantic analysis; it is an advisory for review, never a block.
func FindConflicts(d *diff.SchemaDiff, existing []*store.Migration) []string {
	tables := make([]string, 0, len(d.CreateTables)+len(d.DropTables))
	tables = append(tables, d.CreateTables...)
	tables = append(tables, d.DropTables...)

	var conflicts []string
	for _, m := range existing {
		for _, table := range tables {
			if strings.Contains(m.UpSQL, table) {
				conflicts = append(conflicts, m.Meta.Name)
				break
			}
		}
	}
	return conflicts
}
