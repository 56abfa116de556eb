// SPDX-License-Identifier: Apache-2.0

package diff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemaflow/schemaflow/pkg/diff"
	"github.com/schemaflow/schemaflow/pkg/schema"
)

func TestDiffOfIdenticalSchemasIsEmpty(t *testing.T) {
	t.Parallel()

	s := usersSchema(t)

	d := diff.Compute(s, s)
	assert.False(t, d.HasChanges())
	assert.False(t, d.HasDataLoss())
}

func TestDiffCreateTable(t *testing.T) {
	t.Parallel()

	declared := usersSchema(t)
	live := schema.New()

	d := diff.Compute(declared, live)
	require.True(t, d.HasChanges())
	assert.Equal(t, []string{"users"}, d.CreateTables)
	assert.Empty(t, d.DropTables)
	assert.Empty(t, d.DataLossWarnings)
}

func TestDiffDropTable(t *testing.T) {
	t.Parallel()

	declared := schema.New()
	live := tableSchema(t, "orders", map[string]string{"id": "bigint"})

	d := diff.Compute(declared, live)
	require.True(t, d.HasChanges())
	assert.Equal(t, []string{"orders"}, d.DropTables)

	require.Len(t, d.DataLossWarnings, 1)
	assert.Contains(t, d.DataLossWarnings[0], "orders")
}

func TestDiffAddColumn(t *testing.T) {
	t.Parallel()

	declared := tableSchema(t, "users", map[string]string{"id": "bigint", "email": "text", "created_at": "timestamp"})
	live := tableSchema(t, "users", map[string]string{"id": "bigint", "email": "text"})

	d := diff.Compute(declared, live)
	require.True(t, d.HasChanges())
	require.Len(t, d.CreateColumns["users"], 1)
	assert.Equal(t, "created_at", d.CreateColumns["users"][0].Name)
	assert.Empty(t, d.DataLossWarnings)
}

func TestDiffDropColumn(t *testing.T) {
	t.Parallel()

	declared := tableSchema(t, "users", map[string]string{"id": "bigint"})
	live := tableSchema(t, "users", map[string]string{"id": "bigint", "legacy": "text"})

	d := diff.Compute(declared, live)
	assert.Equal(t, []string{"legacy"}, d.DropColumns["users"])

	require.Len(t, d.DataLossWarnings, 1)
	assert.Contains(t, d.DataLossWarnings[0], "users.legacy")
}

func TestDiffNotNullWithoutDefaultIsDataLoss(t *testing.T) {
	t.Parallel()

	declared := tableSchema(t, "users", map[string]string{"id": "bigint"})
	declared.Tables["users"].Columns["must"] = &schema.Column{
		Name:      "must",
		Type:      "text",
		IsNotNull: true,
	}
	live := tableSchema(t, "users", map[string]string{"id": "bigint"})

	d := diff.Compute(declared, live)
	require.Len(t, d.DataLossWarnings, 1)
	assert.Contains(t, d.DataLossWarnings[0], "users.must")

	// A default makes the same addition safe
	def := "''"
	declared.Tables["users"].Columns["must"].Default = &def
	d = diff.Compute(declared, live)
	assert.Empty(t, d.DataLossWarnings)
}

func TestDiffAlterColumn(t *testing.T) {
	t.Parallel()

	declared := tableSchema(t, "users", map[string]string{"id": "bigint", "bio": "text"})
	live := tableSchema(t, "users", map[string]string{"id": "bigint", "bio": "text"})
	live.Tables["users"].Columns["bio"].IsNotNull = true

	d := diff.Compute(declared, live)
	require.Len(t, d.AlterColumns["users"], 1)

	change := d.AlterColumns["users"][0]
	assert.Equal(t, "bio", change.Name)
	assert.True(t, change.From.IsNotNull)
	assert.False(t, change.To.IsNotNull)
}

func TestDiffTypeNarrowingIsDataLoss(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		from, to  string
		narrowing bool
	}{
		{name: "text to varchar", from: "text", to: "varchar", narrowing: true},
		{name: "bigint to integer", from: "bigint", to: "integer", narrowing: true},
		{name: "integer to smallint", from: "integer", to: "smallint", narrowing: true},
		{name: "integer to bigint", from: "integer", to: "bigint", narrowing: false},
		{name: "varchar to text", from: "varchar", to: "text", narrowing: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			declared := tableSchema(t, "t", map[string]string{"c": tt.to})
			live := tableSchema(t, "t", map[string]string{"c": tt.from})

			d := diff.Compute(declared, live)
			require.Len(t, d.AlterColumns["t"], 1)
			assert.Equal(t, tt.narrowing, d.HasDataLoss())
		})
	}
}

func TestDiffVarcharSizeShrinkIsDataLoss(t *testing.T) {
	t.Parallel()

	declared := tableSchema(t, "t", map[string]string{"c": "varchar"})
	live := tableSchema(t, "t", map[string]string{"c": "varchar"})

	small, big := 50, 500
	declared.Tables["t"].Columns["c"].Size = &small
	live.Tables["t"].Columns["c"].Size = &big

	d := diff.Compute(declared, live)
	require.Len(t, d.AlterColumns["t"], 1)
	assert.True(t, d.HasDataLoss())
}

func TestDiffTypeAliasesAreEqual(t *testing.T) {
	t.Parallel()

	declared := tableSchema(t, "t", map[string]string{"a": "timestamp", "b": "float"})
	live := tableSchema(t, "t", map[string]string{"a": "timestamptz", "b": "double"})

	d := diff.Compute(declared, live)
	assert.False(t, d.HasChanges())
}

func TestDiffVarcharDefaultSize(t *testing.T) {
	t.Parallel()

	declared := tableSchema(t, "t", map[string]string{"c": "varchar"})
	live := tableSchema(t, "t", map[string]string{"c": "varchar"})
	size := 255
	live.Tables["t"].Columns["c"].Size = &size

	d := diff.Compute(declared, live)
	assert.False(t, d.HasChanges())
}

func TestDiffEnums(t *testing.T) {
	t.Parallel()

	declared := schema.New()
	declared.Enums = map[string][]string{
		"mood":   {"happy", "sad"},
		"status": {"active"},
	}
	live := schema.New()
	live.Enums = map[string][]string{
		"status": {"active", "retired"},
		"legacy": {"old"},
	}

	d := diff.Compute(declared, live)
	assert.Equal(t, []string{"mood"}, d.CreateEnums)
	assert.Equal(t, []string{"legacy"}, d.DropEnums)

	// Removing a label and dropping an enum both warn
	require.Len(t, d.DataLossWarnings, 2)
	assert.Contains(t, d.DataLossWarnings[0], "retired")
	assert.Contains(t, d.DataLossWarnings[1], "legacy")
}

func TestDiffEnumLabelAdditionIsBenign(t *testing.T) {
	t.Parallel()

	declared := schema.New()
	declared.Enums = map[string][]string{"status": {"active", "retired"}}
	live := schema.New()
	live.Enums = map[string][]string{"status": {"active"}}

	d := diff.Compute(declared, live)
	assert.False(t, d.HasDataLoss())
}

func TestDiffPrimaryKeyChange(t *testing.T) {
	t.Parallel()

	declared := tableSchema(t, "t", map[string]string{"a": "bigint", "b": "bigint"})
	declared.Tables["t"].Columns["a"].IsPrimaryKey = true
	declared.Tables["t"].Columns["a"].IsNotNull = true

	live := tableSchema(t, "t", map[string]string{"a": "bigint", "b": "bigint"})
	live.Tables["t"].Columns["b"].IsPrimaryKey = true
	live.Tables["t"].Columns["b"].IsNotNull = true

	d := diff.Compute(declared, live)
	assert.Equal(t, []string{"t"}, d.AlterTables)
}

func TestDiffDeterministicOrder(t *testing.T) {
	t.Parallel()

	declared := schema.New()
	for _, name := range []string{"zebra", "apple", "mango"} {
		declared.Tables[name] = &schema.Table{
			Columns: map[string]*schema.Column{"id": {Name: "id", Type: "bigint"}},
		}
	}
	live := schema.New()

	for i := 0; i < 10; i++ {
		d := diff.Compute(declared, live)
		assert.Equal(t, []string{"apple", "mango", "zebra"}, d.CreateTables)
	}
}

// usersSchema is the canonical two column users table.
func usersSchema(t *testing.T) *schema.Schema {
	t.Helper()

	size := 255
	s := schema.New()
	s.Tables["users"] = &schema.Table{
		Columns: map[string]*schema.Column{
			"id": {
				Name:         "id",
				Type:         "bigint",
				IsPrimaryKey: true,
				IsNotNull:    true,
			},
			"email": {
				Name:      "email",
				Type:      "varchar",
				Size:      &size,
				IsNotNull: true,
				IsUnique:  true,
			},
		},
	}
	return s
}

func tableSchema(t *testing.T, name string, columns map[string]string) *schema.Schema {
	t.Helper()

	s := schema.New()
	table := &schema.Table{Columns: map[string]*schema.Column{}}
	for colName, colType := range columns {
		table.Columns[colName] = &schema.Column{Name: colName, Type: colType}
	}
	s.Tables[name] = table
	return s
}
