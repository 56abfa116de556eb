// SPDX-License-Identifier: Apache-2.0

package introspect_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemaflow/schemaflow/pkg/db"
	"github.com/schemaflow/schemaflow/pkg/introspect"
	"github.com/schemaflow/schemaflow/pkg/schema"
	"github.com/schemaflow/schemaflow/pkg/testutils"
)

func TestReadEmptyDatabase(t *testing.T) {
	testutils.WithConnectionToContainer(t, func(conn *sql.DB, connStr string) {
		live := read(t, connStr)

		assert.Empty(t, live.Tables)
		assert.Empty(t, live.Enums)
		assert.Equal(t, "postgresql", live.Dialect)
	})
}

func TestReadTablesAndColumns(t *testing.T) {
	testutils.WithConnectionToContainer(t, func(conn *sql.DB, connStr string) {
		mustExec(t, conn, `CREATE TABLE users (
			id BIGINT PRIMARY KEY,
			email VARCHAR(255) NOT NULL UNIQUE,
			bio TEXT,
			joined TIMESTAMP WITH TIME ZONE DEFAULT now()
		)`)

		live := read(t, connStr)

		users := live.GetTable("users")
		require.NotNil(t, users)
		assert.Equal(t, []string{"bio", "email", "id", "joined"}, users.ColumnNames())

		id := users.GetColumn("id")
		assert.Equal(t, "bigint", id.Type)
		assert.True(t, id.IsPrimaryKey)
		assert.True(t, id.IsNotNull)
		assert.Equal(t, []string{"id"}, users.PrimaryKey())

		email := users.GetColumn("email")
		assert.Equal(t, "varchar", email.Type)
		require.NotNil(t, email.Size)
		assert.Equal(t, 255, *email.Size)
		assert.True(t, email.IsNotNull)
		assert.True(t, email.IsUnique)

		bio := users.GetColumn("bio")
		assert.Equal(t, "text", bio.Type)
		assert.False(t, bio.IsNotNull)

		joined := users.GetColumn("joined")
		assert.Equal(t, "timestamptz", joined.Type)
		require.NotNil(t, joined.Default)
		assert.Contains(t, *joined.Default, "now()")
	})
}

func TestReadTypeTags(t *testing.T) {
	testutils.WithConnectionToContainer(t, func(conn *sql.DB, connStr string) {
		mustExec(t, conn, `CREATE TABLE samples (
			a DOUBLE PRECISION,
			b NUMERIC(10, 2),
			c TIMESTAMP WITHOUT TIME ZONE,
			d TEXT[],
			e CHAR(3)
		)`)

		live := read(t, connStr)

		samples := live.GetTable("samples")
		require.NotNil(t, samples)
		assert.Equal(t, "double", samples.GetColumn("a").Type)
		assert.Equal(t, "decimal", samples.GetColumn("b").Type)
		assert.Equal(t, "timestamp", samples.GetColumn("c").Type)

		d := samples.GetColumn("d")
		assert.Equal(t, "text", d.Type)
		require.NotNil(t, d.ArrayDimensions)
		assert.Equal(t, 1, *d.ArrayDimensions)

		assert.Equal(t, "char", samples.GetColumn("e").Type)
	})
}

func TestReadCompositePrimaryKey(t *testing.T) {
	testutils.WithConnectionToContainer(t, func(conn *sql.DB, connStr string) {
		mustExec(t, conn, `CREATE TABLE membership (
			group_id BIGINT,
			user_id BIGINT,
			PRIMARY KEY (group_id, user_id)
		)`)

		live := read(t, connStr)

		membership := live.GetTable("membership")
		require.NotNil(t, membership)
		assert.Equal(t, []string{"group_id", "user_id"}, membership.PrimaryKey())
	})
}

func TestReadEnums(t *testing.T) {
	testutils.WithConnectionToContainer(t, func(conn *sql.DB, connStr string) {
		mustExec(t, conn, `CREATE TYPE mood AS ENUM ('happy', 'neutral', 'sad')`)
		mustExec(t, conn, `CREATE TABLE journal (id BIGINT PRIMARY KEY, feeling mood)`)

		live := read(t, connStr)

		// Labels come back in catalog order, not alphabetical
		assert.Equal(t, []string{"happy", "neutral", "sad"}, live.Enums["mood"])

		feeling := live.GetTable("journal").GetColumn("feeling")
		assert.Equal(t, "mood", feeling.Type)
	})
}

func TestReadIgnoresViews(t *testing.T) {
	testutils.WithConnectionToContainer(t, func(conn *sql.DB, connStr string) {
		mustExec(t, conn, `CREATE TABLE base (id BIGINT PRIMARY KEY)`)
		mustExec(t, conn, `CREATE VIEW base_view AS SELECT * FROM base`)

		live := read(t, connStr)

		assert.NotNil(t, live.GetTable("base"))
		assert.Nil(t, live.GetTable("base_view"))
	})
}

func read(t *testing.T, connStr string) *schema.Schema {
	t.Helper()
	ctx := context.Background()

	conn, err := db.Connect(ctx, connStr, "public")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	live, err := introspect.NewReader(conn, "public").Read(ctx)
	require.NoError(t, err)
	return live
}

func mustExec(t *testing.T, conn *sql.DB, query string) {
	t.Helper()

	_, err := conn.Exec(query)
	require.NoError(t, err)
}
