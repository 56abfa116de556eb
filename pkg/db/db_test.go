// SPDX-License-Identifier: Apache-2.0

package db_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemaflow/schemaflow/pkg/db"
	"github.com/schemaflow/schemaflow/pkg/testutils"
)

func TestConnectAndPing(t *testing.T) {
	testutils.WithConnectionToContainer(t, func(_ *sql.DB, connStr string) {
		ctx := context.Background()

		conn, err := db.Connect(ctx, connStr, "public")
		require.NoError(t, err)
		defer conn.Close()

		require.NoError(t, conn.Ping(ctx))
	})
}

func TestConnectBadURL(t *testing.T) {
	ctx := context.Background()

	_, err := db.Connect(ctx, "postgres://nobody@localhost:1/nothing?sslmode=disable&connect_timeout=1", "public")
	var connErr db.ConnectionError
	require.ErrorAs(t, err, &connErr)
}

func TestWithTransactionCommits(t *testing.T) {
	testutils.WithConnectionToContainer(t, func(raw *sql.DB, connStr string) {
		ctx := context.Background()

		conn, err := db.Connect(ctx, connStr, "public")
		require.NoError(t, err)
		defer conn.Close()

		err = conn.WithTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, "CREATE TABLE committed (id BIGINT)")
			return err
		})
		require.NoError(t, err)

		var count int
		require.NoError(t, raw.QueryRow(
			"SELECT count(*) FROM information_schema.tables WHERE table_name = 'committed'").Scan(&count))
		assert.Equal(t, 1, count)
	})
}

func TestWithTransactionRollsBack(t *testing.T) {
	testutils.WithConnectionToContainer(t, func(raw *sql.DB, connStr string) {
		ctx := context.Background()

		conn, err := db.Connect(ctx, connStr, "public")
		require.NoError(t, err)
		defer conn.Close()

		err = conn.WithTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, "CREATE TABLE doomed (id BIGINT)"); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, "THIS IS NOT SQL")
			return err
		})
		require.Error(t, err)

		var count int
		require.NoError(t, raw.QueryRow(
			"SELECT count(*) FROM information_schema.tables WHERE table_name = 'doomed'").Scan(&count))
		assert.Equal(t, 0, count)
	})
}

func TestFakeDBRecordsStatements(t *testing.T) {
	t.Parallel()

	fake := &db.FakeDB{}
	ctx := context.Background()

	_, err := fake.ExecContext(ctx, "DROP TABLE IF EXISTS a CASCADE;")
	require.NoError(t, err)
	_, err = fake.ExecContext(ctx, "DROP TABLE IF EXISTS b CASCADE;")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"DROP TABLE IF EXISTS a CASCADE;",
		"DROP TABLE IF EXISTS b CASCADE;",
	}, fake.Statements)
}
