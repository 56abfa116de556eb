// SPDX-License-Identifier: Apache-2.0

package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/schemaflow/schemaflow/pkg/flow"
	"github.com/schemaflow/schemaflow/pkg/store"
)

// The version of postgres against which the tests are run
// if the POSTGRES_VERSION environment variable is not set.
const defaultPostgresVersion = "15.3"

// tConnStr holds the connection string to the test container created in
// SharedTestMain. Empty when no container runtime was available; tests
// that need a database skip in that case.
var tConnStr string

// SharedTestMain starts a postgres container to be used by all tests in a
// package. Each test then connects to the container and creates a new
// database.
func SharedTestMain(m *testing.M) {
	ctx := context.Background()

	waitForLogs := wait.
		ForLog("database system is ready to accept connections").
		WithOccurrence(2).
		WithStartupTimeout(5 * time.Second)

	pgVersion := os.Getenv("POSTGRES_VERSION")
	if pgVersion == "" {
		pgVersion = defaultPostgresVersion
	}

	ctr, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:"+pgVersion),
		testcontainers.WithWaitStrategy(waitForLogs),
	)
	if err != nil {
		log.Printf("No container runtime available, skipping database tests: %v", err)
		os.Exit(m.Run())
	}

	tConnStr, err = ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		os.Exit(1)
	}

	exitCode := m.Run()

	if err := ctr.Terminate(ctx); err != nil {
		log.Printf("Failed to terminate container: %v", err)
	}

	os.Exit(exitCode)
}

// WithConnectionToContainer creates a fresh database in the shared
// container and hands the test a connection to it plus its URL.
func WithConnectionToContainer(t *testing.T, fn func(*sql.DB, string)) {
	t.Helper()

	db, connStr, _ := setupTestDatabase(t)

	fn(db, connStr)
}

// WithEngineAndConnectionToContainer creates a fresh database plus a flow
// engine journaling into a temporary directory.
func WithEngineAndConnectionToContainer(t *testing.T, fn func(*flow.Engine, *sql.DB)) {
	WithEngineInStoreAndConnectionToContainer(t, store.New(t.TempDir()), fn)
}

// WithEngineInStoreAndConnectionToContainer creates a fresh database plus
// a flow engine journaling into the given store.
func WithEngineInStoreAndConnectionToContainer(t *testing.T, st *store.Store, fn func(*flow.Engine, *sql.DB)) {
	t.Helper()
	ctx := context.Background()

	db, connStr, _ := setupTestDatabase(t)

	engine, err := flow.New(ctx, connStr, "public", st)
	if err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() {
		if err := engine.Close(); err != nil {
			t.Fatalf("Failed to close engine connection: %v", err)
		}
	})

	fn(engine, db)
}

// setupTestDatabase creates a new database in the test container and returns:
// - a connection to the new database
// - the connection string to the new database
// - the name of the new database
func setupTestDatabase(t *testing.T) (*sql.DB, string, string) {
	t.Helper()
	ctx := context.Background()

	if tConnStr == "" {
		t.Skip("no container runtime available")
	}

	tDB, err := sql.Open("postgres", tConnStr)
	if err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() {
		if err := tDB.Close(); err != nil {
			t.Fatalf("Failed to close database connection: %v", err)
		}
	})

	dbName := randomDBName()

	_, err = tDB.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE %s", pq.QuoteIdentifier(dbName)))
	if err != nil {
		t.Fatal(err)
	}

	u, err := url.Parse(tConnStr)
	if err != nil {
		t.Fatal(err)
	}

	u.Path = "/" + dbName
	connStr := u.String()

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Fatalf("Failed to close database connection: %v", err)
		}
	})

	return db, connStr, dbName
}
