// SPDX-License-Identifier: Apache-2.0

package flow

import (
	"context"
	"database/sql"

	"github.com/schemaflow/schemaflow/pkg/db"
	"github.com/schemaflow/schemaflow/pkg/introspect"
	"github.com/schemaflow/schemaflow/pkg/schema"
	"github.com/schemaflow/schemaflow/pkg/store"
)

// Dialect is the only SQL dialect the engine produces.
const Dialect = "postgresql"

// Engine orchestrates the reconciliation loop: introspect, diff, plan,
// persist, apply. It owns the database connection for the duration of an
// invocation; no other component issues DDL.
type Engine struct {
	conn db.DB

	// namespace is the database schema being reconciled
	namespace string

	store  *store.Store
	logger Logger

	// createdBy is recorded on new migrations; resolved by the caller
	createdBy *string
}

// New opens a connection for the given URL, verifies it with a trivial
// round-trip and returns an Engine acting on the given migration store.
func New(ctx context.Context, pgURL, namespace string, st *store.Store, opts ...Option) (*Engine, error) {
	engineOpts := &options{logger: NewNoopLogger()}
	for _, o := range opts {
		o(engineOpts)
	}

	conn, err := db.Connect(ctx, pgURL, namespace)
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	return &Engine{
		conn:      conn,
		namespace: namespace,
		store:     st,
		logger:    engineOpts.logger,
		createdBy: engineOpts.createdBy,
	}, nil
}

// Store returns the migration store the engine acts on.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Conn returns the underlying database connection.
func (e *Engine) Conn() db.DB {
	return e.conn
}

func (e *Engine) Close() error {
	return e.conn.Close()
}

// Introspect reads the live database into a transient schema snapshot.
func (e *Engine) Introspect(ctx context.Context) (*schema.Schema, error) {
	return introspect.NewReader(e.conn, e.namespace).Read(ctx)
}

// applyBatch executes a SQL script as a single transactional batch,
// committing on success and rolling back on any failure.
func (e *Engine) applyBatch(ctx context.Context, batch string) error {
	return e.conn.WithTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, batch)
		return err
	})
}
