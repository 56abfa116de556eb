// SPDX-License-Identifier: Apache-2.0

package db

import (
	"context"
	"database/sql"
)

// FakeDB is a fake implementation of `DB`. Statements passed to ExecContext
// are recorded instead of executed; WithTransaction does not call its
// function.
type FakeDB struct {
	// Statements holds every query passed to ExecContext, in order
	Statements []string
}

func (db *FakeDB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	db.Statements = append(db.Statements, query)
	return nil, nil
}

func (db *FakeDB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return nil, nil
}

func (db *FakeDB) WithTransaction(ctx context.Context, f func(context.Context, *sql.Tx) error) error {
	return nil
}

func (db *FakeDB) Ping(ctx context.Context) error {
	return nil
}

func (db *FakeDB) Close() error {
	return nil
}
