// SPDX-License-Identifier: Apache-2.0

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cloudflare/backoff"
	"github.com/lib/pq"
)

const (
	lockNotAvailableErrorCode pq.ErrorCode = "55P03"
	maxBackoffDuration                     = 1 * time.Minute
	backoffInterval                        = 1 * time.Second
)

// DB is the connection surface the engine uses. The migrations directory
// and schema document never touch it; only the introspector and the
// application engine issue statements.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	WithTransaction(ctx context.Context, f func(context.Context, *sql.Tx) error) error
	Ping(ctx context.Context) error
	Close() error
}

// ConnectionError reports a failure to reach the database.
type ConnectionError struct {
	Err error
}

func (e ConnectionError) Error() string {
	return fmt.Sprintf("cannot reach database: %s", e.Err)
}

func (e ConnectionError) Unwrap() error {
	return e.Err
}

// Connect opens a connection for the given URL and verifies liveness with
// a trivial round-trip. URLs are expanded to DSN form when possible so that
// a search_path for the target schema can be appended.
func Connect(ctx context.Context, pgURL, searchPath string) (*RDB, error) {
	dsn, err := pq.ParseURL(pgURL)
	if err != nil {
		dsn = pgURL
	}

	if searchPath != "" {
		dsn += " search_path=" + searchPath
	}

	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, ConnectionError{Err: err}
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, ConnectionError{Err: err}
	}

	return &RDB{DB: conn}, nil
}

// RDB wraps a *sql.DB and retries queries using an exponential backoff
// (with jitter) on lock_timeout errors.
type RDB struct {
	DB *sql.DB
}

// ExecContext wraps sql.DB.ExecContext, retrying queries on lock_timeout errors.
func (db *RDB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	b := backoff.New(maxBackoffDuration, backoffInterval)

	for {
		res, err := db.DB.ExecContext(ctx, query, args...)
		if err == nil {
			return res, nil
		}

		pqErr := &pq.Error{}
		if errors.As(err, &pqErr) && pqErr.Code == lockNotAvailableErrorCode {
			if err := sleepCtx(ctx, b.Duration()); err != nil {
				return nil, err
			}
			continue
		}

		return nil, err
	}
}

// QueryContext wraps sql.DB.QueryContext, retrying queries on lock_timeout errors.
func (db *RDB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	b := backoff.New(maxBackoffDuration, backoffInterval)

	for {
		rows, err := db.DB.QueryContext(ctx, query, args...)
		if err == nil {
			return rows, nil
		}

		pqErr := &pq.Error{}
		if errors.As(err, &pqErr) && pqErr.Code == lockNotAvailableErrorCode {
			if err := sleepCtx(ctx, b.Duration()); err != nil {
				return nil, err
			}
			continue
		}

		return nil, err
	}
}

// WithTransaction runs `f` inside a BEGIN/COMMIT pair, rolling back if `f`
// returns an error. DDL errors are not retried; a statement that failed once
// is too coarse-grained to replay safely.
func (db *RDB) WithTransaction(ctx context.Context, f func(context.Context, *sql.Tx) error) error {
	tx, err := db.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := f(ctx, tx); err != nil {
		if errRollback := tx.Rollback(); errRollback != nil {
			return errors.Join(err, errRollback)
		}
		return err
	}

	return tx.Commit()
}

// Ping verifies the connection with a trivial round-trip.
func (db *RDB) Ping(ctx context.Context) error {
	rows, err := db.DB.QueryContext(ctx, "SELECT 1")
	if err != nil {
		return ConnectionError{Err: err}
	}
	return rows.Close()
}

func (db *RDB) Close() error {
	return db.DB.Close()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

