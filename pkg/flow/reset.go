// SPDX-License-Identifier: Apache-2.0

package flow

import (
	"context"
	"fmt"

	"github.com/schemaflow/schemaflow/pkg/store"
)

// ResetResult describes a reset run.
type ResetResult struct {
	// Dropped are the live tables that were dropped
	Dropped []string

	// Replayed are the migrations committed during the replay, in order
	Replayed []*store.Migration

	// Failed is the migration that stopped the replay, if any
	Failed *store.Migration
}

// Reset drops every live table with CASCADE and replays the whole journal
// in id order, one transaction per migration, stopping at the first
// failure.
func (e *Engine) Reset(ctx context.Context) (*ResetResult, error) {
	live, err := e.Introspect(ctx)
	if err != nil {
		return nil, err
	}

	result := &ResetResult{}
	for _, table := range live.TableNames() {
		e.logger.Info("dropping table", "table", table)
		if _, err := e.conn.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE;", table)); err != nil {
			return nil, ApplicationError{Err: err}
		}
		result.Dropped = append(result.Dropped, table)
	}

	for _, name := range live.EnumNames() {
		if _, err := e.conn.ExecContext(ctx, fmt.Sprintf("DROP TYPE IF EXISTS %s CASCADE;", name)); err != nil {
			return nil, ApplicationError{Err: err}
		}
	}

	migrations, err := e.store.Load()
	if err != nil {
		return nil, err
	}

	for _, m := range migrations {
		if err := e.applyBatch(ctx, m.UpSQL); err != nil {
			e.logger.LogMigrationFailed(m, err)
			result.Failed = m
			return result, ApplicationError{MigrationID: m.Meta.ID, Err: err}
		}

		// Replaying an already applied migration leaves its terminal
		// status untouched; pending ones graduate to applied.
		if m.Pending() {
			if err := e.store.SetStatus(m, store.StatusApplied); err != nil {
				return result, err
			}
		}
		e.logger.LogMigrationApplied(m)
		result.Replayed = append(result.Replayed, m)
	}

	return result, nil
}
