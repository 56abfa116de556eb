// SPDX-License-Identifier: Apache-2.0

package flow

import (
	"context"

	"github.com/schemaflow/schemaflow/pkg/store"
)

// DeployResult describes a deployment run.
type DeployResult struct {
	// Pending is every migration that was due when the run started
	Pending []*store.Migration

	// Applied are the migrations committed by this run, in order
	Applied []*store.Migration

	// Failed is the migration that stopped the run, if any
	Failed *store.Migration
}

// Deploy applies every pending migration in id order. Each migration runs
// in its own transaction so that earlier successes stay applied when a
// later migration fails; the run stops at the first failure.
func (e *Engine) Deploy(ctx context.Context) (*DeployResult, error) {
	migrations, err := e.store.Load()
	if err != nil {
		return nil, err
	}

	// Total order: nothing older than the newest applied migration is ever
	// applied, even if a stray pending directory predates it.
	var latestApplied string
	for _, m := range migrations {
		if m.Applied() {
			latestApplied = m.Meta.ID
		}
	}

	result := &DeployResult{}
	for _, m := range migrations {
		if !m.Pending() {
			continue
		}
		if m.Meta.ID < latestApplied {
			e.logger.Warn("skipping migration older than the latest applied one", "id", m.Meta.ID)
			continue
		}
		result.Pending = append(result.Pending, m)
	}

	for _, m := range result.Pending {
		if err := e.applyBatch(ctx, m.UpSQL); err != nil {
			e.logger.LogMigrationFailed(m, err)
			result.Failed = m
			if statusErr := e.store.SetStatus(m, store.StatusFailed); statusErr != nil {
				e.logger.Warn("could not mark migration failed", "id", m.Meta.ID, "error", statusErr)
			}
			return result, ApplicationError{MigrationID: m.Meta.ID, Err: err}
		}

		if err := e.store.SetStatus(m, store.StatusApplied); err != nil {
			return result, err
		}
		e.logger.LogMigrationApplied(m)
		result.Applied = append(result.Applied, m)
	}

	return result, nil
}
