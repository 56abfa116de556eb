// SPDX-License-Identifier: Apache-2.0

package flow

import (
	"context"

	"github.com/schemaflow/schemaflow/pkg/diff"
	"github.com/schemaflow/schemaflow/pkg/plan"
	"github.com/schemaflow/schemaflow/pkg/schema"
	"github.com/schemaflow/schemaflow/pkg/store"
)

// SyncOptions control one reconciliation run.
type SyncOptions struct {
	// Name overrides the generated migration name
	Name string

	// DryRun persists the migration but skips applying it
	DryRun bool

	// Force creates a migration even when one with the same checksum
	// already exists, and accepts data loss
	Force bool

	// AcceptDataLoss allows destructive changes to be applied
	AcceptDataLoss bool
}

// SyncResult describes what a reconciliation did.
type SyncResult struct {
	// InSync is true when the live database already matches the document
	InSync bool

	// Duplicate is the existing migration whose checksum matched, when the
	// run stopped at dedup
	Duplicate *store.Migration

	// Diff is the computed delta
	Diff *diff.SchemaDiff

	// Plan is the rendered DDL
	Plan *plan.Plan

	// Conflicts lists prior migrations whose up SQL mentions a table this
	// diff creates or drops. Advisory only.
	Conflicts []string

	// Migration is the persisted migration, if one was created
	Migration *store.Migration

	// Applied is true when the migration was executed and committed
	Applied bool
}

// Sync runs the reconciliation loop against the declared schema: load the
// journal, introspect, diff, plan, persist, apply. The persisted migration
// is applied in a single transaction; on failure it is marked failed and
// the error surfaces.
func (e *Engine) Sync(ctx context.Context, declared *schema.Schema, opts SyncOptions) (*SyncResult, error) {
	existing, err := e.store.Load()
	if err != nil {
		return nil, err
	}

	live, err := e.Introspect(ctx)
	if err != nil {
		return nil, err
	}
	e.logger.LogIntrospection(e.namespace, len(live.Tables))

	d := diff.Compute(declared, live)
	result := &SyncResult{Diff: d}

	if !d.HasChanges() {
		result.InSync = true
		return result, nil
	}

	p := plan.New(declared, live).Plan(d)
	result.Plan = p

	// Dedup: an identical up script has already been journaled
	checksum := store.Checksum(p.Up)
	if dup := store.FindByChecksum(existing, checksum); dup != nil && !opts.Force {
		result.Duplicate = dup
		return result, nil
	}

	if d.HasDataLoss() && !opts.AcceptDataLoss && !opts.Force {
		return nil, DataLossError{Warnings: d.DataLossWarnings}
	}

	result.Conflicts = FindConflicts(d, existing)

	name := opts.Name
	if name == "" {
		name = MigrationName(d)
	}

	m, err := e.store.Create(name, p.Up, p.Down, Dialect, e.createdBy)
	if err != nil {
		return nil, err
	}
	e.logger.LogMigrationCreated(m)
	result.Migration = m

	if opts.DryRun {
		return result, nil
	}

	if err := e.applyBatch(ctx, m.UpSQL); err != nil {
		e.logger.LogMigrationFailed(m, err)
		if statusErr := e.store.SetStatus(m, store.StatusFailed); statusErr != nil {
			e.logger.Warn("could not mark migration failed", "id", m.Meta.ID, "error", statusErr)
		}
		return nil, ApplicationError{MigrationID: m.Meta.ID, Err: err}
	}

	if err := e.store.SetStatus(m, store.StatusApplied); err != nil {
		return nil, err
	}
	e.logger.LogMigrationApplied(m)
	result.Applied = true

	return result, nil
}
