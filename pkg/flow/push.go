// SPDX-License-Identifier: Apache-2.0

package flow

import (
	"context"
	"fmt"

	"github.com/schemaflow/schemaflow/pkg/diff"
	"github.com/schemaflow/schemaflow/pkg/plan"
	"github.com/schemaflow/schemaflow/pkg/schema"
)

// PushOptions control a direct push, which reconciles without creating a
// migration record.
type PushOptions struct {
	// AcceptDataLoss allows destructive changes to be applied
	AcceptDataLoss bool

	// ForceReset drops every declared table before reconciling
	ForceReset bool
}

// PushResult describes a direct push.
type PushResult struct {
	InSync bool
	Diff   *diff.SchemaDiff
	Plan   *plan.Plan

	// Executed is true when the DDL batch was committed
	Executed bool
}

// Push reconciles the declared schema straight into the database. No
// migration is journaled; the DDL runs as one transactional batch.
func (e *Engine) Push(ctx context.Context, declared *schema.Schema, opts PushOptions) (*PushResult, error) {
	if opts.ForceReset {
		for _, table := range declared.TableNames() {
			e.logger.Info("dropping table", "table", table)
			if _, err := e.conn.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE;", table)); err != nil {
				return nil, ApplicationError{Err: err}
			}
		}
	}

	live, err := e.Introspect(ctx)
	if err != nil {
		return nil, err
	}
	e.logger.LogIntrospection(e.namespace, len(live.Tables))

	d := diff.Compute(declared, live)
	result := &PushResult{Diff: d}

	if !d.HasChanges() {
		result.InSync = true
		return result, nil
	}

	if d.HasDataLoss() && !opts.AcceptDataLoss {
		return nil, DataLossError{Warnings: d.DataLossWarnings}
	}

	p := plan.New(declared, live).Plan(d)
	result.Plan = p

	if err := e.applyBatch(ctx, p.Up); err != nil {
		return nil, ApplicationError{Err: err}
	}
	result.Executed = true

	return result, nil
}
