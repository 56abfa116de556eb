// SPDX-License-Identifier: Apache-2.0

package flow

import (
	"fmt"
	"strings"
)

// ApplicationError reports DDL that failed at the server. A failed batch
// has been rolled back; Sync and Deploy also mark the failing migration
// failed, while Reset leaves its status unchanged.
type ApplicationError struct {
	MigrationID string
	Err         error
}

func (e ApplicationError) Error() string {
	if e.MigrationID != "" {
		return fmt.Sprintf("applying migration %s: %s", e.MigrationID, e.Err)
	}
	return fmt.Sprintf("applying DDL: %s", e.Err)
}

func (e ApplicationError) Unwrap() error {
	return e.Err
}

// DataLossError reports destructive changes that were not explicitly
// accepted.
type DataLossError struct {
	Warnings []string
}

func (e DataLossError) Error() string {
	return fmt.Sprintf("refusing to apply changes that may lose data:\n  %s",
		strings.Join(e.Warnings, "\n  "))
}

// ConfirmationRequiredError reports a destructive action against a
// production environment without explicit confirmation.
type ConfirmationRequiredError struct {
	Environment string
}

func (e ConfirmationRequiredError) Error() string {
	return fmt.Sprintf("deploying to %q requires explicit confirmation; pass --yes", e.Environment)
}
