// SPDX-License-Identifier: Apache-2.0

package flow

import (
	"github.com/pterm/pterm"

	"github.com/schemaflow/schemaflow/pkg/store"
)

// Logger is responsible for logging the steps of a reconciliation.
type Logger interface {
	LogIntrospection(namespace string, tableCount int)
	LogMigrationCreated(m *store.Migration)
	LogMigrationApplied(m *store.Migration)
	LogMigrationFailed(m *store.Migration, err error)

	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type engineLogger struct {
	logger pterm.Logger
}

type noopLogger struct{}

func NewLogger() Logger {
	return &engineLogger{logger: pterm.DefaultLogger}
}

func NewNoopLogger() Logger {
	return &noopLogger{}
}

func (l *engineLogger) LogIntrospection(namespace string, tableCount int) {
	l.logger.Info("introspected database", l.logger.Args(
		"namespace", namespace,
		"tables", tableCount,
	))
}

func (l *engineLogger) LogMigrationCreated(m *store.Migration) {
	l.logger.Info("created migration", l.logger.Args(
		"id", m.Meta.ID,
		"name", m.Meta.Name,
		"status", m.Meta.Status,
	))
}

func (l *engineLogger) LogMigrationApplied(m *store.Migration) {
	l.logger.Info("applied migration", l.logger.Args(
		"id", m.Meta.ID,
		"name", m.Meta.Name,
	))
}

func (l *engineLogger) LogMigrationFailed(m *store.Migration, err error) {
	l.logger.Error("migration failed", l.logger.Args(
		"id", m.Meta.ID,
		"name", m.Meta.Name,
		"error", err,
	))
}

func (l *engineLogger) Info(msg string, args ...any) {
	l.logger.Info(msg, l.logger.Args(args...))
}

func (l *engineLogger) Warn(msg string, args ...any) {
	l.logger.Warn(msg, l.logger.Args(args...))
}

func (l *noopLogger) LogIntrospection(namespace string, tableCount int)       {}
func (l *noopLogger) LogMigrationCreated(m *store.Migration)                  {}
func (l *noopLogger) LogMigrationApplied(m *store.Migration)                  {}
func (l *noopLogger) LogMigrationFailed(m *store.Migration, err error)        {}
func (l *noopLogger) Info(msg string, args ...any)                            {}
func (l *noopLogger) Warn(msg string, args ...any)                            {}
