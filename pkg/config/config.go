// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultFileName is the configuration file looked up when no explicit
// path is given.
const DefaultFileName = "schemaflow.json"

// CurrentVersion is the only configuration version this build reads.
const CurrentVersion = 1

type NotFoundError struct {
	Path string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("configuration file not found: %s", e.Path)
}

type ParseError struct {
	Path string
	Err  error
}

func (e ParseError) Error() string {
	return fmt.Sprintf("parsing configuration %s: %s", e.Path, e.Err)
}

func (e ParseError) Unwrap() error {
	return e.Err
}

type VersionMismatchError struct {
	Expected int
	Found    int
}

func (e VersionMismatchError) Error() string {
	return fmt.Sprintf("configuration version mismatch: expected %d, found %d", e.Expected, e.Found)
}

type DatasourceNotFoundError struct {
	Name string
}

func (e DatasourceNotFoundError) Error() string {
	return fmt.Sprintf("datasource %q not found in configuration", e.Name)
}

type InvalidConfigError struct {
	Reason string
}

func (e InvalidConfigError) Error() string {
	return "invalid configuration: " + e.Reason
}

// Datasource names a database and the schemas managed in it.
type Datasource struct {
	URL     string   `json:"url"`
	Schemas []string `json:"schemas,omitempty"`
}

// Namespace returns the first managed schema, public by default.
func (d Datasource) Namespace() string {
	if len(d.Schemas) > 0 {
		return d.Schemas[0]
	}
	return "public"
}

// SchemaConfig locates the declared schema document.
type SchemaConfig struct {
	Path string `json:"path"`
}

// MigrationsConfig locates the migrations directory.
type MigrationsConfig struct {
	Path       string `json:"path"`
	AutoCreate *bool  `json:"auto_create,omitempty"`
}

// GeneratorConfig is accepted for compatibility with code generation
// tooling; this tool parses and preserves it but never acts on it.
type GeneratorConfig struct {
	Provider string `json:"provider,omitempty"`
	Output   string `json:"output,omitempty"`
}

// Config is the parsed schemaflow.json. Unknown fields are ignored.
type Config struct {
	Version     int                   `json:"version"`
	Datasources map[string]Datasource `json:"datasources,omitempty"`
	Schema      *SchemaConfig         `json:"schema,omitempty"`
	Migrations  *MigrationsConfig     `json:"migrations,omitempty"`
	Generator   *GeneratorConfig      `json:"generator,omitempty"`
}

// Default returns the configuration written by `schemaflow init`.
func Default() *Config {
	return &Config{
		Version:     CurrentVersion,
		Datasources: map[string]Datasource{},
		Schema:      &SchemaConfig{Path: "schema/schema.json"},
		Migrations:  &MigrationsConfig{Path: "migrations"},
	}
}

// Load reads and validates a configuration file. A version other than
// CurrentVersion fails fast.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultFileName
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NotFoundError{Path: path}
		}
		return nil, ParseError{Path: path, Err: err}
	}

	var c Config
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, ParseError{Path: path, Err: err}
	}

	if c.Version != CurrentVersion {
		return nil, VersionMismatchError{Expected: CurrentVersion, Found: c.Version}
	}

	return &c, nil
}

// Write persists the configuration as pretty-printed JSON, creating parent
// directories as needed.
func (c *Config) Write(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	raw, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(raw, '\n'), 0o644)
}

// Datasource returns the named datasource.
func (c *Config) Datasource(name string) (Datasource, error) {
	ds, ok := c.Datasources[name]
	if !ok {
		return Datasource{}, DatasourceNotFoundError{Name: name}
	}
	return ds, nil
}

// SchemaPath returns the configured schema document path, with the default
// applied.
func (c *Config) SchemaPath() string {
	if c.Schema != nil && c.Schema.Path != "" {
		return c.Schema.Path
	}
	return "schema/schema.json"
}

// MigrationsPath returns the configured migrations directory, with the
// default applied.
func (c *Config) MigrationsPath() string {
	if c.Migrations != nil && c.Migrations.Path != "" {
		return c.Migrations.Path
	}
	return "migrations"
}

// Overrides are the command line values that take precedence over the
// configuration file. Ambient environment reads (DATABASE_URL, USER)
// happen at the CLI boundary and arrive here as resolved values.
type Overrides struct {
	URL        string
	Datasource string
	SchemaPath string
	Migrations string

	// EnvURL is the DATABASE_URL fallback captured by the CLI
	EnvURL string
}

// Resolved is the flattened configuration a workflow runs with.
type Resolved struct {
	URL            string
	Namespace      string
	SchemaPath     string
	MigrationsPath string
}

// Resolve flattens the configuration and overrides into the values one
// invocation needs. A nil config is legacy mode: everything must come from
// the overrides or the environment fallback.
func Resolve(c *Config, o Overrides) (*Resolved, error) {
	r := &Resolved{
		Namespace:      "public",
		SchemaPath:     o.SchemaPath,
		MigrationsPath: o.Migrations,
	}

	if c == nil {
		switch {
		case o.URL != "":
			r.URL = o.URL
		case o.EnvURL != "":
			r.URL = o.EnvURL
		default:
			return nil, InvalidConfigError{Reason: "database URL required; use --url, DATABASE_URL or a schemaflow.json"}
		}
		if r.SchemaPath == "" {
			r.SchemaPath = "schema.json"
		}
		if r.MigrationsPath == "" {
			r.MigrationsPath = "migrations"
		}
		return r, nil
	}

	switch {
	case o.Datasource != "":
		ds, err := c.Datasource(o.Datasource)
		if err != nil {
			return nil, err
		}
		r.URL = ds.URL
		r.Namespace = ds.Namespace()
		if o.URL != "" {
			r.URL = o.URL
		}
	case o.URL != "":
		r.URL = o.URL
	default:
		return nil, InvalidConfigError{Reason: "datasource required; use --datasource or --url"}
	}

	if r.SchemaPath == "" {
		r.SchemaPath = c.SchemaPath()
	}
	if r.MigrationsPath == "" {
		r.MigrationsPath = c.MigrationsPath()
	}

	return r, nil
}
