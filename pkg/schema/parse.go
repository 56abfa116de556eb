// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/mod/semver"
	sigyaml "sigs.k8s.io/yaml"
)

//go:embed document.json
var documentSchema []byte

var compiledDocumentSchema = mustCompileDocumentSchema()

func mustCompileDocumentSchema() *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(documentSchema))
	if err != nil {
		panic(err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("document.json", doc); err != nil {
		panic(err)
	}

	sch, err := c.Compile("document.json")
	if err != nil {
		panic(err)
	}
	return sch
}

// ReadFile reads a schema document from disk. Files with a .yaml or .yml
// extension are converted to JSON before parsing.
func ReadFile(path string) (*Schema, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, InvalidSchemaError{Reason: fmt.Sprintf("reading %q", path), Err: err}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		raw, err = sigyaml.YAMLToJSON(raw)
		if err != nil {
			return nil, InvalidSchemaError{Reason: fmt.Sprintf("converting %q to JSON", path), Err: err}
		}
	}

	return Parse(raw)
}

// Parse decodes and validates a JSON schema document. Unknown fields are
// tolerated; values outside the closed tag sets are not.
func Parse(raw []byte) (*Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, InvalidSchemaError{Reason: "decoding document", Err: err}
	}
	if err := compiledDocumentSchema.Validate(doc); err != nil {
		return nil, InvalidSchemaError{Reason: "document failed validation", Err: err}
	}

	s := New()
	if err := json.Unmarshal(raw, s); err != nil {
		var fieldErr InvalidFieldValueError
		if errors.As(err, &fieldErr) {
			return nil, InvalidSchemaError{Reason: "document failed validation", Err: fieldErr}
		}
		return nil, InvalidSchemaError{Reason: "decoding document", Err: err}
	}

	s.normalize()

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

// normalize applies the model invariants that are derivable rather than
// declared: primary key columns are NOT NULL, and column names default to
// their map key.
func (s *Schema) normalize() {
	for _, t := range s.Tables {
		for name, c := range t.Columns {
			if c.Name == "" {
				c.Name = name
			}
			if c.IsPrimaryKey {
				c.IsNotNull = true
			}
		}
	}
}

// Validate checks the cross-entity invariants of the document: the shared
// table/enum namespace, foreign key resolution, identity column types and
// index column references.
func (s *Schema) Validate() error {
	if s.Version != "" && !semver.IsValid("v"+s.Version) {
		return InvalidSchemaError{Reason: fmt.Sprintf("version %q is not a semantic version", s.Version)}
	}

	for name := range s.Tables {
		if _, ok := s.Enums[name]; ok {
			return InvalidSchemaError{Reason: "duplicate name", Err: DuplicateNameError{Name: name}}
		}
	}

	for _, tableName := range s.TableNames() {
		t := s.Tables[tableName]
		for _, colName := range t.ColumnNames() {
			c := t.Columns[colName]

			if c.Identity != nil && !IsNumericType(c.Type) {
				return InvalidSchemaError{Reason: "invalid identity column", Err: IdentityTypeError{
					Table: tableName, Column: colName, Type: c.Type,
				}}
			}

			if c.References != nil {
				if err := s.resolveForeignKey(tableName, colName, c.References); err != nil {
					return InvalidSchemaError{Reason: "unresolved foreign key", Err: err}
				}
			}
		}

		for _, con := range t.Constraints {
			if con.Type == ConstraintTypeForeignKey && con.References != nil {
				col := ""
				if len(con.Columns) > 0 {
					col = con.Columns[0]
				}
				if err := s.resolveForeignKey(tableName, col, con.References); err != nil {
					return InvalidSchemaError{Reason: "unresolved foreign key", Err: err}
				}
			}
		}

		for _, idx := range t.Indexes {
			for _, col := range idx.Columns {
				if t.GetColumn(col) == nil {
					return InvalidSchemaError{Reason: "invalid index", Err: IndexColumnError{
						Table: tableName, Index: idx.Name, Column: col,
					}}
				}
			}
		}
	}

	return nil
}

func (s *Schema) resolveForeignKey(table, column string, fk *ForeignKey) error {
	target := s.GetTable(fk.Table)
	if target == nil || target.GetColumn(fk.Column) == nil {
		return ForeignKeyTargetError{
			Table:  table,
			Column: column,
			Target: fk.Table + "." + fk.Column,
		}
	}
	return nil
}
