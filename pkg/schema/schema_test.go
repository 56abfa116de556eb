// SPDX-License-Identifier: Apache-2.0

package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemaflow/schemaflow/pkg/schema"
)

const extendedDocument = `{
  "version": "1",
  "dialect": "postgresql",
  "tables": {
    "users": {
      "columns": {
        "id": {
          "name": "id",
          "type": "bigint",
          "isPrimaryKey": true,
          "identity": { "always": true }
        },
        "email": {
          "name": "email",
          "type": "varchar",
          "size": 255,
          "isNotNull": true,
          "isUnique": true,
          "collation": "en_US.utf8"
        },
        "tags": {
          "name": "tags",
          "type": "text",
          "arrayDimensions": 1
        },
        "settings": {
          "name": "settings",
          "type": "jsonb"
        }
      },
      "indexes": [
        {
          "name": "idx_users_email",
          "columns": ["email"],
          "unique": true,
          "method": "btree"
        }
      ],
      "constraints": [
        {
          "name": "chk_users_email_format",
          "constraintType": "check",
          "expression": "email <> ''"
        }
      ],
      "options": { "fillfactor": 90 }
    }
  }
}`

func TestParseExtendedDocument(t *testing.T) {
	t.Parallel()

	s, err := schema.Parse([]byte(extendedDocument))
	require.NoError(t, err)

	require.Len(t, s.Tables, 1)
	users := s.GetTable("users")
	require.NotNil(t, users)

	email := users.GetColumn("email")
	require.NotNil(t, email)
	assert.True(t, email.IsUnique)
	assert.Equal(t, "en_US.utf8", email.Collation)
	require.NotNil(t, email.Size)
	assert.Equal(t, 255, *email.Size)

	tags := users.GetColumn("tags")
	require.NotNil(t, tags)
	require.NotNil(t, tags.ArrayDimensions)
	assert.Equal(t, 1, *tags.ArrayDimensions)

	require.Len(t, users.Indexes, 1)
	assert.Equal(t, schema.IndexMethodBtree, users.Indexes[0].Method)

	require.NotNil(t, users.Options.Fillfactor)
	assert.Equal(t, 90, *users.Options.Fillfactor)
}

func TestParsePrimaryKeyImpliesNotNull(t *testing.T) {
	t.Parallel()

	s, err := schema.Parse([]byte(`{
		"tables": {
			"users": {
				"columns": {
					"id": { "name": "id", "type": "bigint", "isPrimaryKey": true }
				}
			}
		}
	}`))
	require.NoError(t, err)

	id := s.GetTable("users").GetColumn("id")
	assert.True(t, id.IsNotNull)
	assert.Equal(t, []string{"id"}, s.GetTable("users").PrimaryKey())
}

func TestParseRejectsUnknownTagValues(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"index method": `{
			"tables": {
				"t": {
					"columns": { "a": { "name": "a", "type": "text" } },
					"indexes": [{ "name": "i", "columns": ["a"], "method": "btreee" }]
				}
			}
		}`,
		"constraint type": `{
			"tables": {
				"t": {
					"columns": { "a": { "name": "a", "type": "text" } },
					"constraints": [{ "constraintType": "cheque" }]
				}
			}
		}`,
		"fk action": `{
			"tables": {
				"t": {
					"columns": {
						"a": { "name": "a", "type": "bigint", "references": { "table": "t", "column": "a", "on_delete": "obliterate" } }
					}
				}
			}
		}`,
		"partition type": `{
			"tables": {
				"t": {
					"columns": { "a": { "name": "a", "type": "bigint" } },
					"partitions": [{ "name": "p", "partition_type": "radial", "key": ["a"] }]
				}
			}
		}`,
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := schema.Parse([]byte(doc))
			var invalid schema.InvalidSchemaError
			require.ErrorAs(t, err, &invalid)
		})
	}
}

func TestParseToleratesUnknownFields(t *testing.T) {
	t.Parallel()

	_, err := schema.Parse([]byte(`{
		"tables": {
			"t": {
				"columns": { "a": { "name": "a", "type": "text", "futureField": true } },
				"anotherFutureField": {}
			}
		},
		"somethingNew": 42
	}`))
	require.NoError(t, err)
}

func TestValidateForeignKeyTargets(t *testing.T) {
	t.Parallel()

	_, err := schema.Parse([]byte(`{
		"tables": {
			"orders": {
				"columns": {
					"user_id": { "name": "user_id", "type": "bigint", "references": { "table": "users", "column": "id" } }
				}
			}
		}
	}`))

	var invalid schema.InvalidSchemaError
	require.ErrorAs(t, err, &invalid)

	var fkErr schema.ForeignKeyTargetError
	require.ErrorAs(t, err, &fkErr)
	assert.Equal(t, "users.id", fkErr.Target)
}

func TestValidateIdentityRequiresNumericType(t *testing.T) {
	t.Parallel()

	_, err := schema.Parse([]byte(`{
		"tables": {
			"t": {
				"columns": {
					"a": { "name": "a", "type": "text", "identity": { "always": true } }
				}
			}
		}
	}`))

	var idErr schema.IdentityTypeError
	require.ErrorAs(t, err, &idErr)
}

func TestValidateSharedNamespace(t *testing.T) {
	t.Parallel()

	_, err := schema.Parse([]byte(`{
		"tables": {
			"status": { "columns": { "a": { "name": "a", "type": "text" } } }
		},
		"enums": {
			"status": ["active", "inactive"]
		}
	}`))

	var dupErr schema.DuplicateNameError
	require.ErrorAs(t, err, &dupErr)
}

func TestValidateVersion(t *testing.T) {
	t.Parallel()

	_, err := schema.Parse([]byte(`{
		"version": "not-a-version",
		"tables": {}
	}`))

	var invalid schema.InvalidSchemaError
	require.ErrorAs(t, err, &invalid)
}

func TestEqual(t *testing.T) {
	t.Parallel()

	a, err := schema.Parse([]byte(extendedDocument))
	require.NoError(t, err)
	b, err := schema.Parse([]byte(extendedDocument))
	require.NoError(t, err)

	assert.True(t, a.Equal(b))

	b.GetTable("users").GetColumn("email").IsNotNull = false
	assert.False(t, a.Equal(b))
}

func TestSortedAccessors(t *testing.T) {
	t.Parallel()

	s, err := schema.Parse([]byte(`{
		"tables": {
			"zebra": { "columns": { "z": { "name": "z", "type": "text" }, "a": { "name": "a", "type": "text" } } },
			"apple": { "columns": { "only": { "name": "only", "type": "text" } } }
		},
		"enums": {
			"zeta": ["z"],
			"alpha": ["a"]
		}
	}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"apple", "zebra"}, s.TableNames())
	assert.Equal(t, []string{"alpha", "zeta"}, s.EnumNames())
	assert.Equal(t, []string{"a", "z"}, s.GetTable("zebra").ColumnNames())
}
