// SPDX-License-Identifier: Apache-2.0

package schema

import "reflect"

// Equal reports whether two schema documents are structurally identical.
func (s *Schema) Equal(other *Schema) bool {
	if s == nil || other == nil {
		return s == other
	}
	return reflect.DeepEqual(s.Tables, other.Tables) &&
		reflect.DeepEqual(s.Enums, other.Enums)
}

// EqualAttributes reports whether two columns agree on the attributes the
// diff engine compares: type tag, size, nullability, default expression,
// identity, uniqueness and collation.
func (c *Column) EqualAttributes(other *Column) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.Type == other.Type &&
		equalPtr(c.Size, other.Size) &&
		c.IsNotNull == other.IsNotNull &&
		equalPtr(c.Default, other.Default) &&
		reflect.DeepEqual(c.Identity, other.Identity) &&
		c.IsUnique == other.IsUnique &&
		c.Collation == other.Collation
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
