/*
Package query builds tenant-scoped, parameterized SQL statements.

PURPOSE:
  Every read and write in the engine goes through a Composer so that call
  sites never hand-write WHERE clauses for tenant isolation. The composer is
  the ONLY mechanism that keeps one tenant's rows away from another tenant:
  the connection pool is shared across tenants and there is no schema-level
  separation.

KEY TYPES:
  Entity:    Static descriptor of a table (name, ordered fields, tenant field)
  Request:   What to build (kind, conditions, fragments, values)
  Statement: SQL text plus bound arguments, not yet executed
  Composer:  Builds Statements for one dialect and, optionally, one tenant

TENANT ISOLATION:
  If the entity declares a tenant field and the composer is bound to a
  tenant, the condition `<tenant field> = <bound tenant>` is ANDed to every
  select, update and delete, and forced into every insert. Callers have no
  switch to turn this off.

PARAMETERS:
  Values are never interpolated. The composer emits `?` placeholders and
  rebinds them to the dialect's style (`$1` for PostgreSQL).

SEE ALSO:
  - composer.go: Statement construction
  - store/sqlstore/entities.go: Entity descriptors for the schema
*/
package query

import "strings"

// Entity describes a table. Declared once per table; never derived at runtime.
type Entity struct {
	Table       string
	Fields      []string
	TenantField string // empty when the table is not tenant-scoped
}

// HasField reports whether name is one of the entity's columns.
func (e Entity) HasField(name string) bool {
	for _, f := range e.Fields {
		if f == name {
			return true
		}
	}
	return false
}

// Scoped reports whether the entity carries a tenant-scoping column.
func (e Entity) Scoped() bool {
	return e.TenantField != "" && e.HasField(e.TenantField)
}

// Qualified returns the field list prefixed with the table name.
func (e Entity) Qualified() []string {
	out := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		out[i] = e.Table + "." + f
	}
	return out
}

func (e Entity) columnName(name string) (string, bool) {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		if name[:i] != e.Table {
			return "", false
		}
		name = name[i+1:]
	}
	return name, e.HasField(name)
}
