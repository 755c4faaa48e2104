// Package schema models the relational catalog a direct-mapping store
// reads its shape from: tables, columns, declared keys, and foreign
// keys. The shape is grounded on
// _examples/sqldef-sqldef/schema/ast.go's Table/Column/Index/ForeignKey
// structs, flattened to exported fields since (unlike sqldef, which
// only ever builds this from its own parser) this package's values are
// also built by reflection (schema.ReflectSQL) and read widely by
// schema.Index and store.QueryPlanner.
package schema

import "github.com/nisavid/pyrdb2rdf/rdf"

// Column is one column of a Table.
type Column struct {
	Name     string
	Position int // 0-based declared order; ordering follows the Columns slice, not this field
	SQLType  rdf.SQLType
	Nullable bool
}

// TableIndex is a declared SQL index (unique or not). It is distinct
// from schema.Index, the snapshot type in index.go that the spec calls
// SchemaIndex — see DESIGN.md Open Question 4.
type TableIndex struct {
	Name    string
	Columns []string
	Unique  bool
	Primary bool
}

// ForeignKey is a declared foreign key constraint: a local column list
// referencing another table's column list, one-to-one in order.
type ForeignKey struct {
	Name       string
	Columns    []string
	RefTable   string
	RefColumns []string
}

// Table is one relational table.
type Table struct {
	Name        string
	Columns     []Column
	PrimaryKey  *TableIndex // nil when the table has no declared primary key
	Indexes     []TableIndex
	ForeignKeys []ForeignKey
}

// Column looks up a column by name.
func (t *Table) Column(name string) (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// Schema is a full relational catalog: every table this store will map.
type Schema struct {
	Tables []Table
}

// Table looks up a table by name.
func (s *Schema) Table(name string) (*Table, bool) {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i], true
		}
	}
	return nil, false
}
