package schema

import (
	"fmt"

	"github.com/RoaringBitmap/roaring"
)

// Index is the spec's SchemaIndex: an immutable snapshot built once at
// open time from a Schema. It resolves a table's effective primary key
// (declared or synthesized) and tags which tables are blank-node
// tables. Key columns and the blank-node flag are map/bitmap lookups;
// Table resolves a name through Schema.Table, a linear scan over the
// declared tables.
//
// Grounded on _examples/original_source/rdb2rdf/dm.py's
// orm_automap_base.prepare, which performs exactly this inference pass
// once per engine and caches it on the automapped Base.
type Index struct {
	schema *Schema

	tableOrdinal map[string]int
	tableNames   []string // ordinal -> name, in Schema-declared order

	keyColumns map[string][]string // table -> effective (declared or pseudo) primary key columns, in column order

	// blankNodeTables flags, by ordinal, every table whose key was
	// synthesized; per spec.md §4.3 key provenance and node kind
	// coincide exactly, so one bitmap carries both facts.
	blankNodeTables *roaring.Bitmap
}

// BuildIndex reflects sch once into an immutable Index, assigning each
// table a dense ordinal equal to its position in sch.Tables (spec.md
// §4.4's "Subject-table ordering") and inferring a pseudo primary key
// for every table that declares none.
func BuildIndex(sch *Schema) (*Index, error) {
	idx := &Index{
		schema:          sch,
		tableOrdinal:    make(map[string]int, len(sch.Tables)),
		tableNames:      make([]string, len(sch.Tables)),
		keyColumns:      make(map[string][]string, len(sch.Tables)),
		blankNodeTables: roaring.New(),
	}

	for i := range sch.Tables {
		t := &sch.Tables[i]
		idx.tableOrdinal[t.Name] = i
		idx.tableNames[i] = t.Name

		if t.PrimaryKey != nil && len(t.PrimaryKey.Columns) > 0 {
			idx.keyColumns[t.Name] = t.PrimaryKey.Columns
			continue
		}

		key, _ := inferPseudoPrimaryKey(t)
		idx.keyColumns[t.Name] = key
		idx.blankNodeTables.Add(uint32(i))
	}

	return idx, nil
}

// inferPseudoPrimaryKey implements spec.md §4.3: the smallest unique
// index's columns, or — failing any unique index — every column. Either
// way the caller treats the result as synthesized: a table reaching
// this function has no declared primary key, so its rows are always
// blank nodes (spec.md §3's is_blank_node_table, §4.3 "mark such tables
// as blank-node tables").
func inferPseudoPrimaryKey(t *Table) (cols []string, synthesized bool) {
	var best *TableIndex
	for i := range t.Indexes {
		idx := &t.Indexes[i]
		if !idx.Unique || len(idx.Columns) == 0 {
			continue
		}
		if best == nil || len(idx.Columns) < len(best.Columns) {
			best = idx
		}
	}
	if best != nil {
		return append([]string(nil), best.Columns...), true
	}

	all := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		all[i] = c.Name
	}
	return all, true
}

// Tables returns every table name in declared order.
func (idx *Index) Tables() []string { return idx.tableNames }

// Table looks up a table's static definition.
func (idx *Index) Table(name string) (*Table, bool) { return idx.schema.Table(name) }

// KeyColumns returns the effective primary-key columns for table,
// whether declared or inferred.
func (idx *Index) KeyColumns(table string) ([]string, error) {
	cols, ok := idx.keyColumns[table]
	if !ok {
		return nil, fmt.Errorf("schema: unknown table %q", table)
	}
	return cols, nil
}

// IsBlankNodeTable reports whether table's rows render as blank nodes
// (true iff its primary key was synthesized, spec.md §4.3).
func (idx *Index) IsBlankNodeTable(table string) bool {
	ord, ok := idx.tableOrdinal[table]
	if !ok {
		return false
	}
	return idx.blankNodeTables.Contains(uint32(ord))
}

// ReferencingForeignKeys returns, for a target table, every foreign key
// across the whole schema whose RefTable is target — used to find the
// reference properties whose object could be a given row node of
// target.
func (idx *Index) ReferencingForeignKeys(target string) []struct {
	Table string
	FK    ForeignKey
} {
	var out []struct {
		Table string
		FK    ForeignKey
	}
	for _, name := range idx.tableNames {
		t, _ := idx.schema.Table(name)
		for _, fk := range t.ForeignKeys {
			if fk.RefTable == target {
				out = append(out, struct {
					Table string
					FK    ForeignKey
				}{Table: name, FK: fk})
			}
		}
	}
	return out
}
