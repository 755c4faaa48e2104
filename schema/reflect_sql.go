package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/nisavid/pyrdb2rdf/rdb"
	"github.com/nisavid/pyrdb2rdf/rdf"
)

// ReflectSQL builds a Schema by introspecting conn's live catalog:
// information_schema for MySQL/Postgres, PRAGMA table_info/
// foreign_key_list/index_list for SQLite. Grounded on
// _examples/sqldef-sqldef/adapter/sqlite3's dialect-specific
// introspection shape (one reflect function per adapter, dispatched
// from the dialect the Database was opened with).
func ReflectSQL(ctx context.Context, conn rdb.Connection) (*Schema, error) {
	switch conn.Dialect().Name {
	case rdb.DialectSQLite:
		return reflectSQLite(ctx, conn)
	default:
		return reflectInformationSchema(ctx, conn)
	}
}

func reflectSQLite(ctx context.Context, conn rdb.Connection) (*Schema, error) {
	tableNames, err := queryStrings(ctx, conn,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("schema: list tables: %w", err)
	}

	sch := &Schema{}
	for _, name := range tableNames {
		table := Table{Name: name}

		rows, err := conn.Query(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteSQLiteName(name)))
		if err != nil {
			return nil, fmt.Errorf("schema: table_info(%s): %w", name, err)
		}
		var pkCols []string
		for rows.Next() {
			var cid int
			var colName, colType string
			var notNull, pk int
			var dflt interface{}
			if err := rows.Scan(&cid, &colName, &colType, &notNull, &dflt, &pk); err != nil {
				rows.Close()
				return nil, err
			}
			table.Columns = append(table.Columns, Column{
				Name:     colName,
				Position: cid,
				SQLType:  sqlTypeFromDDLType(colType),
				Nullable: notNull == 0,
			})
			if pk > 0 {
				pkCols = append(pkCols, colName)
			}
		}
		rows.Close()
		if len(pkCols) > 0 {
			table.PrimaryKey = &TableIndex{Name: name + "_pkey", Columns: pkCols, Unique: true, Primary: true}
		}

		fkRows, err := conn.Query(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", quoteSQLiteName(name)))
		if err != nil {
			return nil, fmt.Errorf("schema: foreign_key_list(%s): %w", name, err)
		}
		fkByID := map[int]*ForeignKey{}
		var fkOrder []int
		for fkRows.Next() {
			var id, seq int
			var refTable, from, to, onUpdate, onDelete, match string
			if err := fkRows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
				fkRows.Close()
				return nil, err
			}
			fk, ok := fkByID[id]
			if !ok {
				fk = &ForeignKey{Name: fmt.Sprintf("%s_fk%d", name, id), RefTable: refTable}
				fkByID[id] = fk
				fkOrder = append(fkOrder, id)
			}
			fk.Columns = append(fk.Columns, from)
			fk.RefColumns = append(fk.RefColumns, to)
		}
		fkRows.Close()
		for _, id := range fkOrder {
			table.ForeignKeys = append(table.ForeignKeys, *fkByID[id])
		}

		idxRows, err := conn.Query(ctx, fmt.Sprintf("PRAGMA index_list(%s)", quoteSQLiteName(name)))
		if err != nil {
			return nil, fmt.Errorf("schema: index_list(%s): %w", name, err)
		}
		var idxNames []struct {
			name   string
			unique bool
		}
		for idxRows.Next() {
			var seq int
			var idxName, origin string
			var unique, partial int
			if err := idxRows.Scan(&seq, &idxName, &unique, &origin, &partial); err != nil {
				idxRows.Close()
				return nil, err
			}
			idxNames = append(idxNames, struct {
				name   string
				unique bool
			}{idxName, unique != 0})
		}
		idxRows.Close()

		for _, in := range idxNames {
			cols, err := queryIndexColumns(ctx, conn, in.name)
			if err != nil {
				return nil, err
			}
			table.Indexes = append(table.Indexes, TableIndex{Name: in.name, Columns: cols, Unique: in.unique})
		}

		sch.Tables = append(sch.Tables, table)
	}
	return sch, nil
}

func queryIndexColumns(ctx context.Context, conn rdb.Connection, indexName string) ([]string, error) {
	rows, err := conn.Query(ctx, fmt.Sprintf("PRAGMA index_info(%s)", quoteSQLiteName(indexName)))
	if err != nil {
		return nil, fmt.Errorf("schema: index_info(%s): %w", indexName, err)
	}
	defer rows.Close()
	var cols []string
	for rows.Next() {
		var seqno, cid int
		var colName string
		if err := rows.Scan(&seqno, &cid, &colName); err != nil {
			return nil, err
		}
		cols = append(cols, colName)
	}
	return cols, nil
}

func quoteSQLiteName(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// reflectInformationSchema covers MySQL and Postgres, both of which
// expose the standard information_schema views.
func reflectInformationSchema(ctx context.Context, conn rdb.Connection) (*Schema, error) {
	tableNames, err := queryStrings(ctx, conn,
		`SELECT table_name FROM information_schema.tables
		 WHERE table_schema NOT IN ('information_schema', 'pg_catalog', 'mysql', 'performance_schema', 'sys')
		 ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("schema: list tables: %w", err)
	}

	d := conn.Dialect()
	sch := &Schema{}
	for _, name := range tableNames {
		table := Table{Name: name}

		colRows, err := conn.Query(ctx, fmt.Sprintf(`
			SELECT column_name, ordinal_position, data_type, is_nullable
			FROM information_schema.columns
			WHERE table_name = %s
			ORDER BY ordinal_position`, d.Placeholder(1)), name)
		if err != nil {
			return nil, fmt.Errorf("schema: columns(%s): %w", name, err)
		}
		for colRows.Next() {
			var colName, dataType, isNullable string
			var position int
			if err := colRows.Scan(&colName, &position, &dataType, &isNullable); err != nil {
				colRows.Close()
				return nil, err
			}
			table.Columns = append(table.Columns, Column{
				Name:     colName,
				Position: position - 1,
				SQLType:  sqlTypeFromDDLType(dataType),
				Nullable: strings.EqualFold(isNullable, "YES"),
			})
		}
		colRows.Close()

		pkCols, err := queryConstraintColumns(ctx, conn, name, "PRIMARY KEY")
		if err != nil {
			return nil, err
		}
		if len(pkCols) > 0 {
			table.PrimaryKey = &TableIndex{Name: name + "_pkey", Columns: pkCols, Unique: true, Primary: true}
		}

		uniqueCols, err := queryConstraintColumns(ctx, conn, name, "UNIQUE")
		if err != nil {
			return nil, err
		}
		if len(uniqueCols) > 0 {
			table.Indexes = append(table.Indexes, TableIndex{Name: name + "_ukey", Columns: uniqueCols, Unique: true})
		}

		fks, err := queryForeignKeys(ctx, conn, name)
		if err != nil {
			return nil, err
		}
		table.ForeignKeys = fks

		sch.Tables = append(sch.Tables, table)
	}
	return sch, nil
}

func queryConstraintColumns(ctx context.Context, conn rdb.Connection, table, constraintType string) ([]string, error) {
	d := conn.Dialect()
	rows, err := conn.Query(ctx, fmt.Sprintf(`
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name AND tc.table_name = kcu.table_name
		WHERE tc.table_name = %s AND tc.constraint_type = %s
		ORDER BY kcu.ordinal_position`, d.Placeholder(1), d.Placeholder(2)), table, constraintType)
	if err != nil {
		return nil, fmt.Errorf("schema: %s(%s): %w", constraintType, table, err)
	}
	defer rows.Close()
	var cols []string
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return cols, nil
}

func queryForeignKeys(ctx context.Context, conn rdb.Connection, table string) ([]ForeignKey, error) {
	d := conn.Dialect()
	rows, err := conn.Query(ctx, fmt.Sprintf(`
		SELECT tc.constraint_name, kcu.column_name, kcu.ordinal_position,
		       ccu.table_name, ccu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name AND tc.table_name = kcu.table_name
		JOIN information_schema.constraint_column_usage ccu
		  ON tc.constraint_name = ccu.constraint_name
		WHERE tc.table_name = %s AND tc.constraint_type = 'FOREIGN KEY'
		ORDER BY tc.constraint_name, kcu.ordinal_position`, d.Placeholder(1)), table)
	if err != nil {
		return nil, fmt.Errorf("schema: foreign keys(%s): %w", table, err)
	}
	defer rows.Close()

	byName := map[string]*ForeignKey{}
	var order []string
	for rows.Next() {
		var constraintName, col, refTable, refCol string
		var pos int
		if err := rows.Scan(&constraintName, &col, &pos, &refTable, &refCol); err != nil {
			return nil, err
		}
		fk, ok := byName[constraintName]
		if !ok {
			fk = &ForeignKey{Name: constraintName, RefTable: refTable}
			byName[constraintName] = fk
			order = append(order, constraintName)
		}
		fk.Columns = append(fk.Columns, col)
		fk.RefColumns = append(fk.RefColumns, refCol)
	}
	var out []ForeignKey
	for _, name := range order {
		out = append(out, *byName[name])
	}
	return out, nil
}

func queryStrings(ctx context.Context, conn rdb.Connection, query string, args ...interface{}) ([]string, error) {
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// sqlTypeFromDDLType classifies a catalog-reported type name into the
// flat lattice rdf.ValueCodec works over, replacing the Python
// original's ancestor-chain walk over a live SQLAlchemy type object
// (spec.md §9 Design Note) with a name-substring match over the text
// every information_schema/PRAGMA introspection path already hands
// back.
func sqlTypeFromDDLType(ddlType string) rdf.SQLType {
	t := strings.ToUpper(ddlType)
	switch {
	case strings.Contains(t, "BOOL"):
		return rdf.SQLBoolean
	case strings.Contains(t, "BLOB") || strings.Contains(t, "BINARY") || strings.Contains(t, "BYTEA"):
		return rdf.SQLBinary
	case strings.Contains(t, "INTERVAL"):
		return rdf.SQLInterval
	case strings.Contains(t, "DATETIME") || strings.Contains(t, "TIMESTAMP"):
		return rdf.SQLDateTime
	case strings.Contains(t, "DATE"):
		return rdf.SQLDate
	case strings.Contains(t, "TIME"):
		return rdf.SQLTime
	case strings.Contains(t, "DECIMAL") || strings.Contains(t, "NUMERIC"):
		return rdf.SQLNumeric
	case strings.Contains(t, "DOUBLE") || strings.Contains(t, "REAL") || strings.Contains(t, "FLOA"):
		return rdf.SQLFloat
	case strings.Contains(t, "INT"):
		return rdf.SQLInteger
	case strings.Contains(t, "CHAR") || strings.Contains(t, "TEXT") || strings.Contains(t, "CLOB"):
		return rdf.SQLString
	default:
		return rdf.SQLUnknown
	}
}
