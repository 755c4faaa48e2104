package rdb

import (
	"fmt"
	"strconv"
	"strings"
)

// DialectName identifies one of the three backends this module speaks
// to through database/sql drivers.
type DialectName string

const (
	DialectMySQL    DialectName = "mysql"
	DialectPostgres DialectName = "postgres"
	DialectSQLite   DialectName = "sqlite"
)

// Dialect is the static capability table spec.md §9's Design Note
// prescribes in place of the Python original's runtime plugin probe
// ("dialect-conditional registration ... replace with a static
// DialectCapabilities table consulted at open time"). It is consulted
// by QueryPlanner for placeholder syntax and identifier quoting, and by
// schema.ReflectSQL to choose its introspection query dialect.
//
// The placeholder-per-dialect shape is grounded on
// _examples/other_examples/...gandaldf-sqlr__parser.go.go's parse,
// which sizes and renders placeholders differently per dialect
// (Postgres/SQL Server numbered params vs MySQL/SQLite "?").
type Dialect struct {
	Name DialectName

	// IntervalSupported reports whether this backend has a native
	// interval/duration column type (only Postgres does, among the
	// three wired here). Schema bootstrapping DDL falls back to a TEXT
	// column where it is false. ReflectSQL does not consult it: such a
	// TEXT column reflects as a string column, not an interval.
	IntervalSupported bool
}

// Placeholder renders the nth (1-based) bind placeholder for this
// dialect's parameter syntax.
func (d Dialect) Placeholder(n int) string {
	switch d.Name {
	case DialectPostgres:
		return "$" + strconv.Itoa(n)
	default: // MySQL, SQLite
		return "?"
	}
}

// QuoteIdentifier quotes a table or column name per this dialect's
// identifier-quoting rule.
func (d Dialect) QuoteIdentifier(ident string) string {
	switch d.Name {
	case DialectMySQL:
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	default: // Postgres, SQLite both use double quotes
		return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
	}
}

// Capabilities is the static table of every dialect this module
// supports, keyed by name.
var Capabilities = map[DialectName]Dialect{
	DialectMySQL:    {Name: DialectMySQL, IntervalSupported: false},
	DialectPostgres: {Name: DialectPostgres, IntervalSupported: true},
	DialectSQLite:   {Name: DialectSQLite, IntervalSupported: false},
}

// DialectForDriver maps a database/sql driver name (as registered by
// the imported driver package's init()) to its Dialect.
func DialectForDriver(driverName string) (Dialect, error) {
	switch driverName {
	case "mysql":
		return Capabilities[DialectMySQL], nil
	case "postgres":
		return Capabilities[DialectPostgres], nil
	case "sqlite":
		return Capabilities[DialectSQLite], nil
	default:
		return Dialect{}, fmt.Errorf("rdb: unsupported driver %q", driverName)
	}
}
