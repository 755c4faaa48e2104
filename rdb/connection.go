// Package rdb is the relational backend boundary: the spec's
// RdbConnection interface plus its database/sql-backed implementation
// and per-dialect capability table. Grounded on
// _examples/sqldef-sqldef/database/database.go's Database interface
// and
// _examples/other_examples/...deepaucksharma...-interfaces.go.go's
// Client/Rows/Result shapes (kept the Query/Exec/Rows/Result method
// names; dropped Driver/Statistics/TLSConfig, which belong to a
// connection-pool-metrics concern this store does not have).
package rdb

import "context"

// Rows is the cursor a Connection hands back from Query: Next/Scan/Close
// in the database/sql idiom, plus Columns so callers can map a row onto
// a schema.Table's declared column order without a second round trip.
type Rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Columns() ([]string, error)
	Close() error
	Err() error
}

// Result is the outcome of a non-row-returning Exec (used only by
// schema bootstrapping DDL, see store.Store's create flag).
type Result interface {
	LastInsertId() (int64, error)
	RowsAffected() (int64, error)
}

// Connection is the spec's RdbConnection: the minimal surface
// QueryPlanner/TripleStreamer and schema.ReflectSQL need from a live
// relational backend, plus the begin/commit/rollback lifecycle spec.md
// §5 describes ("open begins a transaction; commit commits and
// immediately begins a fresh one; rollback rolls back without
// beginning a new one").
type Connection interface {
	// Dialect reports the capability table governing SQL text this
	// connection accepts (placeholder syntax, identifier quoting).
	Dialect() Dialect

	// Begin opens the one transaction this connection holds at a time.
	// Query and Exec run inside it once open.
	Begin(ctx context.Context) error

	// Commit commits the open transaction. Callers that want the
	// "commit, then immediately begin a fresh one" semantics of spec.md
	// §5 call Begin again afterward — store.Store.Commit does this.
	Commit() error

	// Rollback discards the open transaction without beginning a new
	// one.
	Rollback() error

	// Query runs a row-returning statement against the open
	// transaction, if any, else directly against the pool.
	Query(ctx context.Context, query string, args ...interface{}) (Rows, error)

	// Exec runs a non-row-returning statement (DDL, or none in the
	// read-only triples path — reserved for schema bootstrapping).
	Exec(ctx context.Context, query string, args ...interface{}) (Result, error)

	// Close releases the underlying connection pool.
	Close() error
}
