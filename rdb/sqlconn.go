package rdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// SQLConnection is the reference Connection implementation: a
// database/sql.DB behind one of the three wired drivers. *sql.Rows and
// sql.Result already satisfy rdb.Rows/rdb.Result method-for-method, so
// this type is a thin adapter rather than a reimplementation.
type SQLConnection struct {
	db      *sql.DB
	dialect Dialect
	tx      *sql.Tx
}

// Open selects a driver from dsn's scheme ("mysql://...", "postgres://...",
// "sqlite://path/to/file.db") and opens a pooled connection through it.
// Mirrors _examples/sqldef-sqldef/database/{mysql,postgres,sqlite3}'s
// one-function-per-driver NewDatabase constructors, folded into a
// single DSN-scheme switch since this module supports all three from
// one entry point rather than one binary per dialect.
func Open(dsn string) (*SQLConnection, error) {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return nil, fmt.Errorf("rdb: dsn %q missing a dialect scheme (mysql://, postgres://, sqlite://)", dsn)
	}

	var driverName, driverDSN string
	switch scheme {
	case "mysql":
		driverName, driverDSN = "mysql", rest
	case "postgres", "postgresql":
		// lib/pq accepts the connection URL with its scheme intact.
		driverName, driverDSN = "postgres", dsn
	case "sqlite":
		driverName, driverDSN = "sqlite", rest
	default:
		return nil, fmt.Errorf("rdb: unsupported dialect scheme %q", scheme)
	}

	dialect, err := DialectForDriver(driverName)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, driverDSN)
	if err != nil {
		return nil, fmt.Errorf("rdb: open %s: %w", driverName, err)
	}
	return &SQLConnection{db: db, dialect: dialect}, nil
}

func (c *SQLConnection) Dialect() Dialect { return c.dialect }

// Begin opens the session's one transaction. Calling it while one is
// already open is a programming error in the caller (store.Store never
// does this — Open begins once, Commit begins again only after
// committing the prior one).
func (c *SQLConnection) Begin(ctx context.Context) error {
	if c.tx != nil {
		return fmt.Errorf("rdb: a transaction is already open")
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	c.tx = tx
	return nil
}

func (c *SQLConnection) Commit() error {
	if c.tx == nil {
		return nil
	}
	tx := c.tx
	c.tx = nil
	return tx.Commit()
}

func (c *SQLConnection) Rollback() error {
	if c.tx == nil {
		return nil
	}
	tx := c.tx
	c.tx = nil
	return tx.Rollback()
}

func (c *SQLConnection) Query(ctx context.Context, query string, args ...interface{}) (Rows, error) {
	if c.tx != nil {
		rows, err := c.tx.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		return rows, nil
	}
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *SQLConnection) Exec(ctx context.Context, query string, args ...interface{}) (Result, error) {
	if c.tx != nil {
		res, err := c.tx.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		return res, nil
	}
	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (c *SQLConnection) Close() error { return c.db.Close() }

// DB exposes the underlying *sql.DB. schema.ReflectSQL does not use it:
// its information_schema/PRAGMA introspection queries run ordinary
// row-returning SQL through Connection.Query. This accessor exists only
// for callers (e.g. tests) that want to talk to the pool directly.
func (c *SQLConnection) DB() *sql.DB { return c.db }
