package store

import (
	"context"
	"fmt"

	"github.com/nisavid/pyrdb2rdf/rdb"
	"github.com/nisavid/pyrdb2rdf/rdberr"
	"github.com/nisavid/pyrdb2rdf/rdf"
	"github.com/nisavid/pyrdb2rdf/schema"
)

// FactoryName is the name this store is advertised under to a host RDF
// framework (spec.md §6 "Plugin registration").
const FactoryName = "rdb2rdf_dm"

// Config is the configuration handed to Open: a DSN naming the
// relational backend plus the base IRI every table/row/predicate IRI
// this store mints is rooted under. Replaces the Python original's
// "connection object, or [args, kwargs], or JSON string" union (spec.md
// §6) with one concrete struct — a Go port has no dynamically-typed
// configuration surface to preserve.
type Config struct {
	DSN     string
	BaseIRI string

	// Create, when true and Schema is non-nil, issues CREATE TABLE IF
	// NOT EXISTS DDL for Schema before reflecting (SPEC_FULL.md
	// SUPPLEMENTED FEATURES: stores.py's DirectMapping.open(create=True)).
	Create bool
	Schema *schema.Schema

	// Reflect, when true, reflects the live catalog via
	// schema.ReflectSQL and uses it in place of Schema. Its zero value
	// is false; Open also reflects when Schema is nil, whatever Reflect
	// says.
	Reflect bool
}

// Store is the spec's StoreFacade: a read-only, single-session,
// single-transaction view over a relational database's direct
// mapping. Grounded on _examples/boutros-sopp/db.go's DB lifecycle
// (Open/Close/Stats shape, exported sentinel errors) and
// _examples/original_source/rdb2rdf/stores.py's DirectMapping method
// set, translated to Go idiom (a row-by-row callback/lazy iteration
// instead of a Python generator).
type Store struct {
	conn    rdb.Connection
	idx     *schema.Index
	iri     *rdf.IriCodec
	codec   *rdf.ValueCodec
	planner *QueryPlanner
	stream  *TripleStreamer

	namespaces map[string]string
	prefixes   map[string]string
}

// Feature flags the spec requires this store to report (§6).
const (
	ContextAware     = false
	FormulaAware     = false
	GraphAware       = false
	TransactionAware = true
)

// Open connects to cfg.DSN, optionally bootstraps cfg.Schema's DDL,
// reflects (or adopts) the catalog, and builds the immutable SchemaIndex
// every subsequent Triples/Len call reads from.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, &rdberr.ConfigurationError{Configuration: cfg, Reason: "DSN is empty"}
	}
	if cfg.BaseIRI == "" {
		return nil, &rdberr.ConfigurationError{Configuration: cfg, Reason: "BaseIRI is empty"}
	}

	conn, err := rdb.Open(cfg.DSN)
	if err != nil {
		return nil, &rdberr.BackendError{Op: "open", Cause: err}
	}

	if cfg.Create && cfg.Schema != nil {
		if err := createSchema(ctx, conn, cfg.Schema); err != nil {
			conn.Close()
			return nil, &rdberr.BackendError{Op: "create schema", Cause: err}
		}
	}

	if err := conn.Begin(ctx); err != nil {
		conn.Close()
		return nil, &rdberr.BackendError{Op: "begin", Cause: err}
	}

	sch := cfg.Schema
	if cfg.Reflect || sch == nil {
		reflected, err := schema.ReflectSQL(ctx, conn)
		if err != nil {
			conn.Rollback()
			conn.Close()
			return nil, &rdberr.BackendError{Op: "reflect schema", Cause: err}
		}
		sch = reflected
	}

	idx, err := schema.BuildIndex(sch)
	if err != nil {
		conn.Rollback()
		conn.Close()
		return nil, err
	}

	iriCodec := rdf.NewIriCodec(cfg.BaseIRI)
	valCodec := rdf.NewValueCodec()

	return &Store{
		conn:       conn,
		idx:        idx,
		iri:        iriCodec,
		codec:      valCodec,
		planner:    NewQueryPlanner(idx, iriCodec, valCodec, conn.Dialect()),
		stream:     NewTripleStreamer(idx, iriCodec, valCodec),
		namespaces: map[string]string{},
		prefixes:   map[string]string{},
	}, nil
}

// createSchema issues CREATE TABLE IF NOT EXISTS DDL for every table in
// sch, in declared order (so later tables' foreign keys can reference
// earlier ones). Column DDL types are rendered from the SQLType lattice
// in its most portable form across the three wired dialects.
func createSchema(ctx context.Context, conn rdb.Connection, sch *schema.Schema) error {
	d := conn.Dialect()
	for _, t := range sch.Tables {
		stmt := buildCreateTableDDL(d, t)
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create table %s: %w", t.Name, err)
		}
	}
	return nil
}

func buildCreateTableDDL(d rdb.Dialect, t schema.Table) string {
	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		cols = append(cols, fmt.Sprintf("%s %s", d.QuoteIdentifier(c.Name), ddlTypeName(d, c.SQLType)))
	}
	if t.PrimaryKey != nil {
		quoted := make([]string, len(t.PrimaryKey.Columns))
		for i, c := range t.PrimaryKey.Columns {
			quoted[i] = d.QuoteIdentifier(c)
		}
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", joinComma(quoted)))
	}
	for _, fk := range t.ForeignKeys {
		local := make([]string, len(fk.Columns))
		for i, c := range fk.Columns {
			local[i] = d.QuoteIdentifier(c)
		}
		ref := d.QuoteIdentifier(fk.RefTable)
		if len(fk.RefColumns) > 0 {
			refCols := make([]string, len(fk.RefColumns))
			for i, c := range fk.RefColumns {
				refCols[i] = d.QuoteIdentifier(c)
			}
			ref += " (" + joinComma(refCols) + ")"
		}
		cols = append(cols, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s", joinComma(local), ref))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", d.QuoteIdentifier(t.Name), joinComma(cols))
}

func joinComma(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}

func ddlTypeName(d rdb.Dialect, t rdf.SQLType) string {
	switch t {
	case rdf.SQLBoolean:
		return "BOOLEAN"
	case rdf.SQLInteger:
		return "INTEGER"
	case rdf.SQLFloat:
		return "DOUBLE PRECISION"
	case rdf.SQLNumeric:
		return "NUMERIC"
	case rdf.SQLDate:
		return "DATE"
	case rdf.SQLDateTime:
		return "TIMESTAMP"
	case rdf.SQLTime:
		return "TIME"
	case rdf.SQLBinary:
		return "BLOB"
	case rdf.SQLInterval:
		// Backends without a native interval type fall back to the ISO
		// 8601 lexical form in a text column.
		if d.IntervalSupported {
			return "INTERVAL"
		}
		return "TEXT"
	default:
		return "TEXT"
	}
}

// Close ends the session's open transaction and releases the
// underlying connection. commitPending mirrors spec.md §6's
// close(commit_pending=false): when true, the transaction is committed
// first; otherwise it is rolled back. This store never mutates so
// either outcome is observably the same — no writes are ever pending —
// but the flag is kept for interface fidelity with a transaction-aware
// host framework, and committing vs. rolling back does still affect
// whether the backend's MVCC snapshot the session was reading from is
// released promptly.
func (s *Store) Close(commitPending bool) error {
	var txErr error
	if commitPending {
		txErr = s.conn.Commit()
	} else {
		txErr = s.conn.Rollback()
	}
	if err := s.conn.Close(); err != nil {
		return err
	}
	return txErr
}

// Commit commits the session's open transaction and immediately begins
// a fresh one (spec.md §5: "commit commits and immediately begins a
// fresh one").
func (s *Store) Commit() error {
	if err := s.conn.Commit(); err != nil {
		return &rdberr.BackendError{Op: "commit", Cause: err}
	}
	if err := s.conn.Begin(context.Background()); err != nil {
		return &rdberr.BackendError{Op: "begin", Cause: err}
	}
	return nil
}

// Rollback rolls back the session's open transaction without beginning
// a new one (spec.md §5). A subsequent Triples call still works: most
// backends implicitly start a new transaction on the next statement,
// and this store issues only reads.
func (s *Store) Rollback() error {
	if err := s.conn.Rollback(); err != nil {
		return &rdberr.BackendError{Op: "rollback", Cause: err}
	}
	return nil
}

// Len implements spec.md §4.4's counting rule: one aggregate query per
// table, summing the type-triple count, per-column non-null counts,
// and per-foreign-key all-columns-non-null counts, with the grand
// total across tables as the store's triple count. A non-nil context
// always returns 0 (this store exposes no named contexts).
func (s *Store) Len(ctx context.Context, context_ rdf.Term) (int64, error) {
	if context_ != nil {
		return 0, nil
	}
	var total int64
	for _, table := range s.idx.Tables() {
		q, err := s.planner.CountQuery(table)
		if err != nil {
			return 0, err
		}
		n, err := queryInt(ctx, s.conn, q)
		if err != nil {
			return 0, &rdberr.BackendError{Op: "count " + table, Cause: err}
		}
		total += n
	}
	return total, nil
}

func queryInt(ctx context.Context, conn rdb.Connection, query string) (int64, error) {
	rows, err := conn.Query(ctx, query)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	var n int64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, err
		}
	}
	return n, rows.Err()
}

// Triples is the spec's triples(): it classifies pattern, builds a plan
// per matched table, and streams triples to yield in table-declared
// order (spec.md §4.4's "Subject-table ordering"). This store is not
// context-aware: a non-nil context_ that is not a blank node yields
// the empty stream, and a blank-node context_ streams the same triples
// as a nil one.
func (s *Store) Triples(ctx context.Context, pattern Pattern, context_ rdf.Term, yield func(rdf.Triple) error) error {
	if context_ != nil {
		if _, isBlank := context_.(rdf.Blank); !isBlank {
			return nil
		}
	}

	plans, err := s.planner.Plan(pattern)
	if err != nil {
		return err
	}
	for _, plan := range plans {
		if err := s.stream.Stream(ctx, s.conn, plan, yield); err != nil {
			return err
		}
	}
	return nil
}

// Bind records a prefix/namespace association. Namespace bindings are
// process-local mutable state (spec.md §5 "Shared resources") guarded
// only by the assumption of single-threaded use — no mutex is taken.
func (s *Store) Bind(prefix, namespace string) {
	s.prefixes[namespace] = prefix
	s.namespaces[prefix] = namespace
}

// Namespace looks up the namespace bound to prefix, if any.
func (s *Store) Namespace(prefix string) (string, bool) {
	ns, ok := s.namespaces[prefix]
	return ns, ok
}

// Prefix looks up the prefix bound to namespace, if any.
func (s *Store) Prefix(namespace string) (string, bool) {
	p, ok := s.prefixes[namespace]
	return p, ok
}

// Namespaces returns every bound (prefix, namespace) pair.
func (s *Store) Namespaces() map[string]string {
	out := make(map[string]string, len(s.namespaces))
	for k, v := range s.namespaces {
		out[k] = v
	}
	return out
}

// Contexts always returns no contexts: this store is not graph-aware.
func (s *Store) Contexts() []rdf.Term { return nil }

// Index exposes the immutable SchemaIndex built at Open, e.g. for a
// caller that needs the table list.
func (s *Store) Index() *schema.Index { return s.idx }

// IriCodec exposes the store's IRI codec.
func (s *Store) IriCodec() *rdf.IriCodec { return s.iri }
