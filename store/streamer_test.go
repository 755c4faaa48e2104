package store

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/nisavid/pyrdb2rdf/rdb"
	"github.com/nisavid/pyrdb2rdf/rdf"
	"github.com/nisavid/pyrdb2rdf/schema"
)

// employeeSchema is the self-referencing table the end-to-end cases
// run over: Employee(id INT PK, name TEXT, manager_id INT -> Employee.id).
func employeeSchema() *schema.Schema {
	return &schema.Schema{Tables: []schema.Table{{
		Name: "Employee",
		Columns: []schema.Column{
			{Name: "id", Position: 0, SQLType: rdf.SQLInteger},
			{Name: "name", Position: 1, SQLType: rdf.SQLString},
			{Name: "manager_id", Position: 2, SQLType: rdf.SQLInteger, Nullable: true},
		},
		PrimaryKey: &schema.TableIndex{Name: "Employee_pkey", Columns: []string{"id"}, Unique: true, Primary: true},
		ForeignKeys: []schema.ForeignKey{{
			Name: "Employee_manager_fk", Columns: []string{"manager_id"},
			RefTable: "Employee", RefColumns: []string{"id"},
		}},
	}}}
}

// stubRows replays canned rows into the streamer's scan targets. A nil
// cell scans as SQL NULL.
type stubRows struct {
	rows [][]interface{}
	i    int
}

func (r *stubRows) Next() bool { r.i++; return r.i <= len(r.rows) }

func (r *stubRows) Scan(dest ...interface{}) error {
	row := r.rows[r.i-1]
	if len(dest) != len(row) {
		return fmt.Errorf("stubRows: %d scan targets for %d columns", len(dest), len(row))
	}
	for i, d := range dest {
		switch v := d.(type) {
		case interface{ Scan(interface{}) error }:
			if err := v.Scan(row[i]); err != nil {
				return err
			}
		case *int64:
			*v = row[i].(int64)
		default:
			return fmt.Errorf("stubRows: unsupported scan target %T", d)
		}
	}
	return nil
}

func (r *stubRows) Columns() ([]string, error) { return nil, nil }
func (r *stubRows) Close() error               { return nil }
func (r *stubRows) Err() error                 { return nil }

// stubConn replays one canned result set for every query.
type stubConn struct {
	fakeConn
	rows    [][]interface{}
	lastSQL string
}

func (c *stubConn) Query(ctx context.Context, query string, args ...interface{}) (rdb.Rows, error) {
	c.lastSQL = query
	return &stubRows{rows: c.rows}, nil
}

func employeeFixture(t *testing.T) (*QueryPlanner, *TripleStreamer, *schema.Index) {
	t.Helper()
	idx, err := schema.BuildIndex(employeeSchema())
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	iri := rdf.NewIriCodec("http://ex/")
	codec := rdf.NewValueCodec()
	planner := NewQueryPlanner(idx, iri, codec, rdb.Capabilities[rdb.DialectSQLite])
	streamer := NewTripleStreamer(idx, iri, codec)
	return planner, streamer, idx
}

func collectTriples(t *testing.T, s *TripleStreamer, conn rdb.Connection, plans []TablePlan) []string {
	t.Helper()
	var out []string
	for _, plan := range plans {
		err := s.Stream(context.Background(), conn, plan, func(tr rdf.Triple) error {
			out = append(out, tr.String())
			return nil
		})
		if err != nil {
			t.Fatalf("Stream: %v", err)
		}
	}
	return out
}

// TestStreamWildcardEmployee replays the two-row Employee data set
// through a fully wildcard pattern and checks the exact triple sequence:
// per row a type triple, then literal columns in schema order, then the
// manager reference when its local column is non-null. manager_id
// belongs to the foreign key and therefore emits no literal triple.
func TestStreamWildcardEmployee(t *testing.T) {
	planner, streamer, _ := employeeFixture(t)
	plans, err := planner.Plan(Pattern{})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plans) != 1 {
		t.Fatalf("Plan(wildcard) = %d plans, want 1", len(plans))
	}

	// Select order: id, name, manager_id, then the join's target id.
	conn := &stubConn{rows: [][]interface{}{
		{"1", "Ada", nil, nil},
		{"2", "Bo", "1", "1"},
	}}
	got := collectTriples(t, streamer, conn, plans)

	want := []string{
		`<http://ex/Employee/id=1> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://ex/Employee> .`,
		`<http://ex/Employee/id=1> <http://ex/Employee#id> "1"^^<http://www.w3.org/2001/XMLSchema#integer> .`,
		`<http://ex/Employee/id=1> <http://ex/Employee#name> "Ada" .`,
		`<http://ex/Employee/id=2> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://ex/Employee> .`,
		`<http://ex/Employee/id=2> <http://ex/Employee#id> "2"^^<http://www.w3.org/2001/XMLSchema#integer> .`,
		`<http://ex/Employee/id=2> <http://ex/Employee#name> "Bo" .`,
		`<http://ex/Employee/id=2> <http://ex/Employee#ref-manager_id> <http://ex/Employee/id=1> .`,
	}
	if len(got) != len(want) {
		t.Fatalf("streamed %d triples, want %d:\n%s", len(got), len(want), strings.Join(got, "\n"))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("triple %d = %s, want %s", i, got[i], want[i])
		}
	}
}

// TestStreamSubjectReferencePredicate narrows to one subject and the
// manager reference predicate and expects exactly that one triple.
func TestStreamSubjectReferencePredicate(t *testing.T) {
	planner, streamer, _ := employeeFixture(t)
	iri := rdf.NewIriCodec("http://ex/")
	subj := rdf.URI(iri.FormatRowNode("Employee", []string{"id"}, []string{"2"}))
	pred := iri.FormatReferenceProperty("Employee", []string{"manager_id"})

	plans, err := planner.Plan(Pattern{Subject: subj, Predicate: &pred})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plans) != 1 {
		t.Fatalf("Plan = %d plans, want 1", len(plans))
	}
	if !strings.Contains(plans[0].SQL, "LEFT JOIN") {
		t.Errorf("wildcard-object reference plan should outer join, got %q", plans[0].SQL)
	}

	// Select order: id, then the join's target id.
	conn := &stubConn{rows: [][]interface{}{{"2", "1"}}}
	got := collectTriples(t, streamer, conn, plans)
	want := `<http://ex/Employee/id=2> <http://ex/Employee#ref-manager_id> <http://ex/Employee/id=1> .`
	if len(got) != 1 || got[0] != want {
		t.Fatalf("streamed %v, want exactly %s", got, want)
	}
}

// TestStreamLiteralObjectPredicateConcrete covers the "(Any, name
// property, "Ada")" case: the emitted literal comes from the scanned
// column, re-encoded under the column's SQL type.
func TestStreamLiteralObjectPredicateConcrete(t *testing.T) {
	planner, streamer, _ := employeeFixture(t)
	iri := rdf.NewIriCodec("http://ex/")
	pred := iri.FormatLiteralProperty("Employee", "name")
	lit := rdf.NewTypedLiteral("Ada", rdf.XSDString)

	plans, err := planner.Plan(Pattern{Predicate: &pred, Object: lit})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plans) != 1 {
		t.Fatalf("Plan = %d plans, want 1", len(plans))
	}

	// Select order: id, name.
	conn := &stubConn{rows: [][]interface{}{{"1", "Ada"}}}
	got := collectTriples(t, streamer, conn, plans)
	want := `<http://ex/Employee/id=1> <http://ex/Employee#name> "Ada" .`
	if len(got) != 1 || got[0] != want {
		t.Fatalf("streamed %v, want exactly %s", got, want)
	}
}

// TestCountQueryEmployee checks the single-statement aggregate of
// spec-defined triple counting: a COUNT over the key column, one
// non-null sum per literal column (id and name; manager_id belongs to
// the foreign key), and one all-non-null sum for the foreign key.
func TestCountQueryEmployee(t *testing.T) {
	planner, _, _ := employeeFixture(t)
	q, err := planner.CountQuery("Employee")
	if err != nil {
		t.Fatalf("CountQuery: %v", err)
	}
	if !strings.HasPrefix(q, `SELECT COUNT("id")`) {
		t.Errorf("CountQuery starts %q, want a COUNT over the key column", q)
	}
	if got := strings.Count(q, "SUM(CASE"); got != 3 {
		t.Errorf("CountQuery has %d CASE sums, want 3 (id, name, manager fk):\n%s", got, q)
	}
	if strings.Contains(q, `"manager_id" IS NULL`) {
		t.Errorf("manager_id must not be counted as a literal column:\n%s", q)
	}
}

// TestPlanUnresolvableSubjectIsEmpty pins the propagation policy: a
// subject naming an unknown table, or one that is not row-shaped,
// yields an empty plan set rather than an error.
func TestPlanUnresolvableSubjectIsEmpty(t *testing.T) {
	planner, _, _ := employeeFixture(t)
	for _, subj := range []rdf.Term{
		rdf.URI("http://ex/Nonexistent/id=1"),
		rdf.URI("http://ex/Employee"),
		rdf.URI("http://elsewhere/Employee/id=1"),
	} {
		plans, err := planner.Plan(Pattern{Subject: subj})
		if err != nil {
			t.Errorf("Plan(subject=%s) errored: %v", subj, err)
		}
		if len(plans) != 0 {
			t.Errorf("Plan(subject=%s) = %d plans, want 0", subj, len(plans))
		}
	}
}

// TestPlanNodeKindMismatchErrors pins the opposite edge: a known table
// whose node kind disagrees with the term kind is an error, not an
// empty stream.
func TestPlanNodeKindMismatchErrors(t *testing.T) {
	planner, _, _ := employeeFixture(t)
	subj := rdf.Blank{ID: "http://ex/Employee/id=1"}
	if _, err := planner.Plan(Pattern{Subject: subj}); err == nil {
		t.Fatal("expected a node-kind mismatch error for a blank subject of an IRI-node table")
	}
}
