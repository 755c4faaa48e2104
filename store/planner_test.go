package store

import (
	"strings"
	"testing"

	"github.com/nisavid/pyrdb2rdf/rdb"
	"github.com/nisavid/pyrdb2rdf/rdf"
	"github.com/nisavid/pyrdb2rdf/schema"
)

// testSchema builds a tiny two-table catalog: authors (declared primary
// key, so its rows are IRI nodes) and books (a foreign key to authors,
// plus no declared primary key of its own, so its rows are blank
// nodes). This mirrors the declared-vs-synthesized key split spec.md
// §4.3 distinguishes.
func testSchema() *schema.Schema {
	return &schema.Schema{Tables: []schema.Table{
		{
			Name: "authors",
			Columns: []schema.Column{
				{Name: "id", Position: 0, SQLType: rdf.SQLInteger},
				{Name: "name", Position: 1, SQLType: rdf.SQLString},
			},
			PrimaryKey: &schema.TableIndex{Name: "authors_pkey", Columns: []string{"id"}, Unique: true, Primary: true},
		},
		{
			Name: "books",
			Columns: []schema.Column{
				{Name: "author_id", Position: 0, SQLType: rdf.SQLInteger},
				{Name: "title", Position: 1, SQLType: rdf.SQLString},
			},
			ForeignKeys: []schema.ForeignKey{
				{Name: "books_author_fk", Columns: []string{"author_id"}, RefTable: "authors", RefColumns: []string{"id"}},
			},
		},
	}}
}

func testPlanner(t *testing.T) (*QueryPlanner, *schema.Index) {
	t.Helper()
	idx, err := schema.BuildIndex(testSchema())
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	iri := rdf.NewIriCodec("http://x/db/")
	codec := rdf.NewValueCodec()
	dialect := rdb.Capabilities[rdb.DialectSQLite]
	return NewQueryPlanner(idx, iri, codec, dialect), idx
}

func planForTable(t *testing.T, plans []TablePlan, table string) *TablePlan {
	t.Helper()
	for i := range plans {
		if plans[i].Table == table {
			return &plans[i]
		}
	}
	t.Fatalf("no plan for table %q among %d plans", table, len(plans))
	return nil
}

func TestIndexBlankNodeFlagsMatchKeyProvenance(t *testing.T) {
	_, idx := testPlanner(t)
	if idx.IsBlankNodeTable("authors") {
		t.Error("authors has a declared primary key and must not be a blank-node table")
	}
	if !idx.IsBlankNodeTable("books") {
		t.Error("books has no declared primary key and must be a blank-node table")
	}
}

func TestPlanWildcardPattern(t *testing.T) {
	p, _ := testPlanner(t)
	plans, err := p.Plan(Pattern{})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plans) != 2 {
		t.Fatalf("Plan(wildcard) produced %d plans, want one per table (2)", len(plans))
	}
	authors := planForTable(t, plans, "authors")
	if !authors.EmitType {
		t.Error("wildcard plan for authors must request a type triple")
	}
	if len(authors.LiteralEmitColumns) != 2 {
		t.Errorf("authors wildcard plan emits %v literal columns, want both id and name", authors.LiteralEmitColumns)
	}
}

func TestPlanTypePredicateNarrowsToOneTable(t *testing.T) {
	p, _ := testPlanner(t)
	typePred := rdf.RDFtype
	obj := rdf.URI("http://x/db/authors")
	plans, err := p.Plan(Pattern{Predicate: &typePred, Object: obj})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plans) != 1 || plans[0].Table != "authors" {
		t.Fatalf("Plan(rdf:type, authors table IRI) = %+v, want exactly one plan for authors", plans)
	}
}

func TestPlanSubjectAnyPredicateLiteralFiltersToMatchingColumn(t *testing.T) {
	p, _ := testPlanner(t)
	iri := rdf.NewIriCodec("http://x/db/")
	subj := rdf.URI(iri.FormatRowNode("authors", []string{"id"}, []string{"1"}))
	lit := rdf.NewTypedLiteral("Jane Austen", rdf.XSDString)

	plans, err := p.Plan(Pattern{Subject: subj, Object: lit})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plans) != 1 {
		t.Fatalf("Plan(subject, any, literal) = %d plans, want exactly 1 (only the name column is string-typed)", len(plans))
	}
	plan := plans[0]
	if plan.FixedLiteralColumn != "name" {
		t.Errorf("FixedLiteralColumn = %q, want %q", plan.FixedLiteralColumn, "name")
	}
	if plan.ObjectLiteral == nil || plan.ObjectLiteral.String() != "Jane Austen" {
		t.Errorf("ObjectLiteral = %v, want \"Jane Austen\"", plan.ObjectLiteral)
	}
	if !strings.Contains(plan.SQL, "name") {
		t.Errorf("SQL %q does not reference the filtered column", plan.SQL)
	}
}

func TestPlanSubjectAnyPredicateRefMatchesForeignKey(t *testing.T) {
	p, _ := testPlanner(t)
	iri := rdf.NewIriCodec("http://x/db/")
	subj := rdf.Blank{ID: iri.FormatRowNode("books", []string{"author_id", "title"}, []string{"1", "Emma"})}
	obj := rdf.URI(iri.FormatRowNode("authors", []string{"id"}, []string{"1"}))

	plans, err := p.Plan(Pattern{Subject: subj, Object: obj})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plans) != 1 || plans[0].Table != "books" {
		t.Fatalf("Plan(subject, any, ref) = %+v, want exactly one books plan", plans)
	}
	if len(plans[0].References) != 1 {
		t.Errorf("books plan has %d references, want 1 (the author foreign key)", len(plans[0].References))
	}
}

func TestPlanPredicateTableUnknownColumnErrors(t *testing.T) {
	p, _ := testPlanner(t)
	iri := rdf.NewIriCodec("http://x/db/")
	pred := rdf.URI(iri.FormatLiteralProperty("authors", "nonexistent"))
	_, err := p.Plan(Pattern{Predicate: &pred})
	if err == nil {
		t.Fatal("expected an error for a predicate IRI whose column does not exist")
	}
}

func TestPlanUntypedLiteralMatchesStringColumns(t *testing.T) {
	p, _ := testPlanner(t)
	iri := rdf.NewIriCodec("http://x/db/")

	lit := rdf.NewTypedLiteral("Jane Austen", "")
	plans, err := p.Plan(Pattern{Object: lit})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	// Untyped literals fall back to String columns: authors.name and
	// books.title, one plan each.
	if len(plans) != 2 {
		t.Fatalf("Plan(any, any, untyped literal) = %d plans, want 2", len(plans))
	}

	pred := iri.FormatLiteralProperty("authors", "name")
	plans, err = p.Plan(Pattern{Predicate: &pred, Object: lit})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plans) != 1 {
		t.Fatalf("Plan(any, name property, untyped literal) = %d plans, want 1", len(plans))
	}
}

func TestPlanAllTablesAllPredicatesLiteralFiltersAcrossTables(t *testing.T) {
	p, _ := testPlanner(t)
	lit := rdf.NewTypedLiteral("Emma", rdf.XSDString)
	plans, err := p.Plan(Pattern{Object: lit})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	// Both tables declare a string column (authors.name, books.title),
	// so each contributes one column-scoped plan.
	if len(plans) != 2 {
		t.Fatalf("Plan(any, any, literal) = %d plans, want 2 (one per string column)", len(plans))
	}
	for _, pl := range plans {
		if pl.FixedLiteralColumn == "" {
			t.Errorf("plan for %s has no FixedLiteralColumn despite a concrete literal object", pl.Table)
		}
	}
}
