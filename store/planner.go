package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nisavid/pyrdb2rdf/rdb"
	"github.com/nisavid/pyrdb2rdf/rdberr"
	"github.com/nisavid/pyrdb2rdf/rdf"
	"github.com/nisavid/pyrdb2rdf/schema"
)

// errUnmatchable marks a pattern whose concrete subject or object is
// obviously unresolvable (unknown table, non-row-shaped node, a key
// value the column type cannot hold). Plan converts it to an empty plan
// set per spec.md §7's propagation policy: such a pattern returns no
// triples, not an error.
var errUnmatchable = errors.New("store: pattern cannot match")

// ReferenceSelection names one foreign key whose target primary-key
// columns are selected (via an outer join) alongside a table's own
// columns, so TripleStreamer can reconstruct the referenced row node
// without a second round trip.
type ReferenceSelection struct {
	FK           schema.ForeignKey
	TargetPKCols []string
	joinAlias    string
}

// TablePlan is one SQL statement QueryPlanner built for a single table,
// together with enough metadata for TripleStreamer to turn each
// returned row into triples without re-deriving the schema.
type TablePlan struct {
	Table string
	SQL   string
	Args  []interface{}

	// LocalColumns are this table's own columns, selected in this
	// exact order (first in the SELECT list).
	LocalColumns []string
	// LiteralEmitColumns is the subset of LocalColumns that should be
	// rendered as literal-property triples (spec.md §4.4 "Column
	// predicates"). Columns selected only to reconstruct the subject's
	// primary key are omitted here.
	LiteralEmitColumns []string

	// References are foreign keys whose target primary-key columns
	// follow LocalColumns in the SELECT list, each group in
	// TargetPKCols order.
	References []ReferenceSelection

	// EmitType requests a (subject, rdf:type, table-IRI) triple per row.
	EmitType bool

	// KnownSubject is set when the pattern's subject was already
	// concrete; the streamer uses it directly instead of rebuilding it
	// from LocalColumns.
	KnownSubject rdf.Term

	// FixedLiteralColumn and ObjectLiteral, when set together, request
	// emitting exactly one literal triple per selected row — (subject,
	// literal-property(Table, FixedLiteralColumn), object) — used when
	// the object is a concrete literal but the predicate is a wildcard
	// (spec.md §4.4 "Literal filtering"): the SQL already filtered to
	// rows where that column equals the literal, so no further value
	// comparison is needed at stream time. The object is the column's
	// stored value re-encoded under its SQL type; *ObjectLiteral is
	// emitted only when that value is NULL or the column is not found.
	FixedLiteralColumn string
	ObjectLiteral      *rdf.Literal

	joins      []string
	extraWhere []string
}

// QueryPlanner translates a classified Pattern into one TablePlan per
// table it touches (spec.md §4.4).
type QueryPlanner struct {
	idx     *schema.Index
	iri     *rdf.IriCodec
	codec   *rdf.ValueCodec
	dialect rdb.Dialect
}

// NewQueryPlanner builds a planner bound to one immutable schema
// snapshot, IRI codec, value codec, and backend dialect.
func NewQueryPlanner(idx *schema.Index, iri *rdf.IriCodec, codec *rdf.ValueCodec, dialect rdb.Dialect) *QueryPlanner {
	return &QueryPlanner{idx: idx, iri: iri, codec: codec, dialect: dialect}
}

// Plan builds the table plans implementing pattern, or an empty slice
// for HandlerEmpty. A pattern whose concrete subject or object cannot
// possibly resolve against the schema yields an empty slice rather
// than an error (spec.md §7); UnknownProperty and NodeKindMismatch
// still surface.
func (p *QueryPlanner) Plan(pattern Pattern) ([]TablePlan, error) {
	plans, err := p.plan(pattern)
	if errors.Is(err, errUnmatchable) {
		return nil, nil
	}
	return plans, err
}

func (p *QueryPlanner) plan(pattern Pattern) ([]TablePlan, error) {
	switch Classify(pattern) {
	case HandlerAllTablesAllPredicates:
		return p.planAllTablesAllPredicates(pattern)
	case HandlerTypePredicate:
		return p.planTypePredicate(pattern)
	case HandlerPredicateTable:
		return p.planPredicateTable(pattern, nil)
	case HandlerSubjectAllPredicates:
		return p.planSubjectAllPredicates(pattern)
	case HandlerSubjectAnyPredicateLiteral, HandlerSubjectAnyPredicateRef:
		return p.planSubjectAnyPredicate(pattern)
	case HandlerSubjectType:
		return p.planSubjectType(pattern)
	case HandlerSubjectPredicate:
		return p.planPredicateTable(pattern, pattern.Subject)
	default:
		return nil, nil
	}
}

// planAllTablesAllPredicates implements _table_allpredicates_triples
// across every table: a fully-wildcard object enumerates every
// predicate of every row (wildcardPlan); a concrete literal or node
// object is, per spec.md §4.4, still routed through this handler (the
// dispatch matrix keys on subject+predicate only) but must filter to
// the rows/columns that actually match the object, which
// planLiteralMatch/planNodeMatch do.
func (p *QueryPlanner) planAllTablesAllPredicates(pattern Pattern) ([]TablePlan, error) {
	if pattern.Object == nil {
		var plans []TablePlan
		for _, name := range p.idx.Tables() {
			plan, err := p.wildcardPlan(name, nil)
			if err != nil {
				return nil, err
			}
			plans = append(plans, plan)
		}
		return plans, nil
	}
	if lit, ok := pattern.Object.(rdf.Literal); ok {
		return p.planLiteralMatch(p.idx.Tables(), lit, nil)
	}
	return p.planNodeMatch(p.idx.Tables(), pattern.Object, nil)
}

// planLiteralMatch builds one TablePlan per (table, column) pair whose
// column's SQL type accepts lit's datatype, each selecting rows whose
// column equals the decoded value of lit. When subjectNode is non-nil
// the search is further restricted to that one row (used by the
// subject-concrete "Node, Any, Literal" handler); tables is then just
// that row's table. Grounded on stores.py's
// _table_allpredicates_triples / _subject_triples literal branches,
// which both filter candidate columns by
// sql_literal_types_from_rdf(object_pattern.datatype) before testing
// equality.
func (p *QueryPlanner) planLiteralMatch(tables []string, lit rdf.Literal, subjectNode *rdf.RowNode) ([]TablePlan, error) {
	candidateTypes := p.codec.SQLTypesForDatatype(lit.DataType())
	val, err := p.codec.SQLValueFromRDF(lit)
	if err != nil {
		return nil, &rdberr.ValueDecodeError{Literal: lit.String(), Datatype: string(lit.DataType()), Cause: err}
	}
	litCopy := lit

	var plans []TablePlan
	for _, name := range tables {
		t, ok := p.idx.Table(name)
		if !ok {
			continue
		}
		keyCols, err := p.idx.KeyColumns(name)
		if err != nil {
			return nil, err
		}
		for _, col := range t.Columns {
			if !sqlTypeIn(col.SQLType, candidateTypes) || isForeignKeyMember(t, col.Name) {
				continue
			}
			plan := TablePlan{
				Table:              name,
				LocalColumns:       append([]string(nil), keyCols...),
				FixedLiteralColumn: col.Name,
				ObjectLiteral:      &litCopy,
			}
			// The matched column rides along in the selection so the
			// streamer re-encodes the stored value under the column's own
			// SQL type, rather than echoing the pattern literal (whose
			// lexical form may be looser, spec.md §4.5).
			if !containsString(plan.LocalColumns, col.Name) {
				plan.LocalColumns = append(plan.LocalColumns, col.Name)
			}
			if subjectNode != nil {
				if err := p.filterByKey(&plan, *subjectNode); err != nil {
					return nil, err
				}
			}
			plan.Args = append(plan.Args, sqlValueArg(val))
			plan.extraWhere = append(plan.extraWhere, fmt.Sprintf("%s.%s = %s",
				p.dialect.QuoteIdentifier(name), p.dialect.QuoteIdentifier(col.Name),
				p.dialect.Placeholder(len(plan.Args))))
			p.finalizeSelect(&plan, t)
			plans = append(plans, plan)
		}
	}
	return plans, nil
}

func sqlTypeIn(t rdf.SQLType, types []rdf.SQLType) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}

// planNodeMatch builds the plans for an object that is a concrete IRI
// or blank node but whose predicate is a wildcard. Two shapes match,
// mirroring stores.py's _table_allpredicates_triples /
// _subject_triples IRI/BNode branches:
//
//   - the object equals some table's table-IRI: every row of that
//     table (restricted to subjectNode's row, if given) gets its
//     rdf:type triple, since rdf:type is among the wildcard predicates.
//   - the object parses as a row node: every foreign key whose target
//     table matches gets an inner-joined reference-triple plan.
func (p *QueryPlanner) planNodeMatch(tables []string, object rdf.Term, subjectNode *rdf.RowNode) ([]TablePlan, error) {
	var objStr string
	var objIsBlank bool
	switch v := object.(type) {
	case rdf.URI:
		objStr = string(v)
	case rdf.Blank:
		objStr = v.ID
		objIsBlank = true
	default:
		return nil, nil
	}

	var plans []TablePlan

	if uri, isURI := object.(rdf.URI); isURI {
		if objTable, ok := p.tableOfIRI(uri); ok {
			for _, name := range tables {
				if name != objTable {
					continue
				}
				t, ok := p.idx.Table(name)
				if !ok {
					continue
				}
				keyCols, err := p.idx.KeyColumns(name)
				if err != nil {
					return nil, err
				}
				plan := TablePlan{Table: name, LocalColumns: append([]string(nil), keyCols...), EmitType: true}
				if subjectNode != nil {
					if err := p.filterByKey(&plan, *subjectNode); err != nil {
						return nil, err
					}
				}
				p.finalizeSelect(&plan, t)
				plans = append(plans, plan)
			}
		}
	}

	targetNode, err := p.iri.ParseRowNode(objStr)
	if err == nil && p.idx.IsBlankNodeTable(targetNode.Table) == objIsBlank {
		for _, in := range p.idx.ReferencingForeignKeys(targetNode.Table) {
			if !containsString(tables, in.Table) {
				continue
			}
			t, ok := p.idx.Table(in.Table)
			if !ok {
				continue
			}
			keyCols, err := p.idx.KeyColumns(in.Table)
			if err != nil {
				return nil, err
			}
			plan := TablePlan{Table: in.Table, LocalColumns: append([]string(nil), keyCols...)}
			if subjectNode != nil {
				if err := p.filterByKey(&plan, *subjectNode); err != nil {
					return nil, err
				}
			}
			ref, err := p.addReference(&plan, t, in.FK, true)
			if err != nil {
				return nil, err
			}
			if err := p.filterReferenceTarget(&plan, ref, targetNode); err != nil {
				if errors.Is(err, errUnmatchable) {
					continue
				}
				return nil, err
			}
			plan.References = append(plan.References, ref)
			p.finalizeSelect(&plan, t)
			plans = append(plans, plan)
		}
	}

	return plans, nil
}

func (p *QueryPlanner) planSubjectAllPredicates(pattern Pattern) ([]TablePlan, error) {
	node, err := p.rowNodeOf(pattern.Subject)
	if err != nil {
		return nil, err
	}
	plan, err := p.wildcardPlan(node.Table, pattern.Subject)
	if err != nil {
		return nil, err
	}
	if err := p.filterByKey(&plan, node); err != nil {
		return nil, err
	}
	return []TablePlan{plan}, nil
}

// wildcardPlan builds the "every predicate of this table" query shared
// by the subject-Any and subject-concrete wildcard handlers.
func (p *QueryPlanner) wildcardPlan(table string, subject rdf.Term) (TablePlan, error) {
	t, ok := p.idx.Table(table)
	if !ok {
		return TablePlan{}, fmt.Errorf("store: unknown table %q", table)
	}
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = c.Name
	}

	plan := TablePlan{
		Table:              table,
		LocalColumns:       cols,
		LiteralEmitColumns: literalColumns(t),
		EmitType:           true,
		KnownSubject:       subject,
	}
	for _, fk := range t.ForeignKeys {
		ref, err := p.addReference(&plan, t, fk, false)
		if err != nil {
			return TablePlan{}, err
		}
		plan.References = append(plan.References, ref)
	}
	p.finalizeSelect(&plan, t)
	return plan, nil
}

func (p *QueryPlanner) planTypePredicate(pattern Pattern) ([]TablePlan, error) {
	var tables []string
	if pattern.Object == nil {
		tables = p.idx.Tables()
	} else {
		uri, ok := pattern.Object.(rdf.URI)
		if !ok {
			return nil, nil
		}
		table, ok := p.tableOfIRI(uri)
		if !ok {
			return nil, nil
		}
		tables = []string{table}
	}

	var plans []TablePlan
	for _, name := range tables {
		t, ok := p.idx.Table(name)
		if !ok {
			continue
		}
		keyCols, err := p.idx.KeyColumns(name)
		if err != nil {
			return nil, err
		}
		plan := TablePlan{Table: name, LocalColumns: keyCols, EmitType: true}
		p.finalizeSelect(&plan, t)
		plans = append(plans, plan)
	}
	return plans, nil
}

// tableOfIRI resolves a table IRI back to its table name by comparing
// against each table's minted IRI, so percent-encoded names resolve
// the same way they render.
func (p *QueryPlanner) tableOfIRI(uri rdf.URI) (string, bool) {
	if _, ok := p.iri.Unprefix(string(uri)); !ok {
		return "", false
	}
	for _, name := range p.idx.Tables() {
		if uri == p.iri.TableIRI(name) {
			return name, true
		}
	}
	return "", false
}

func (p *QueryPlanner) planPredicateTable(pattern Pattern, knownSubject rdf.Term) ([]TablePlan, error) {
	pred, err := p.iri.ParsePredicateIRI(*pattern.Predicate)
	if err != nil {
		return nil, nil
	}
	t, ok := p.idx.Table(pred.Table)
	if !ok {
		return nil, &rdberr.UnknownProperty{IRI: string(*pattern.Predicate)}
	}
	keyCols, err := p.idx.KeyColumns(pred.Table)
	if err != nil {
		return nil, err
	}

	plan := TablePlan{Table: pred.Table, LocalColumns: append([]string(nil), keyCols...), KnownSubject: knownSubject}

	switch pred.Kind {
	case rdf.PredicateLiteralProperty:
		col, ok := t.Column(pred.Column)
		if !ok {
			return nil, &rdberr.UnknownProperty{IRI: string(*pattern.Predicate)}
		}
		if isForeignKeyMember(t, col.Name) {
			// Foreign-key members surface only as reference properties;
			// their literal-property IRI never has assertions.
			return nil, errUnmatchable
		}
		if !containsString(plan.LocalColumns, pred.Column) {
			plan.LocalColumns = append(plan.LocalColumns, pred.Column)
		}
		plan.LiteralEmitColumns = []string{pred.Column}
		switch obj := pattern.Object.(type) {
		case nil:
			plan.extraWhere = append(plan.extraWhere, fmt.Sprintf("%s.%s IS NOT NULL",
				p.dialect.QuoteIdentifier(t.Name), p.dialect.QuoteIdentifier(pred.Column)))
		case rdf.Literal:
			val, err := p.codec.SQLValueFromRDF(obj)
			if err != nil {
				return nil, err
			}
			if !sqlTypeIn(col.SQLType, p.codec.SQLTypesForDatatype(obj.DataType())) {
				return nil, errUnmatchable
			}
			plan.Args = append(plan.Args, sqlValueArg(val))
			plan.extraWhere = append(plan.extraWhere, fmt.Sprintf("%s.%s = %s",
				p.dialect.QuoteIdentifier(t.Name), p.dialect.QuoteIdentifier(pred.Column),
				p.dialect.Placeholder(len(plan.Args))))
		default:
			// A node object never matches a literal property.
			return nil, errUnmatchable
		}
	case rdf.PredicateReferenceProperty:
		var fk *schema.ForeignKey
		for i := range t.ForeignKeys {
			if sameColumnSet(t.ForeignKeys[i].Columns, pred.FKCols) {
				fk = &t.ForeignKeys[i]
				break
			}
		}
		if fk == nil {
			return nil, &rdberr.UnknownProperty{IRI: string(*pattern.Predicate)}
		}
		ref, err := p.addReference(&plan, t, *fk, pattern.Object != nil)
		if err != nil {
			return nil, err
		}
		if pattern.Object != nil {
			var objStr string
			var objIsBlank bool
			switch v := pattern.Object.(type) {
			case rdf.URI:
				objStr = string(v)
			case rdf.Blank:
				objStr, objIsBlank = v.ID, true
			default:
				// A literal object never matches a reference property.
				return nil, errUnmatchable
			}
			target, err := p.iri.ParseRowNode(objStr)
			if err != nil {
				return nil, errUnmatchable
			}
			if target.Table != fk.RefTable || p.idx.IsBlankNodeTable(target.Table) != objIsBlank {
				return nil, errUnmatchable
			}
			if err := p.filterReferenceTarget(&plan, ref, target); err != nil {
				return nil, err
			}
		}
		plan.References = append(plan.References, ref)
	default:
		return nil, nil
	}

	if knownSubject != nil {
		node, err := p.rowNodeOf(knownSubject)
		if err != nil {
			return nil, err
		}
		if err := p.filterByKey(&plan, node); err != nil {
			return nil, err
		}
	}

	p.finalizeSelect(&plan, t)
	return []TablePlan{plan}, nil
}

// planSubjectAnyPredicate covers "Node, Any, Literal" and "Node, Any,
// IRI/Blank": the subject row is known, but which predicate produced
// the given object is not, so candidate columns/relationships must be
// narrowed and equality-checked rather than enumerated wholesale.
// Delegates to the same planLiteralMatch/planNodeMatch the
// all-tables-all-predicates handler uses, scoped to the one subject
// row via subjectNode.
func (p *QueryPlanner) planSubjectAnyPredicate(pattern Pattern) ([]TablePlan, error) {
	node, err := p.rowNodeOf(pattern.Subject)
	if err != nil {
		return nil, err
	}
	if lit, ok := pattern.Object.(rdf.Literal); ok {
		return p.planLiteralMatch([]string{node.Table}, lit, &node)
	}
	return p.planNodeMatch([]string{node.Table}, pattern.Object, &node)
}

func (p *QueryPlanner) planSubjectType(pattern Pattern) ([]TablePlan, error) {
	node, err := p.rowNodeOf(pattern.Subject)
	if err != nil {
		return nil, err
	}
	if pattern.Object != nil {
		uri, ok := pattern.Object.(rdf.URI)
		if !ok {
			return nil, nil
		}
		table, ok := p.tableOfIRI(uri)
		if !ok || table != node.Table {
			return nil, nil
		}
	}
	t, ok := p.idx.Table(node.Table)
	if !ok {
		return nil, fmt.Errorf("store: unknown table %q", node.Table)
	}
	plan := TablePlan{Table: node.Table, LocalColumns: append([]string(nil), node.Cols...), EmitType: true, KnownSubject: pattern.Subject}
	if err := p.filterByKey(&plan, node); err != nil {
		return nil, err
	}
	p.finalizeSelect(&plan, t)
	return []TablePlan{plan}, nil
}

// rowNodeOf parses a concrete subject term into its row-node parts,
// checking the node-kind invariant (spec.md §4.2 invariant 6). A node
// that does not parse, or that names a table absent from the schema,
// is unmatchable; a kind mismatch against a known table is an error.
func (p *QueryPlanner) rowNodeOf(subject rdf.Term) (rdf.RowNode, error) {
	var s string
	var isBlank bool
	switch v := subject.(type) {
	case rdf.URI:
		s = string(v)
	case rdf.Blank:
		s = v.ID
		isBlank = true
	default:
		return rdf.RowNode{}, errUnmatchable
	}
	node, err := p.iri.ParseRowNode(s)
	if err != nil {
		return rdf.RowNode{}, errUnmatchable
	}
	if _, ok := p.idx.Table(node.Table); !ok {
		return rdf.RowNode{}, errUnmatchable
	}
	if p.idx.IsBlankNodeTable(node.Table) != isBlank {
		return rdf.RowNode{}, &rdberr.NodeKindMismatch{Node: s, WantBlankNode: p.idx.IsBlankNodeTable(node.Table), GotBlankNode: isBlank}
	}
	return node, nil
}

// typedArg decodes a row-node value's lexical form into the Go value
// the column's SQL type binds as, so key filters compare typed values
// rather than text (Postgres rejects integer = text outright). A value
// the column type cannot hold makes the pattern unmatchable.
func (p *QueryPlanner) typedArg(table, column, lexical string) (interface{}, error) {
	t, ok := p.idx.Table(table)
	if !ok {
		return nil, errUnmatchable
	}
	c, ok := t.Column(column)
	if !ok {
		return nil, errUnmatchable
	}
	v, err := p.codec.ValueFromText(c.SQLType, lexical)
	if err != nil {
		return nil, errUnmatchable
	}
	return sqlValueArg(v), nil
}

func (p *QueryPlanner) filterByKey(plan *TablePlan, node rdf.RowNode) error {
	for i, col := range node.Cols {
		arg, err := p.typedArg(plan.Table, col, node.Vals[i])
		if err != nil {
			return err
		}
		plan.Args = append(plan.Args, arg)
		plan.extraWhere = append(plan.extraWhere, fmt.Sprintf("%s.%s = %s",
			p.dialect.QuoteIdentifier(plan.Table), p.dialect.QuoteIdentifier(col),
			p.dialect.Placeholder(len(plan.Args))))
	}
	return nil
}

// filterReferenceTarget adds equality filters on the local foreign-key
// columns so only rows referencing the given target row match. Column
// correspondence is by referenced-column name, falling back to the
// target's effective key order for foreign keys declared without
// explicit referenced columns.
func (p *QueryPlanner) filterReferenceTarget(plan *TablePlan, ref ReferenceSelection, target rdf.RowNode) error {
	valByCol := make(map[string]string, len(target.Cols))
	for i, col := range target.Cols {
		valByCol[col] = target.Vals[i]
	}
	for i, localCol := range ref.FK.Columns {
		var targetCol string
		switch {
		case i < len(ref.FK.RefColumns):
			targetCol = ref.FK.RefColumns[i]
		case i < len(ref.TargetPKCols):
			targetCol = ref.TargetPKCols[i]
		default:
			return errUnmatchable
		}
		val, ok := valByCol[targetCol]
		if !ok {
			return errUnmatchable
		}
		arg, err := p.typedArg(plan.Table, localCol, val)
		if err != nil {
			return err
		}
		plan.Args = append(plan.Args, arg)
		plan.extraWhere = append(plan.extraWhere, fmt.Sprintf("%s.%s = %s",
			p.dialect.QuoteIdentifier(plan.Table), p.dialect.QuoteIdentifier(localCol),
			p.dialect.Placeholder(len(plan.Args))))
	}
	return nil
}

func (p *QueryPlanner) addReference(plan *TablePlan, t *schema.Table, fk schema.ForeignKey, innerJoin bool) (ReferenceSelection, error) {
	targetKeyCols, err := p.idx.KeyColumns(fk.RefTable)
	if err != nil {
		return ReferenceSelection{}, err
	}
	alias := fmt.Sprintf("ref_%d", len(plan.joins))
	joinKind := "LEFT JOIN"
	if innerJoin {
		joinKind = "INNER JOIN"
	}
	var onClauses []string
	for i, localCol := range fk.Columns {
		if i >= len(targetKeyCols) {
			break
		}
		onClauses = append(onClauses, fmt.Sprintf("%s.%s = %s.%s",
			p.dialect.QuoteIdentifier(t.Name), p.dialect.QuoteIdentifier(localCol),
			alias, p.dialect.QuoteIdentifier(targetKeyCols[i])))
	}
	plan.joins = append(plan.joins, fmt.Sprintf("%s %s AS %s ON %s",
		joinKind, p.dialect.QuoteIdentifier(fk.RefTable), alias, strings.Join(onClauses, " AND ")))
	return ReferenceSelection{FK: fk, TargetPKCols: targetKeyCols, joinAlias: alias}, nil
}

// finalizeSelect assembles the SELECT list, FROM/JOIN clauses, and
// WHERE clause accumulated on plan into its final SQL text.
func (p *QueryPlanner) finalizeSelect(plan *TablePlan, t *schema.Table) {
	var sel []string
	for _, col := range plan.LocalColumns {
		sel = append(sel, fmt.Sprintf("%s.%s", p.dialect.QuoteIdentifier(t.Name), p.dialect.QuoteIdentifier(col)))
	}
	for _, ref := range plan.References {
		for _, col := range ref.TargetPKCols {
			sel = append(sel, fmt.Sprintf("%s.%s", ref.joinAlias, p.dialect.QuoteIdentifier(col)))
		}
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(sel, ", "))
	b.WriteString(" FROM ")
	b.WriteString(p.dialect.QuoteIdentifier(t.Name))
	for _, j := range plan.joins {
		b.WriteByte(' ')
		b.WriteString(j)
	}
	if len(plan.extraWhere) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(plan.extraWhere, " AND "))
	}
	plan.SQL = b.String()
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// sameColumnSet reports whether a and b name the same columns,
// ignoring order: a reference property's identifier is an unordered set
// of local column names (spec.md §4.2).
func sameColumnSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for _, x := range a {
		if !containsString(b, x) {
			return false
		}
	}
	return true
}

// isForeignKeyMember reports whether col participates in any of t's
// foreign keys. Such columns surface as reference properties, not
// literal ones: a row's foreign-key value appears in its reference
// triple's object, never as a literal triple of its own.
func isForeignKeyMember(t *schema.Table, col string) bool {
	for _, fk := range t.ForeignKeys {
		if containsString(fk.Columns, col) {
			return true
		}
	}
	return false
}

// literalColumns returns t's columns that emit literal-property
// triples, in declared order: every column not claimed by a foreign
// key.
func literalColumns(t *schema.Table) []string {
	var out []string
	for _, c := range t.Columns {
		if !isForeignKeyMember(t, c.Name) {
			out = append(out, c.Name)
		}
	}
	return out
}

// CountQuery builds the single aggregate statement counting every
// triple table contributes (spec.md §4.4 "Counting"): one type triple
// per row with a non-null key column, one triple per non-null literal
// column value, and one per foreign key whose local columns are all
// non-null.
func (p *QueryPlanner) CountQuery(table string) (string, error) {
	t, ok := p.idx.Table(table)
	if !ok {
		return "", fmt.Errorf("store: unknown table %q", table)
	}
	keyCols, err := p.idx.KeyColumns(table)
	if err != nil {
		return "", err
	}

	terms := []string{fmt.Sprintf("COUNT(%s)", p.dialect.QuoteIdentifier(keyCols[0]))}
	for _, col := range literalColumns(t) {
		terms = append(terms, fmt.Sprintf(
			"COALESCE(SUM(CASE WHEN %s IS NULL THEN 0 ELSE 1 END), 0)",
			p.dialect.QuoteIdentifier(col)))
	}
	for _, fk := range t.ForeignKeys {
		conds := make([]string, len(fk.Columns))
		for i, col := range fk.Columns {
			conds[i] = fmt.Sprintf("%s IS NOT NULL", p.dialect.QuoteIdentifier(col))
		}
		terms = append(terms, fmt.Sprintf(
			"COALESCE(SUM(CASE WHEN %s THEN 1 ELSE 0 END), 0)",
			strings.Join(conds, " AND ")))
	}
	return fmt.Sprintf("SELECT %s FROM %s",
		strings.Join(terms, " + "), p.dialect.QuoteIdentifier(t.Name)), nil
}

func sqlValueArg(v rdf.Value) interface{} {
	switch v.Kind {
	case rdf.SQLBoolean:
		return v.Bool
	case rdf.SQLInteger:
		return v.Int
	case rdf.SQLFloat:
		return v.Float
	case rdf.SQLBinary:
		return v.Binary
	case rdf.SQLDate, rdf.SQLDateTime, rdf.SQLTime:
		return v.Time
	default:
		return v.Text
	}
}
