// Package store implements the triple-pattern-to-SQL translation and
// the read-only StoreFacade built on top of it: PatternDispatcher,
// QueryPlanner, and TripleStreamer. Grounded on
// _examples/original_source/rdb2rdf/stores.py's DirectMapping.triples
// dispatch cascade for handler semantics, and on
// _examples/boutros-sopp/db.go's Describe/Import/Dump control flow for
// the Go idiom (cursor-driven, one row at a time, no whole-result-set
// buffering).
package store

import "github.com/nisavid/pyrdb2rdf/rdf"

// Handler names the nine-way dispatch outcome of spec.md §4.4's matrix.
type Handler int

const (
	HandlerEmpty Handler = iota
	HandlerAllTablesAllPredicates
	HandlerTypePredicate
	HandlerPredicateTable
	HandlerSubjectAllPredicates
	HandlerSubjectAnyPredicateLiteral
	HandlerSubjectAnyPredicateRef
	HandlerSubjectType
	HandlerSubjectPredicate
)

func (h Handler) String() string {
	switch h {
	case HandlerAllTablesAllPredicates:
		return "all_tables_all_predicates"
	case HandlerTypePredicate:
		return "type_predicate"
	case HandlerPredicateTable:
		return "predicate_table"
	case HandlerSubjectAllPredicates:
		return "subject_all_predicates"
	case HandlerSubjectAnyPredicateLiteral:
		return "subject_any_predicate_literal"
	case HandlerSubjectAnyPredicateRef:
		return "subject_any_predicate_ref"
	case HandlerSubjectType:
		return "subject_type"
	case HandlerSubjectPredicate:
		return "subject_predicate"
	default:
		return "empty"
	}
}

// Pattern is a triple pattern: each slot is either wildcard (nil) or a
// concrete term. Subject, when concrete, is rdf.URI or rdf.Blank.
// Predicate, when concrete, is always an rdf.URI. Object, when
// concrete, is rdf.URI, rdf.Blank, or rdf.Literal.
type Pattern struct {
	Subject   rdf.Term
	Predicate *rdf.URI
	Object    rdf.Term
}

func isRDFType(p *rdf.URI) bool { return p != nil && *p == rdf.RDFtype }

func nodeTerm(t rdf.Term) bool {
	switch t.(type) {
	case rdf.URI, rdf.Blank:
		return true
	default:
		return false
	}
}

// Classify implements spec.md §4.4's dispatch matrix.
func Classify(p Pattern) Handler {
	subjAny := p.Subject == nil
	predAny := p.Predicate == nil
	objAny := p.Object == nil

	switch {
	case subjAny && predAny:
		return HandlerAllTablesAllPredicates
	case subjAny && isRDFType(p.Predicate):
		return HandlerTypePredicate
	case subjAny && !predAny:
		return HandlerPredicateTable
	case !subjAny && nodeTerm(p.Subject) && predAny && objAny:
		return HandlerSubjectAllPredicates
	case !subjAny && nodeTerm(p.Subject) && predAny:
		if _, ok := p.Object.(rdf.Literal); ok {
			return HandlerSubjectAnyPredicateLiteral
		}
		if nodeTerm(p.Object) {
			return HandlerSubjectAnyPredicateRef
		}
		return HandlerEmpty
	case !subjAny && nodeTerm(p.Subject) && isRDFType(p.Predicate):
		return HandlerSubjectType
	case !subjAny && nodeTerm(p.Subject) && !predAny:
		return HandlerSubjectPredicate
	default:
		return HandlerEmpty
	}
}
