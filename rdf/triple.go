package rdf

import "fmt"

// Triple is a single RDF statement. Subj is URI or Blank (a row node or
// a table IRI is never a triple's subject for the rdf:type itself —
// table IRIs only ever appear as object); Pred is always a URI; Obj is
// URI, Blank, or Literal.
type Triple struct {
	Subj Term
	Pred URI
	Obj  Term
}

// String renders the triple in N-Triples form.
func (t Triple) String() string {
	subj := nodeString(t.Subj)
	switch obj := t.Obj.(type) {
	case URI:
		return fmt.Sprintf("%s <%s> <%s> .", subj, t.Pred, obj)
	case Blank:
		return fmt.Sprintf("%s <%s> _:%s .", subj, t.Pred, obj.ID)
	case Literal:
		switch obj.DataType() {
		case XSDString, "":
			return fmt.Sprintf("%s <%s> %q .", subj, t.Pred, obj.value)
		case RDFlangString:
			return fmt.Sprintf("%s <%s> %q@%s .", subj, t.Pred, obj.value, obj.language)
		default:
			return fmt.Sprintf("%s <%s> %q^^<%s> .", subj, t.Pred, obj.value, obj.datatype)
		}
	default:
		return fmt.Sprintf("%s <%s> ? .", subj, t.Pred)
	}
}

func nodeString(t Term) string {
	switch n := t.(type) {
	case URI:
		return fmt.Sprintf("<%s>", n)
	case Blank:
		return "_:" + n.ID
	default:
		return t.String()
	}
}
