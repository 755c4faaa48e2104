package rdf

import (
	"fmt"
	"strings"

	"github.com/nisavid/pyrdb2rdf/rdberr"
)

// IriCodec builds and parses the three IRI shapes this store mints:
//
//   - table IRI:      <base><table>
//   - row node:        <base><table>/col1=val1;col2=val2;...   (or a blank
//     node with the same "col=val;..." local form when the table has no
//     genuine primary key)
//   - literal property:   <base><table>#<column>
//   - reference property: <base><table>#ref-<col1>;<col2>;...
//
// grounded on _examples/original_source/rdb2rdf/stores.py's
// _row_str_from_sql / _parse_row_node / _predicate_orm_attr /
// _literal_property_iri / _ref_property_iri / _unprefixed_iri.
type IriCodec struct {
	Base string
}

// NewIriCodec returns a codec minting IRIs under the given base, which
// must already end in a separator character ('/' or '#') per spec.md §4.2.
func NewIriCodec(base string) *IriCodec { return &IriCodec{Base: base} }

// TableIRI returns the IRI identifying an entire table (used as the
// object of rdf:type triples).
func (c *IriCodec) TableIRI(table string) URI {
	return URI(c.Base + escapeIRISegment(table))
}

// percentEscape is the minimal percent-encoding this codec needs: it
// leaves RFC 3986 unreserved characters (ALPHA / DIGIT / "-" / "." / "_"
// / "~") untouched and percent-encodes everything else, including the
// row-node grammar's own delimiters ('=', ';', '/') when they occur
// inside a column name or value rather than as a delimiter. This is
// written by hand rather than via net/url, whose Query/Path escapers
// leave different byte sets unescaped than the grammar in spec.md §4.2
// calls for.
func percentEscape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if isUnreserved(ch) {
			b.WriteByte(ch)
		} else {
			fmt.Fprintf(&b, "%%%02X", ch)
		}
	}
	return b.String()
}

func isUnreserved(ch byte) bool {
	switch {
	case ch >= 'A' && ch <= 'Z', ch >= 'a' && ch <= 'z', ch >= '0' && ch <= '9':
		return true
	case ch == '-' || ch == '.' || ch == '_' || ch == '~':
		return true
	}
	return false
}

func percentUnescape(s string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '%' {
			if i+2 >= len(s) {
				return "", fmt.Errorf("truncated percent-escape in %q", s)
			}
			var v int
			if _, err := fmt.Sscanf(s[i+1:i+3], "%02X", &v); err != nil {
				return "", fmt.Errorf("invalid percent-escape %q", s[i:i+3])
			}
			b.WriteByte(byte(v))
			i += 2
		} else {
			b.WriteByte(s[i])
		}
	}
	return b.String(), nil
}

func escapeIRISegment(s string) string { return percentEscape(s) }

// FormatRowNode renders a row's node per §4.2: the table IRI, a slash,
// then "col=val;col=val;..." over the primary (or pseudo-primary) key
// columns in declared column order, each column name and value
// percent-escaped. cols and vals must be the same length and already in
// the order the key is declared.
func (c *IriCodec) FormatRowNode(table string, cols []string, vals []string) string {
	var b strings.Builder
	b.WriteString(c.Base)
	b.WriteString(escapeIRISegment(table))
	b.WriteByte('/')
	for i, col := range cols {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(percentEscape(col))
		b.WriteByte('=')
		b.WriteString(percentEscape(vals[i]))
	}
	return b.String()
}

// RowNode is a parsed row-node local part: the key-column/value pairs
// in the order they appeared in the IRI.
type RowNode struct {
	Table string
	Cols  []string
	Vals  []string
}

// ParseRowNode is the inverse of FormatRowNode, ported from
// stores.py's _parse_row_node. It rejects a node missing the table
// prefix, or whose local part is not a well-formed "col=val;..." list.
func (c *IriCodec) ParseRowNode(node string) (RowNode, error) {
	rest, ok := c.Unprefix(node)
	if !ok {
		return RowNode{}, &rdberr.InvalidNodeSyntax{Node: node, Reason: "missing base IRI prefix"}
	}
	slash := strings.IndexByte(rest, '/')
	if slash < 0 {
		return RowNode{}, &rdberr.InvalidNodeSyntax{Node: node, Reason: "missing '/' separating table from row key"}
	}
	tableEsc, localPart := rest[:slash], rest[slash+1:]
	table, err := percentUnescape(tableEsc)
	if err != nil {
		return RowNode{}, &rdberr.InvalidNodeSyntax{Node: node, Reason: err.Error()}
	}
	if localPart == "" {
		return RowNode{}, &rdberr.InvalidNodeSyntax{Node: node, Reason: "empty row key"}
	}
	var cols, vals []string
	for _, pair := range strings.Split(localPart, ";") {
		eq := strings.IndexByte(pair, '=')
		if eq < 0 {
			return RowNode{}, &rdberr.InvalidNodeSyntax{Node: node, Reason: fmt.Sprintf("key/value pair %q missing '='", pair)}
		}
		col, err := percentUnescape(pair[:eq])
		if err != nil {
			return RowNode{}, &rdberr.InvalidNodeSyntax{Node: node, Reason: err.Error()}
		}
		val, err := percentUnescape(pair[eq+1:])
		if err != nil {
			return RowNode{}, &rdberr.InvalidNodeSyntax{Node: node, Reason: err.Error()}
		}
		cols = append(cols, col)
		vals = append(vals, val)
	}
	return RowNode{Table: table, Cols: cols, Vals: vals}, nil
}

// FormatLiteralProperty renders a column's literal-property predicate
// IRI: <table-IRI>#<column>.
func (c *IriCodec) FormatLiteralProperty(table, column string) URI {
	return URI(c.Base + escapeIRISegment(table) + "#" + percentEscape(column))
}

// FormatReferenceProperty renders a foreign key's reference-property
// predicate IRI: <table-IRI>#ref-<col1>;<col2>;...
func (c *IriCodec) FormatReferenceProperty(table string, fkCols []string) URI {
	escaped := make([]string, len(fkCols))
	for i, col := range fkCols {
		escaped[i] = percentEscape(col)
	}
	return URI(c.Base + escapeIRISegment(table) + "#ref-" + strings.Join(escaped, ";"))
}

// PredicateKind distinguishes the two predicate-IRI shapes a parsed
// predicate can be.
type PredicateKind int

const (
	PredicateUnknown PredicateKind = iota
	PredicateLiteralProperty
	PredicateReferenceProperty
)

// Predicate is a parsed predicate IRI.
type Predicate struct {
	Table   string
	Kind    PredicateKind
	Column  string   // set when Kind == PredicateLiteralProperty
	FKCols  []string // set when Kind == PredicateReferenceProperty
}

// ParsePredicateIRI is the inverse of FormatLiteralProperty /
// FormatReferenceProperty, ported from stores.py's _predicate_orm_attr.
func (c *IriCodec) ParsePredicateIRI(iri URI) (Predicate, error) {
	rest, ok := c.Unprefix(string(iri))
	if !ok {
		return Predicate{}, &rdberr.InvalidNodeSyntax{Node: string(iri), Reason: "missing base IRI prefix"}
	}
	hash := strings.IndexByte(rest, '#')
	if hash < 0 {
		return Predicate{}, &rdberr.InvalidNodeSyntax{Node: string(iri), Reason: "not a predicate IRI (missing '#')"}
	}
	tableEsc, localPart := rest[:hash], rest[hash+1:]
	table, err := percentUnescape(tableEsc)
	if err != nil {
		return Predicate{}, &rdberr.InvalidNodeSyntax{Node: string(iri), Reason: err.Error()}
	}
	if strings.HasPrefix(localPart, "ref-") {
		cols := strings.Split(localPart[len("ref-"):], ";")
		for i, col := range cols {
			unesc, err := percentUnescape(col)
			if err != nil {
				return Predicate{}, &rdberr.InvalidNodeSyntax{Node: string(iri), Reason: err.Error()}
			}
			cols[i] = unesc
		}
		return Predicate{Table: table, Kind: PredicateReferenceProperty, FKCols: cols}, nil
	}
	col, err := percentUnescape(localPart)
	if err != nil {
		return Predicate{}, &rdberr.InvalidNodeSyntax{Node: string(iri), Reason: err.Error()}
	}
	return Predicate{Table: table, Kind: PredicateLiteralProperty, Column: col}, nil
}

// Unprefix reports whether iri starts with the codec's base and, if so,
// returns the remainder. This replaces stores.py's _unprefixed_iri,
// which called re.match(iri) with no pattern argument — a bug spec.md
// §9 flags and prescribes fixing by using a plain prefix check instead.
func (c *IriCodec) Unprefix(iri string) (string, bool) {
	if !strings.HasPrefix(iri, c.Base) {
		return "", false
	}
	return iri[len(c.Base):], true
}

// SortedColumnPairs is a small helper for a caller that needs
// cols/vals passed to FormatRowNode in declared order but only has a
// name->value map in hand (e.g. assembling a row node from a scanned
// SQL row keyed by column name). Nothing in this module calls it.
func SortedColumnPairs(declared []string, byName map[string]string) (cols, vals []string) {
	cols = append(cols, declared...)
	vals = make([]string, len(declared))
	for i, col := range declared {
		vals[i] = byName[col]
	}
	return cols, vals
}
