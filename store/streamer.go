package store

import (
	"context"
	"fmt"

	"github.com/nisavid/pyrdb2rdf/rdb"
	"github.com/nisavid/pyrdb2rdf/rdberr"
	"github.com/nisavid/pyrdb2rdf/rdf"
	"github.com/nisavid/pyrdb2rdf/schema"
)

// TripleStreamer executes a TablePlan against a live rdb.Connection and
// yields triples one row at a time, never buffering more than a single
// scanned row (spec.md §4.5, §5's "no internal buffering larger than a
// single database row"). Grounded on
// _examples/boutros-sopp/db.go's forEach, which takes the same
// per-triple callback shape over a cursor instead of returning a slice.
type TripleStreamer struct {
	idx   *schema.Index
	iri   *rdf.IriCodec
	codec *rdf.ValueCodec
}

// NewTripleStreamer builds a streamer sharing the same schema snapshot
// and codecs as the QueryPlanner that produced the plans it will run.
func NewTripleStreamer(idx *schema.Index, iri *rdf.IriCodec, codec *rdf.ValueCodec) *TripleStreamer {
	return &TripleStreamer{idx: idx, iri: iri, codec: codec}
}

// Stream runs plan against conn and invokes yield once per triple, in
// the row's column order (type, then literal columns in schema order,
// then references in schema order — spec.md §4.4 "Subject-table
// ordering"). Stopping early (yield returns a non-nil error, or the
// caller simply stops calling Next outside this function) releases the
// underlying rows cursor via the deferred Close.
func (s *TripleStreamer) Stream(ctx context.Context, conn rdb.Connection, plan TablePlan, yield func(rdf.Triple) error) error {
	rows, err := conn.Query(ctx, plan.SQL, plan.Args...)
	if err != nil {
		return &rdberr.BackendError{Op: "query " + plan.Table, Cause: err}
	}
	defer rows.Close()

	table, ok := s.idx.Table(plan.Table)
	if !ok {
		return &rdberr.BackendError{Op: "stream " + plan.Table, Cause: context.Canceled}
	}

	nCols := len(plan.LocalColumns)
	for _, ref := range plan.References {
		nCols += len(ref.TargetPKCols)
	}
	scanTargets := make([]interface{}, nCols)
	scanned := make([]*string, nCols)
	for i := range scanned {
		scanned[i] = new(string)
		scanTargets[i] = scanned[i]
	}
	// Rebind to sql.NullString-equivalent scanning: nulls[i] is set to
	// represent SQL NULL (scanned[i] then holds ""), distinguishing it
	// from an empty string.
	nulls := make([]bool, nCols)
	for i := range scanTargets {
		scanTargets[i] = &nullableString{val: scanned[i], isNull: &nulls[i]}
	}

	for rows.Next() {
		if err := rows.Scan(scanTargets...); err != nil {
			return &rdberr.BackendError{Op: "scan " + plan.Table, Cause: err}
		}

		local := make(map[string]string, len(plan.LocalColumns))
		localNull := make(map[string]bool, len(plan.LocalColumns))
		for i, col := range plan.LocalColumns {
			local[col] = *scanned[i]
			localNull[col] = nulls[i]
		}

		offset := len(plan.LocalColumns)
		refValues := make([]map[string]string, len(plan.References))
		refNull := make([]map[string]bool, len(plan.References))
		for ri, ref := range plan.References {
			vals := make(map[string]string, len(ref.TargetPKCols))
			nullMap := make(map[string]bool, len(ref.TargetPKCols))
			for _, col := range ref.TargetPKCols {
				vals[col] = *scanned[offset]
				nullMap[col] = nulls[offset]
				offset++
			}
			refValues[ri] = vals
			refNull[ri] = nullMap
		}

		subject, err := s.subjectNode(plan, table, local)
		if err != nil {
			return err
		}

		if plan.EmitType {
			if err := yield(rdf.Triple{Subj: subject, Pred: rdf.RDFtype, Obj: s.iri.TableIRI(table.Name)}); err != nil {
				return err
			}
		}

		if col := plan.FixedLiteralColumn; col != "" {
			// The SQL already filtered to rows where this column equals
			// the pattern literal's decoded value (spec.md §4.4 "Literal
			// filtering"). The emitted object is still re-encoded from
			// the stored value under the column's own SQL type, whose
			// lexical form may be stricter than the pattern's (§4.5).
			obj := *plan.ObjectLiteral
			if c, ok := table.Column(col); ok && !localNull[col] {
				val, err := s.codec.ValueFromText(c.SQLType, local[col])
				if err != nil {
					return &rdberr.ValueDecodeError{Literal: local[col], Datatype: string(s.codec.CanonicalDatatype(c.SQLType)), Cause: err}
				}
				lit, err := s.codec.RDFLiteralFromSQL(val)
				if err != nil {
					return &rdberr.ValueDecodeError{Literal: local[col], Datatype: string(s.codec.CanonicalDatatype(c.SQLType)), Cause: err}
				}
				obj = lit
			}
			pred := s.iri.FormatLiteralProperty(table.Name, col)
			if err := yield(rdf.Triple{Subj: subject, Pred: pred, Obj: obj}); err != nil {
				return err
			}
		}

		for _, col := range plan.LiteralEmitColumns {
			if localNull[col] {
				continue
			}
			c, ok := table.Column(col)
			if !ok {
				continue
			}
			val, err := s.codec.ValueFromText(c.SQLType, local[col])
			if err != nil {
				return &rdberr.ValueDecodeError{Literal: local[col], Datatype: string(s.codec.CanonicalDatatype(c.SQLType)), Cause: err}
			}
			lit, err := s.codec.RDFLiteralFromSQL(val)
			if err != nil {
				return &rdberr.ValueDecodeError{Literal: local[col], Datatype: string(s.codec.CanonicalDatatype(c.SQLType)), Cause: err}
			}
			pred := s.iri.FormatLiteralProperty(table.Name, col)
			if err := yield(rdf.Triple{Subj: subject, Pred: pred, Obj: lit}); err != nil {
				return err
			}
		}

		for ri, ref := range plan.References {
			allNonNull := true
			vals := make([]string, len(ref.TargetPKCols))
			for i, col := range ref.TargetPKCols {
				if refNull[ri][col] {
					allNonNull = false
					break
				}
				vals[i] = refValues[ri][col]
			}
			if !allNonNull {
				continue
			}
			targetNode := s.iri.FormatRowNode(ref.FK.RefTable, ref.TargetPKCols, vals)
			obj := s.nodeTerm(ref.FK.RefTable, targetNode)
			pred := s.iri.FormatReferenceProperty(table.Name, ref.FK.Columns)
			if err := yield(rdf.Triple{Subj: subject, Pred: pred, Obj: obj}); err != nil {
				return err
			}
		}
	}
	return rows.Err()
}

func (s *TripleStreamer) subjectNode(plan TablePlan, table *schema.Table, local map[string]string) (rdf.Term, error) {
	if plan.KnownSubject != nil {
		return plan.KnownSubject, nil
	}
	keyCols, err := s.idx.KeyColumns(table.Name)
	if err != nil {
		return nil, err
	}
	vals := make([]string, len(keyCols))
	for i, col := range keyCols {
		vals[i] = local[col]
	}
	node := s.iri.FormatRowNode(table.Name, keyCols, vals)
	return s.nodeTerm(table.Name, node), nil
}

func (s *TripleStreamer) nodeTerm(table, node string) rdf.Term {
	if s.idx.IsBlankNodeTable(table) {
		return rdf.Blank{ID: node}
	}
	return rdf.URI(node)
}

// nullableString is a tiny database/sql.Scanner adapting a *string/*bool
// pair so the streamer can tell a SQL NULL apart from an empty string
// without importing database/sql just for sql.NullString's exact shape.
type nullableString struct {
	val    *string
	isNull *bool
}

func (n *nullableString) Scan(src interface{}) error {
	if src == nil {
		*n.isNull = true
		*n.val = ""
		return nil
	}
	*n.isNull = false
	switch v := src.(type) {
	case string:
		*n.val = v
	case []byte:
		*n.val = string(v)
	default:
		*n.val = fmt.Sprint(v)
	}
	return nil
}
