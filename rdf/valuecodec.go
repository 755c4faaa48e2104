package rdf

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nisavid/pyrdb2rdf/rdberr"
)

// SQLType is the flat lattice of SQL column kinds a ValueCodec knows how
// to translate, replacing the Python original's ancestor-chain MRO walk
// over SQLAlchemy types (spec.md §9 Design Note) with the explicit table
// below.
type SQLType int

const (
	SQLUnknown SQLType = iota
	SQLBinary
	SQLBoolean
	SQLDate
	SQLDateTime
	SQLFloat
	SQLInteger
	SQLNumeric
	SQLString
	SQLTime
	SQLInterval
)

// Duration is a (days, seconds, microseconds) decomposition mirroring
// Python's datetime.timedelta, which is what the original's duration
// rules are defined over.
type Duration struct {
	Days         int64
	Seconds      int64
	Microseconds int64
}

func (d Duration) isZero() bool {
	return d.Days == 0 && d.Seconds == 0 && d.Microseconds == 0
}

// Value is a decoded SQL column value, tagged by the SQLType it came
// from. Exactly one field is meaningful for a given Kind (Null aside).
type Value struct {
	Kind     SQLType
	Null     bool
	Int      int64
	Float    float64
	Text     string
	Binary   []byte
	Bool     bool
	Time     time.Time
	Duration Duration
}

// ValueCodec translates between SQL column values and their canonical
// RDF literal representation (spec.md §4.1).
type ValueCodec struct{}

// NewValueCodec returns a ready-to-use ValueCodec. It carries no state;
// the table below is fixed at compile time.
func NewValueCodec() *ValueCodec { return &ValueCodec{} }

var canonicalDatatype = map[SQLType]URI{
	SQLBinary:   XSDHexBinary,
	SQLBoolean:  XSDBoolean,
	SQLDate:     XSDDate,
	SQLDateTime: XSDDateTime,
	SQLFloat:    XSDDouble,
	SQLInteger:  XSDInteger,
	SQLNumeric:  XSDDecimal,
	SQLString:   XSDString,
	SQLTime:     XSDTime,
	SQLInterval: XSDDuration, // overridden per-value: dayTimeDuration/yearMonthDuration
	SQLUnknown:  XSDString,
}

// additionalAccepted lists RDF datatypes accepted on *input*, beyond the
// canonical one CanonicalDatatype returns, when decoding an RDF literal
// back into this SQL type (spec.md §4.1: "additional accepted input
// datatypes").
var additionalAccepted = map[SQLType][]URI{
	SQLBinary:   {XSDBinary},
	SQLInterval: {XSDDayTimeDur, XSDYearMonthDur},
}

// CanonicalDatatype returns the one RDF datatype a literal encoding a
// value of SQL type t is rendered with. SQLInterval is special: the
// rendered datatype depends on the actual duration decomposition (see
// RDFLiteralFromSQL), so this returns the most general of the three
// (xsd:duration) as the type's nominal canonical datatype.
func (c *ValueCodec) CanonicalDatatype(t SQLType) URI {
	if dt, ok := canonicalDatatype[t]; ok {
		return dt
	}
	return XSDString
}

// AcceptedDatatypes returns every RDF datatype a literal may carry and
// still be decoded as SQL type t: the canonical one plus any additional
// accepted variants.
func (c *ValueCodec) AcceptedDatatypes(t SQLType) []URI {
	out := []URI{c.CanonicalDatatype(t)}
	out = append(out, additionalAccepted[t]...)
	return out
}

// SQLTypesForDatatype is the reverse mapping used by QueryPlanner to
// decide which SQL columns a concrete-object literal pattern could
// possibly match (spec.md §4.4's literal-filtering branches). Multiple
// SQL types can share a datatype (xsd:string maps back to both
// SQLString and SQLUnknown), and all three duration datatypes map back
// to SQLInterval. An untyped or unrecognized datatype
// falls back to String columns, mirroring CanonicalDatatype's root
// fallback on the encode side.
func (c *ValueCodec) SQLTypesForDatatype(datatype URI) []SQLType {
	var out []SQLType
	for t, dt := range canonicalDatatype {
		if dt == datatype {
			out = append(out, t)
		}
	}
	switch datatype {
	case XSDDayTimeDur, XSDYearMonthDur:
		out = append(out, SQLInterval)
	case XSDBinary:
		out = append(out, SQLBinary)
	}
	if len(out) == 0 {
		out = append(out, SQLString)
	}
	return out
}

// RDFLiteralFromSQL encodes a decoded SQL value as an RDF literal.
func (c *ValueCodec) RDFLiteralFromSQL(v Value) (Literal, error) {
	switch v.Kind {
	case SQLBinary:
		return NewTypedLiteral(hex.EncodeToString(v.Binary), XSDHexBinary), nil
	case SQLBoolean:
		if v.Bool {
			return NewTypedLiteral("true", XSDBoolean), nil
		}
		return NewTypedLiteral("false", XSDBoolean), nil
	case SQLDate:
		return NewTypedLiteral(v.Time.Format("2006-01-02"), XSDDate), nil
	case SQLDateTime:
		return NewTypedLiteral(formatDateTime(v.Time), XSDDateTime), nil
	case SQLFloat:
		return NewTypedLiteral(strconv.FormatFloat(v.Float, 'g', -1, 64), XSDDouble), nil
	case SQLInteger:
		return NewTypedLiteral(strconv.FormatInt(v.Int, 10), XSDInteger), nil
	case SQLNumeric:
		return NewTypedLiteral(v.Text, XSDDecimal), nil
	case SQLString:
		return NewTypedLiteral(v.Text, XSDString), nil
	case SQLTime:
		return NewTypedLiteral(v.Time.Format("15:04:05"), XSDTime), nil
	case SQLInterval:
		return renderDuration(v.Duration), nil
	default:
		return NewTypedLiteral(v.Text, XSDString), nil
	}
}

// ValueFromText builds a typed Value out of a column's driver-scanned
// text form, the glue TripleStreamer needs since database/sql hands
// back driver-native Go types (int64, float64, time.Time, ...) that it
// stringifies uniformly before this call. t selects which Value
// field the text is parsed into.
func (c *ValueCodec) ValueFromText(t SQLType, text string) (Value, error) {
	switch t {
	case SQLBinary:
		b, err := hex.DecodeString(text)
		if err != nil {
			// Drivers that hand back raw bytes already hex-decoded
			// (scanned via []byte) arrive here as their literal text;
			// fall back to treating it as already-decoded bytes.
			return Value{Kind: SQLBinary, Binary: []byte(text)}, nil
		}
		return Value{Kind: SQLBinary, Binary: b}, nil
	case SQLBoolean:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: SQLBoolean, Bool: b}, nil
	case SQLDate:
		t2, err := time.Parse("2006-01-02", text)
		if err != nil {
			t2, err = parseDateTime(text)
			if err != nil {
				return Value{}, err
			}
		}
		return Value{Kind: SQLDate, Time: t2}, nil
	case SQLDateTime:
		t2, err := parseDateTime(text)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: SQLDateTime, Time: t2}, nil
	case SQLFloat:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: SQLFloat, Float: f}, nil
	case SQLInteger:
		i, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: SQLInteger, Int: i}, nil
	case SQLNumeric:
		return Value{Kind: SQLNumeric, Text: text}, nil
	case SQLTime:
		t2, err := time.Parse("15:04:05", text)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: SQLTime, Time: t2}, nil
	case SQLInterval:
		d, err := parseDuration(text)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: SQLInterval, Duration: d}, nil
	default:
		return Value{Kind: SQLString, Text: text}, nil
	}
}

// SQLValueFromRDF decodes an RDF literal into a SQL value, dispatching
// purely on the literal's own datatype (mirroring the Python original's
// _SQL_LITERAL_TYPES_BY_RDF_DATATYPE dispatch, which never consults a
// target column type either).
func (c *ValueCodec) SQLValueFromRDF(lit Literal) (Value, error) {
	switch lit.DataType() {
	case XSDHexBinary, XSDBinary:
		b, err := hex.DecodeString(lit.String())
		if err != nil {
			return Value{}, &rdberr.ValueDecodeError{Literal: lit.String(), Datatype: string(lit.DataType()), Cause: err}
		}
		return Value{Kind: SQLBinary, Binary: b}, nil
	case XSDBoolean:
		switch lit.String() {
		case "true", "1":
			return Value{Kind: SQLBoolean, Bool: true}, nil
		case "false", "0":
			return Value{Kind: SQLBoolean, Bool: false}, nil
		default:
			return Value{}, &rdberr.ValueDecodeError{Literal: lit.String(), Datatype: string(lit.DataType()), Cause: fmt.Errorf("not a boolean lexical form")}
		}
	case XSDDate:
		t, err := time.Parse("2006-01-02", lit.String())
		if err != nil {
			return Value{}, &rdberr.ValueDecodeError{Literal: lit.String(), Datatype: string(lit.DataType()), Cause: err}
		}
		return Value{Kind: SQLDate, Time: t}, nil
	case XSDDateTime:
		t, err := parseDateTime(lit.String())
		if err != nil {
			return Value{}, &rdberr.ValueDecodeError{Literal: lit.String(), Datatype: string(lit.DataType()), Cause: err}
		}
		return Value{Kind: SQLDateTime, Time: t}, nil
	case XSDDouble:
		f, err := strconv.ParseFloat(lit.String(), 64)
		if err != nil {
			return Value{}, &rdberr.ValueDecodeError{Literal: lit.String(), Datatype: string(lit.DataType()), Cause: err}
		}
		return Value{Kind: SQLFloat, Float: f}, nil
	case XSDInteger:
		i, err := strconv.ParseInt(lit.String(), 10, 64)
		if err != nil {
			return Value{}, &rdberr.ValueDecodeError{Literal: lit.String(), Datatype: string(lit.DataType()), Cause: err}
		}
		return Value{Kind: SQLInteger, Int: i}, nil
	case XSDDecimal:
		return Value{Kind: SQLNumeric, Text: lit.String()}, nil
	case XSDString, "", RDFlangString:
		return Value{Kind: SQLString, Text: lit.String()}, nil
	case XSDTime:
		t, err := time.Parse("15:04:05", lit.String())
		if err != nil {
			return Value{}, &rdberr.ValueDecodeError{Literal: lit.String(), Datatype: string(lit.DataType()), Cause: err}
		}
		return Value{Kind: SQLTime, Time: t}, nil
	case XSDDuration, XSDDayTimeDur, XSDYearMonthDur:
		d, err := parseDuration(lit.String())
		if err != nil {
			return Value{}, &rdberr.ValueDecodeError{Literal: lit.String(), Datatype: string(lit.DataType()), Cause: err}
		}
		return Value{Kind: SQLInterval, Duration: d}, nil
	default:
		return Value{Kind: SQLString, Text: lit.String()}, nil
	}
}

func formatDateTime(t time.Time) string {
	return t.Format("2006-01-02T15:04:05")
}

func parseDateTime(s string) (time.Time, error) {
	for _, layout := range []string{
		"2006-01-02T15:04:05.999999999Z07:00",
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized xsd:dateTime lexical form %q", s)
}

// pyDivmod mirrors Python's divmod: floor division, with the remainder
// taking the divisor's sign. Go's native / and % truncate toward zero,
// so they disagree with Python whenever signs differ and there's a
// remainder.
func pyDivmod(a, b int64) (q, r int64) {
	q = a / b
	r = a % b
	if r != 0 && (r < 0) != (b < 0) {
		q--
		r += b
	}
	return q, r
}

// renderDuration implements spec.md §4.1's deterministic duration
// rendering rule, ported from
// _examples/original_source/rdb2rdf/_common.py's
// _rdf_duration_from_timedelta: decompose (days, seconds) by integer
// division against a 365-day year / 30-day month approximation, then
// choose the narrowest of xsd:duration / xsd:dayTimeDuration /
// xsd:yearMonthDuration that can represent the result.
func renderDuration(d Duration) Literal {
	if d.isZero() {
		return NewTypedLiteral("PT0S", XSDDayTimeDur)
	}

	sign := int64(1)
	if d.Days < 0 || (d.Days == 0 && (d.Seconds < 0 || (d.Seconds == 0 && d.Microseconds < 0))) {
		sign = -1
	}

	years, daysRem := pyDivmod(d.Days, sign*365)
	months, daysRem2 := pyDivmod(daysRem, sign*30)
	days := sign * daysRem2

	hours, secRem := pyDivmod(d.Seconds, sign*3600)
	minutes, secRem2 := pyDivmod(secRem, sign*60)
	seconds := sign * secRem2

	years *= sign
	months *= sign
	hours *= sign
	minutes *= sign

	var datatype URI
	switch {
	case years != 0 || months != 0:
		if days != 0 || hours != 0 || minutes != 0 || seconds != 0 || d.Microseconds != 0 {
			datatype = XSDDuration
		} else {
			datatype = XSDYearMonthDur
		}
	default:
		datatype = XSDDayTimeDur
	}

	timeDesig := ""
	if hours != 0 || minutes != 0 || seconds != 0 || d.Microseconds != 0 {
		timeDesig = "T"
	}

	var b strings.Builder
	if sign < 0 {
		b.WriteByte('-')
	}
	b.WriteByte('P')
	if years != 0 {
		fmt.Fprintf(&b, "%dY", abs64(years))
	}
	if months != 0 {
		fmt.Fprintf(&b, "%dM", abs64(months))
	}
	if days != 0 {
		fmt.Fprintf(&b, "%dD", abs64(days))
	}
	b.WriteString(timeDesig)
	if hours != 0 {
		fmt.Fprintf(&b, "%dH", abs64(hours))
	}
	if minutes != 0 {
		fmt.Fprintf(&b, "%dM", abs64(minutes))
	}
	if seconds != 0 || d.Microseconds != 0 {
		secLit := strconv.FormatInt(abs64(seconds), 10)
		if d.Microseconds != 0 {
			secLit = fmt.Sprintf("%s.%06d", secLit, abs64(d.Microseconds))
			secLit = strings.TrimRight(secLit, "0")
		}
		fmt.Fprintf(&b, "%sS", secLit)
	}
	return NewTypedLiteral(b.String(), datatype)
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

// parseDuration parses an ISO-8601 duration lexical form into a
// microsecond-precision Duration, the inverse of renderDuration, ported
// from _common.py's _timedelta_from_rdf_duration.
func parseDuration(s string) (Duration, error) {
	orig := s
	if s == "" {
		return Duration{}, fmt.Errorf("empty duration")
	}
	sign := int64(1)
	if strings.HasPrefix(s, "-") {
		sign = -1
		s = s[1:]
	}
	if !strings.HasPrefix(s, "P") {
		return Duration{}, fmt.Errorf("duration %q missing P designator", orig)
	}
	s = s[1:]

	datePart, timePart := s, ""
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		datePart, timePart = s[:i], s[i+1:]
	}

	var years, months, days, hours, minutes int64
	var seconds int64
	var micros int64

	if datePart != "" {
		var err error
		years, months, days, err = parseDurationDateFields(datePart)
		if err != nil {
			return Duration{}, fmt.Errorf("duration %q: %w", orig, err)
		}
	}
	if timePart != "" {
		var err error
		hours, minutes, seconds, micros, err = parseDurationTimeFields(timePart)
		if err != nil {
			return Duration{}, fmt.Errorf("duration %q: %w", orig, err)
		}
	}
	if datePart == "" && timePart == "" {
		return Duration{}, fmt.Errorf("duration %q has neither date nor time fields", orig)
	}

	totalDays := years*365 + months*30 + days
	totalSeconds := hours*3600 + minutes*60 + seconds

	return Duration{
		Days:         sign * totalDays,
		Seconds:      sign * totalSeconds,
		Microseconds: sign * micros,
	}, nil
}

func parseDurationDateFields(s string) (years, months, days int64, err error) {
	for len(s) > 0 {
		i := 0
		for i < len(s) && (s[i] >= '0' && s[i] <= '9') {
			i++
		}
		if i == 0 {
			return 0, 0, 0, fmt.Errorf("expected digits at %q", s)
		}
		n, convErr := strconv.ParseInt(s[:i], 10, 64)
		if convErr != nil {
			return 0, 0, 0, convErr
		}
		if i >= len(s) {
			return 0, 0, 0, fmt.Errorf("missing designator after %q", s[:i])
		}
		switch s[i] {
		case 'Y':
			years = n
		case 'M':
			months = n
		case 'D':
			days = n
		default:
			return 0, 0, 0, fmt.Errorf("unknown date designator %q", s[i])
		}
		s = s[i+1:]
	}
	return years, months, days, nil
}

func parseDurationTimeFields(s string) (hours, minutes, seconds, micros int64, err error) {
	for len(s) > 0 {
		i := 0
		for i < len(s) && (s[i] >= '0' && s[i] <= '9') {
			i++
		}
		if i == 0 {
			return 0, 0, 0, 0, fmt.Errorf("expected digits at %q", s)
		}
		numStr := s[:i]
		frac := ""
		if i < len(s) && s[i] == '.' {
			j := i + 1
			for j < len(s) && s[j] >= '0' && s[j] <= '9' {
				j++
			}
			frac = s[i+1 : j]
			i = j
		}
		if i >= len(s) {
			return 0, 0, 0, 0, fmt.Errorf("missing designator after %q", numStr)
		}
		n, convErr := strconv.ParseInt(numStr, 10, 64)
		if convErr != nil {
			return 0, 0, 0, 0, convErr
		}
		switch s[i] {
		case 'H':
			hours = n
		case 'M':
			minutes = n
		case 'S':
			seconds = n
			if frac != "" {
				for len(frac) < 6 {
					frac += "0"
				}
				m, convErr := strconv.ParseInt(frac[:6], 10, 64)
				if convErr != nil {
					return 0, 0, 0, 0, convErr
				}
				micros = m
			}
		default:
			return 0, 0, 0, 0, fmt.Errorf("unknown time designator %q", s[i])
		}
		s = s[i+1:]
	}
	return hours, minutes, seconds, micros, nil
}
