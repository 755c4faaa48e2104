package store

import (
	"math/rand"
	"testing"
	"testing/quick"

	"github.com/nisavid/pyrdb2rdf/rdf"
)

// TestPlanLiteralMatchRoundTripsColumnValue is the store-level
// counterpart to rdf/valuecodec_test.go's codec round trip: for any
// string value planLiteralMatch is asked to filter authors.name by,
// the literal the SQL filters on (plan.Args's last bound parameter)
// must decode back to the same text the caller supplied, modulo the
// documented duration-calendar approximation elsewhere (spec.md §8) —
// plain strings carry no such approximation, so this one must be
// exact.
func TestPlanLiteralMatchRoundTripsColumnValue(t *testing.T) {
	p, _ := testPlanner(t)
	f := func(name string) bool {
		lit := rdf.NewTypedLiteral(name, rdf.XSDString)
		plans, err := p.Plan(Pattern{Object: lit})
		if err != nil {
			t.Logf("Plan: %v", err)
			return false
		}
		for _, pl := range plans {
			if pl.Table != "authors" {
				continue
			}
			if len(pl.Args) == 0 {
				return false
			}
			if pl.Args[len(pl.Args)-1] != name {
				return false
			}
		}
		return true
	}
	if err := quick.Check(f, qconfig()); err != nil {
		t.Error(err)
	}
}

// TestPlanSubjectRoundTripsThroughRowNode exercises the row-node codec
// from inside the planner: formatting a declared integer key of
// authors as a row node and immediately asking for that subject's
// predicates must resolve back to the same table without error, for
// any non-negative key value.
func TestPlanSubjectRoundTripsThroughRowNode(t *testing.T) {
	p, _ := testPlanner(t)
	iri := rdf.NewIriCodec("http://x/db/")
	f := func(seed int64) bool {
		r := rand.New(rand.NewSource(seed))
		id := r.Intn(1_000_000)
		subj := rdf.URI(iri.FormatRowNode("authors", []string{"id"}, []string{itoa(id)}))
		plans, err := p.Plan(Pattern{Subject: subj})
		if err != nil {
			t.Logf("Plan(%s): %v", subj, err)
			return false
		}
		return len(plans) == 1 && plans[0].Table == "authors"
	}
	if err := quick.Check(f, qconfig()); err != nil {
		t.Error(err)
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
