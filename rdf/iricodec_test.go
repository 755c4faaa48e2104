package rdf

import (
	"math/rand"
	"testing"
	"testing/quick"
)

func TestFormatParseRowNodeRoundTrip(t *testing.T) {
	c := NewIriCodec("http://example.org/db/")
	node := c.FormatRowNode("orders", []string{"id"}, []string{"17"})
	want := "http://example.org/db/orders/id=17"
	if node != want {
		t.Fatalf("FormatRowNode = %q, want %q", node, want)
	}
	parsed, err := c.ParseRowNode(node)
	if err != nil {
		t.Fatalf("ParseRowNode(%q): %v", node, err)
	}
	if parsed.Table != "orders" || len(parsed.Cols) != 1 || parsed.Cols[0] != "id" || parsed.Vals[0] != "17" {
		t.Errorf("ParseRowNode(%q) = %+v", node, parsed)
	}
}

func TestFormatParseRowNodeCompositeKey(t *testing.T) {
	c := NewIriCodec("http://example.org/db/")
	node := c.FormatRowNode("line_items", []string{"order_id", "line_no"}, []string{"5", "2"})
	parsed, err := c.ParseRowNode(node)
	if err != nil {
		t.Fatalf("ParseRowNode(%q): %v", node, err)
	}
	if parsed.Table != "line_items" || len(parsed.Cols) != 2 {
		t.Fatalf("ParseRowNode(%q) = %+v", node, parsed)
	}
}

func TestParseRowNodeRejectsForeignBase(t *testing.T) {
	c := NewIriCodec("http://example.org/db/")
	if _, err := c.ParseRowNode("http://other.org/db/orders/id=1"); err == nil {
		t.Fatal("expected error for mismatched base")
	}
}

func TestFormatParsePredicateIRI(t *testing.T) {
	c := NewIriCodec("http://example.org/db/")
	lit := c.FormatLiteralProperty("orders", "total")
	pred, err := c.ParsePredicateIRI(lit)
	if err != nil {
		t.Fatalf("ParsePredicateIRI(%q): %v", lit, err)
	}
	if pred.Kind != PredicateLiteralProperty || pred.Table != "orders" || pred.Column != "total" {
		t.Errorf("ParsePredicateIRI(%q) = %+v", lit, pred)
	}

	ref := c.FormatReferenceProperty("orders", []string{"customer_id"})
	pred2, err := c.ParsePredicateIRI(ref)
	if err != nil {
		t.Fatalf("ParsePredicateIRI(%q): %v", ref, err)
	}
	if pred2.Kind != PredicateReferenceProperty || pred2.Table != "orders" || len(pred2.FKCols) != 1 || pred2.FKCols[0] != "customer_id" {
		t.Errorf("ParsePredicateIRI(%q) = %+v", ref, pred2)
	}
}

func TestUnprefix(t *testing.T) {
	c := NewIriCodec("http://example.org/db/")
	rest, ok := c.Unprefix("http://example.org/db/orders")
	if !ok || rest != "orders" {
		t.Errorf("Unprefix = %q, %v", rest, ok)
	}
	if _, ok := c.Unprefix("http://other.org/orders"); ok {
		t.Error("expected Unprefix to reject a foreign base")
	}
}

func randIdentifier(r *rand.Rand) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_ /;=%"
	n := r.Intn(12) + 1
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[r.Intn(len(alphabet))]
	}
	return string(b)
}

func TestRowNodeRoundTripProperty(t *testing.T) {
	c := NewIriCodec("http://example.org/db/")
	f := func(seed int64, nCols uint8) bool {
		r := rand.New(rand.NewSource(seed))
		table := randIdentifier(r)
		n := int(nCols%4) + 1
		cols := make([]string, n)
		vals := make([]string, n)
		for i := 0; i < n; i++ {
			cols[i] = randIdentifier(r)
			vals[i] = randIdentifier(r)
		}
		node := c.FormatRowNode(table, cols, vals)
		parsed, err := c.ParseRowNode(node)
		if err != nil {
			t.Logf("ParseRowNode(%q): %v", node, err)
			return false
		}
		if parsed.Table != table || len(parsed.Cols) != n {
			return false
		}
		for i := range cols {
			if parsed.Cols[i] != cols[i] || parsed.Vals[i] != vals[i] {
				return false
			}
		}
		return true
	}
	if err := quick.Check(f, qconfig()); err != nil {
		t.Error(err)
	}
}
