package rdf

import "testing"

func TestNewURIStripsForbiddenChars(t *testing.T) {
	cases := []struct{ in, want string }{
		{"http://example.org/foo", "http://example.org/foo"},
		{"http://example.org/<foo>", "http://example.org/foo"},
		{"http://example.org/\"foo\"", "http://example.org/foo"},
		{"http://example.org/foo bar", "http://example.org/foobar"},
	}
	for _, c := range cases {
		if got := NewURI(c.in).String(); got != c.want {
			t.Errorf("NewURI(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestLiteralAccessors(t *testing.T) {
	l := NewTypedLiteral("42", XSDInteger)
	if l.String() != "42" || l.DataType() != XSDInteger {
		t.Fatalf("unexpected typed literal: %+v", l)
	}
	lang := NewLangLiteral("bonjour", "fr")
	if lang.DataType() != RDFlangString || lang.Lang() != "fr" {
		t.Fatalf("unexpected lang literal: %+v", lang)
	}
}

func TestTripleString(t *testing.T) {
	tr := Triple{Subj: URI("http://x/s"), Pred: URI("http://x/p"), Obj: NewTypedLiteral("hi", XSDString)}
	want := `<http://x/s> <http://x/p> "hi" .`
	if got := tr.String(); got != want {
		t.Errorf("Triple.String() = %q, want %q", got, want)
	}

	tr2 := Triple{Subj: Blank{ID: "b1"}, Pred: RDFtype, Obj: URI("http://x/Table")}
	want2 := `_:b1 <` + string(RDFtype) + `> <http://x/Table> .`
	if got := tr2.String(); got != want2 {
		t.Errorf("Triple.String() = %q, want %q", got, want2)
	}
}
