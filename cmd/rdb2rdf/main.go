// Command rdb2rdf opens a relational database as a direct-mapped RDF
// store and dumps the triples it exposes, optionally narrowed to a
// single triple pattern.
//
// Grounded on _examples/boutros-sopp/cmd/sopp/main.go's flag shape and
// log.SetFlags/log.SetPrefix convention, upgraded from the standard
// library's flag package to github.com/jessevdk/go-flags in the style
// of _examples/sqldef-sqldef/cmd/sqlite3def/sqlite3def.go's
// struct-tag-driven option parsing.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/jessevdk/go-flags"

	"github.com/nisavid/pyrdb2rdf/rdf"
	"github.com/nisavid/pyrdb2rdf/store"
)

type options struct {
	DSN     string `long:"dsn" description:"relational data source name, e.g. sqlite:///path/to.db" required:"true"`
	Base    string `long:"base" description:"base IRI rooting every table/row/predicate IRI" default:"http://localhost/"`
	Create  bool   `long:"create" description:"create tables from a pre-declared schema before reflecting (no-op here: this command supplies no pre-declared schema)"`
	Subject string `short:"s" long:"subject" description:"restrict the dump to triples with this subject"`
	Pred    string `short:"p" long:"predicate" description:"restrict the dump to triples with this predicate IRI"`
	Object  string `short:"o" long:"object" description:"restrict the dump to triples with this object"`
	Count   bool   `long:"count" description:"print the matched triple count instead of dumping them"`
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("rdb2rdf: ")

	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	parser.Usage = "[options]"
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	ctx := context.Background()
	st, err := store.Open(ctx, store.Config{
		DSN:     opts.DSN,
		BaseIRI: opts.Base,
		Create:  opts.Create,
		Reflect: true,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close(false)

	pattern, err := parsePattern(opts)
	if err != nil {
		log.Fatal(err)
	}

	if opts.Count {
		var n int64
		if pattern.Subject == nil && pattern.Predicate == nil && pattern.Object == nil {
			n, err = st.Len(ctx, nil)
		} else {
			n, err = countPattern(ctx, st, pattern)
		}
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(n)
		return
	}

	if err := st.Triples(ctx, pattern, nil, func(t rdf.Triple) error {
		fmt.Println(t.String())
		return nil
	}); err != nil {
		log.Fatal(err)
	}
}

// parsePattern translates the CLI's flat string flags into a
// store.Pattern. A subject or object beginning with "_:" parses as a
// blank node; otherwise it is treated as an IRI. There is no flag
// syntax for a literal object in this dump tool — narrowing by literal
// value is left to piping dump output through grep.
func parsePattern(opts options) (store.Pattern, error) {
	var p store.Pattern
	if opts.Subject != "" {
		p.Subject = parseNodeTerm(opts.Subject)
	}
	if opts.Pred != "" {
		pred := rdf.NewURI(opts.Pred)
		p.Predicate = &pred
	}
	if opts.Object != "" {
		p.Object = parseNodeTerm(opts.Object)
	}
	return p, nil
}

func parseNodeTerm(s string) rdf.Term {
	if rest, ok := strings.CutPrefix(s, "_:"); ok {
		return rdf.Blank{ID: rest}
	}
	return rdf.NewURI(s)
}

func countPattern(ctx context.Context, st *store.Store, pattern store.Pattern) (int64, error) {
	var n int64
	err := st.Triples(ctx, pattern, nil, func(rdf.Triple) error {
		n++
		return nil
	})
	return n, err
}
