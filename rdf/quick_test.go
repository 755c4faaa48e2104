package rdf

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"testing/quick"
	"time"
)

// The property tests here run 200 iterations by default, seeded from the
// clock. Override from the command line:
//
//	-quick.count  The number of iterations to perform.
//	-quick.seed   The seed to use for randomizing.
var (
	qcount, qseed int
)

func init() {
	flag.IntVar(&qcount, "quick.count", 200, "")
	flag.IntVar(&qseed, "quick.seed", int(time.Now().UnixNano())%100000, "")
	fmt.Fprintln(os.Stderr, "random seed:", qseed)
}

func qconfig() *quick.Config {
	return &quick.Config{
		MaxCount: qcount,
		Rand:     rand.New(rand.NewSource(int64(qseed))),
	}
}
