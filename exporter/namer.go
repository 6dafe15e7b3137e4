package exporter

import (
	"fmt"
	"time"
)

// timestampLayout is the filename-safe, second-precision, sortable form of a
// message's received date.
const timestampLayout = "2006-01-02-15-04-05"

// namer hands out unique artifact base names within one run. The first
// occurrence of a timestamp is unsuffixed; later occurrences get -2, -3, and
// so on. Owned exclusively by the run, never shared.
type namer struct {
	counts map[string]int
}

func newNamer() *namer {
	return &namer{counts: make(map[string]int)}
}

func (n *namer) unique(received time.Time) string {
	stamp := received.Format(timestampLayout)
	n.counts[stamp]++
	if c := n.counts[stamp]; c > 1 {
		return fmt.Sprintf("%s-%d", stamp, c)
	}
	return stamp
}
