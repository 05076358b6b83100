// Package ids allocates human readable identifiers of the form "<category>-NNNN".
package ids

import (
	"fmt"
	"strings"
	"sync"
)

// Identifier categories used by the marketplace.
const (
	User     = "user"
	Shipment = "load"
	Quote    = "quote"
	Booking  = "booking"
	Thread   = "thread"
	Message  = "msg"
	Flag     = "flag"
	Log      = "log"
	DM       = "dm"
)

// Generator hands out monotonic identifiers per category.
type Generator struct {
	mu       sync.Mutex
	counters map[string]int
}

// NewGenerator returns a Generator with every counter starting at 1.
func NewGenerator() *Generator {
	return &Generator{counters: make(map[string]int)}
}

// Next returns the next identifier for category, zero padded to four digits.
func (g *Generator) Next(category string) string {
	g.mu.Lock()
	g.counters[category]++
	n := g.counters[category]
	g.mu.Unlock()
	return fmt.Sprintf("%s-%04d", category, n)
}

// Reset restarts all counters.
func (g *Generator) Reset() {
	g.mu.Lock()
	g.counters = make(map[string]int)
	g.mu.Unlock()
}

// Compare orders two identifiers of the same category by their numeric suffix.
// It returns -1, 0 or 1. Identifiers beyond the padding width still sort
// numerically because a longer suffix always wins.
func Compare(a, b string) int {
	pa, na := split(a)
	pb, nb := split(b)
	if pa != pb {
		return strings.Compare(a, b)
	}
	if len(na) != len(nb) {
		if len(na) < len(nb) {
			return -1
		}
		return 1
	}
	return strings.Compare(na, nb)
}

func split(id string) (string, string) {
	i := strings.LastIndexByte(id, '-')
	if i < 0 {
		return "", id
	}
	return id[:i], id[i+1:]
}
