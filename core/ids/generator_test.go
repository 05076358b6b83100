package ids

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratorNext(t *testing.T) {
	g := NewGenerator()
	assert.Equal(t, "load-0001", g.Next(Shipment))
	assert.Equal(t, "load-0002", g.Next(Shipment))
	assert.Equal(t, "quote-0001", g.Next(Quote))
	g.Reset()
	assert.Equal(t, "load-0001", g.Next(Shipment))
}

func TestGeneratorConcurrent(t *testing.T) {
	g := NewGenerator()
	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := g.Next(Booking)
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	require.Len(t, seen, 50)
	assert.True(t, seen["booking-0050"])
}

func TestCompare(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"load-0001", "load-0002", -1},
		{"load-0002", "load-0002", 0},
		{"load-9999", "load-10000", -1},
		{"load-10000", "load-0009", 1},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Compare(c.a, c.b), "%s vs %s", c.a, c.b)
	}
}
