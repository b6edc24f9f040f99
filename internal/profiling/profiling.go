package profiling

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Lightweight per-operation CPU timing for chunk synthesis and meshing.

// Stat is the accumulated cost of one named operation.
type Stat struct {
	Calls int
	Total time.Duration
}

// Mean returns the average duration per call.
func (s Stat) Mean() time.Duration {
	if s.Calls == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Calls)
}

var (
	mu     sync.Mutex
	totals = make(map[string]Stat)
)

// Track returns a stop function that records the elapsed time under the given name.
// Usage: defer profiling.Track("subsystem.Operation")()
func Track(name string) func() {
	start := time.Now()
	return func() {
		d := time.Since(start)
		mu.Lock()
		st := totals[name]
		st.Calls++
		st.Total += d
		totals[name] = st
		mu.Unlock()
	}
}

// Reset clears all recorded totals.
func Reset() {
	mu.Lock()
	clear(totals)
	mu.Unlock()
}

// Snapshot returns a copy of current totals.
func Snapshot() map[string]Stat {
	mu.Lock()
	defer mu.Unlock()
	out := make(map[string]Stat, len(totals))
	for k, v := range totals {
		out[k] = v
	}
	return out
}

// TopN formats the n most expensive operations by total time.
// Example: "world.Synthesize:42.1ms/13, meshing.BuildMesh:3.2ms/13"
func TopN(n int) string {
	ss := Snapshot()
	type pair struct {
		name string
		stat Stat
	}
	list := make([]pair, 0, len(ss))
	for k, v := range ss {
		list = append(list, pair{name: k, stat: v})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].stat.Total != list[j].stat.Total {
			return list[i].stat.Total > list[j].stat.Total
		}
		return list[i].name < list[j].name
	})
	n = max(0, min(n, len(list)))
	parts := make([]string, 0, n)
	for _, p := range list[:n] {
		ms := float64(p.stat.Total.Microseconds()) / 1000.0
		parts = append(parts, fmt.Sprintf("%s:%.1fms/%d", p.name, ms, p.stat.Calls))
	}
	return strings.Join(parts, ", ")
}
