package verifier

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Stats accumulates timings per verification stage. It is safe for
// concurrent use.
type Stats struct {
	mu    sync.Mutex
	stats map[string]*Stat
}

// Stat is the running total of one stage.
type Stat struct {
	mu     sync.Mutex
	thing  string
	count  int
	nthing int
	took   time.Duration
}

// NewStats returns an empty Stats.
func NewStats() *Stats {
	return &Stats{stats: make(map[string]*Stat)}
}

// Of returns the stat for a stage, counting things of the given kind.
func (s *Stats) Of(what, thing string) *Stat {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stats[what]
	if !ok {
		st = &Stat{thing: thing}
		s.stats[what] = st
	}
	return st
}

// Accum adds one call that took d and handled n things.
func (st *Stat) Accum(d time.Duration, n int) {
	st.mu.Lock()
	st.count++
	st.nthing += n
	st.took += d
	st.mu.Unlock()
}

// Count returns the number of accumulated calls and things.
func (st *Stat) Count() (calls, things int) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.count, st.nthing
}

// Summary prints one line per stage, sorted by name.
func (s *Stats) Summary() string {
	s.mu.Lock()
	names := make([]string, 0, len(s.stats))
	for name := range s.stats {
		names = append(names, name)
	}
	s.mu.Unlock()
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		st := s.Of(name, "")
		st.mu.Lock()
		per := time.Duration(0)
		if st.nthing > 0 {
			per = st.took / time.Duration(st.nthing)
		}
		fmt.Fprintf(&b, "%s: took %s for %d %s = %s per %s (%d calls)\n",
			name, st.took, st.nthing, st.thing, per, strings.TrimSuffix(st.thing, "s"), st.count)
		st.mu.Unlock()
	}
	return b.String()
}
