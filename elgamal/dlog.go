package elgamal

import (
	"github.com/takakv/egcore/group"
	"golang.org/x/xerrors"
	"sync"
)

// DefaultDLogMax bounds the search for small discrete logarithms.
const DefaultDLogMax = 100_000

// DLog recovers small exponents t from base^t by incremental search. The
// table of already computed powers is shared between goroutines.
type DLog struct {
	ctx  *group.Context
	base *group.ElementModP
	max  int

	mu    sync.Mutex
	table map[string]int
	last  *group.ElementModP
	next  int
}

// NewDLog creates a table for the given base.
func NewDLog(base *group.ElementModP, max int) *DLog {
	if max <= 0 {
		max = DefaultDLogMax
	}
	ctx := base.Context()
	return &DLog{
		ctx:   ctx,
		base:  base,
		max:   max,
		table: map[string]int{ctx.OneModP.String(): 0},
		last:  ctx.OneModP,
		next:  1,
	}
}

// Of returns t such that base^t = x, or an error if t exceeds the bound.
func (d *DLog) Of(x *group.ElementModP) (int, error) {
	key := x.String()

	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.table[key]; ok {
		return t, nil
	}
	for d.next <= d.max {
		d.last = d.ctx.MultP(d.last, d.base)
		t := d.next
		d.table[d.last.String()] = t
		d.next++
		if d.last.Equal(x) {
			return t, nil
		}
	}
	return 0, xerrors.Errorf("discrete log exceeds %d", d.max)
}
