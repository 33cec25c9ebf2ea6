package hash

import (
	"github.com/cloudflare/circl/xof"
	"github.com/takakv/egcore/group"
)

// Nonces is a deterministic sequence of elements of Z_q derived from a
// seed and a list of headers. It exists for reproducible test fixtures and
// must not be used to derive production nonces.
type Nonces struct {
	ctx  *group.Context
	base xof.XOF
}

// NewNonces absorbs the seed and headers; the sequence is then indexed by
// Get.
func NewNonces(ctx *group.Context, seed *group.ElementModQ, headers ...any) *Nonces {
	x := xof.SHAKE256.New()
	write(x, seed)
	for _, h := range headers {
		write(x, h)
	}
	return &Nonces{ctx: ctx, base: x}
}

// Get returns the i-th nonce of the sequence. Candidates are drawn from
// the XOF stream until one falls below q.
func (n *Nonces) Get(i int) *group.ElementModQ {
	x := n.base.Clone()
	writeUint32(x, uint32(i))
	buf := make([]byte, group.QBytes)
	for {
		if _, err := x.Read(buf); err != nil {
			panic("xof read: " + err.Error())
		}
		e, err := n.ctx.BinaryToElementModQ(buf)
		if err == nil {
			return e
		}
	}
}
