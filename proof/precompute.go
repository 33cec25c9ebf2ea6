package proof

import (
	"github.com/takakv/egcore/elgamal"
	"github.com/takakv/egcore/group"
	"github.com/takakv/egcore/hash"
)

// PrecomputedRange holds everything an encryption of a value in 0..L and
// its range proof need that does not depend on the value. Completing it
// costs only multiplications and one hash, so the expensive
// exponentiations can be done ahead of time, before the voter has decided.
type PrecomputedRange struct {
	pk    *elgamal.PublicKey
	nonce *group.ElementModQ
	pad   *group.ElementModP
	kXi   *group.ElementModP

	u  []*group.ElementModQ
	c  []*group.ElementModQ
	a  []*group.ElementModP
	ku []*group.ElementModP
	// K^(c_j) and K^(-c_j), stepped |ℓ-j| times to offset the simulated
	// branch j for value ℓ
	kc    []*group.ElementModP
	kcInv []*group.ElementModP
}

// PrecomputeRange performs the exponentiations for a 0..limit range proof
// on an encryption with the given nonce. A non-nil seed makes the proof
// randomness deterministic, using the same indexes as ProveRange, and is
// meant for tests only.
func PrecomputeRange(pk *elgamal.PublicKey, nonce *group.ElementModQ, limit int, seed *hash.Nonces) (*PrecomputedRange, error) {
	if limit < 1 {
		return nil, ErrRangeValue
	}
	ctx := pk.Context()
	n := limit + 1
	p := &PrecomputedRange{
		pk:    pk,
		nonce: nonce,
		pad:   ctx.GPowP(nonce),
		kXi:   ctx.PowP(pk.Key, nonce),
		u:     make([]*group.ElementModQ, n),
		c:     make([]*group.ElementModQ, n),
		a:     make([]*group.ElementModP, n),
		ku:    make([]*group.ElementModP, n),
		kc:    make([]*group.ElementModP, n),
		kcInv: make([]*group.ElementModP, n),
	}
	for j := 0; j < n; j++ {
		u, err := sample(ctx, seed, 2*j)
		if err != nil {
			return nil, err
		}
		c, err := sample(ctx, seed, 2*j+1)
		if err != nil {
			return nil, err
		}
		p.u[j], p.c[j] = u, c
		p.a[j] = ctx.GPowP(u)
		p.ku[j] = ctx.PowP(pk.Key, u)
		p.kc[j] = ctx.PowP(pk.Key, c)
		p.kcInv[j] = p.kc[j].InverseP()
	}
	return p, nil
}

// Nonce returns the encryption nonce ξ.
func (p *PrecomputedRange) Nonce() *group.ElementModQ {
	return p.nonce
}

// Limit returns L.
func (p *PrecomputedRange) Limit() int {
	return len(p.u) - 1
}

// step returns x^k for a small k >= 0 by repeated multiplication.
func step(ctx *group.Context, acc, x *group.ElementModP, k int) *group.ElementModP {
	for ; k > 0; k-- {
		acc = ctx.MultP(acc, x)
	}
	return acc
}

// Complete encrypts value and finishes the range proof. It may be called
// again with a different value; each call yields an independent valid pair
// for the same nonce. The result equals ProveRange with the same nonce and
// seed.
func (p *PrecomputedRange) Complete(he hash.UInt256, value int) (elgamal.Ciphertext, *Range, error) {
	limit := p.Limit()
	if value < 0 || value > limit {
		return elgamal.Ciphertext{}, nil, ErrRangeValue
	}
	ctx := p.pk.Context()
	ct := elgamal.Ciphertext{Pad: p.pad, Data: step(ctx, p.kXi, p.pk.Key, value)}

	cm := commitments{
		u: p.u,
		c: make([]*group.ElementModQ, limit+1),
		a: p.a,
		b: make([]*group.ElementModP, limit+1),
	}
	for j := range p.u {
		switch {
		case j == value:
			cm.b[j] = p.ku[j]
			continue
		case j < value:
			// b_j = K^(u_j + (ℓ-j) c_j)
			cm.b[j] = step(ctx, p.ku[j], p.kc[j], value-j)
		default:
			cm.b[j] = step(ctx, p.ku[j], p.kcInv[j], j-value)
		}
		cm.c[j] = p.c[j]
	}
	return ct, finishRange(p.pk, he, ct, p.nonce, value, cm), nil
}
