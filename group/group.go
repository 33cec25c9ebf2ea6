// Package group implements arithmetic in the order-q subgroup of Z_p^* used
// by the election protocol, with distinct types for elements of Z_p and Z_q.
package group

import (
	"crypto/rand"
	"filippo.io/bigmod"
	"github.com/ing-bank/zkrp/util/bn"
	"github.com/takakv/egcore/util"
	"golang.org/x/xerrors"
	"math/big"
	"sync"
)

// Context holds the parameters of a multiplicative group modulo a large
// prime. A Context is immutable after construction and safe for concurrent
// use.
type Context struct {
	name string

	p *big.Int // Field modulus.
	q *big.Int // Subgroup order.
	r *big.Int // Cofactor, (p-1)/q.
	g *big.Int // Generator of the order-q subgroup.

	pMod *bigmod.Modulus
	gNat *bigmod.Nat

	G        *ElementModP
	OneModP  *ElementModP
	ZeroModQ *ElementModQ
	OneModQ  *ElementModQ
	TwoModQ  *ElementModQ
}

var (
	production     *Context
	productionOnce sync.Once
)

// Production returns the process-wide context for the standard 3072-bit
// parameters.
func Production() *Context {
	productionOnce.Do(func() {
		ctx, err := NewContext("Production3072", productionP, productionQ, productionR, productionG)
		if err != nil {
			panic("invalid group definition: " + err.Error())
		}
		production = ctx
	})
	return production
}

// NewContext builds a group context from hexadecimal parameters, which may
// be split into whitespace-separated groups.
func NewContext(name, pHex, qHex, rHex, gHex string) (*Context, error) {
	parse := func(label, s string) (*big.Int, error) {
		b, err := util.ParseHex(s)
		if err != nil {
			return nil, xerrors.Errorf("parameter %s: %v", label, err)
		}
		return new(big.Int).SetBytes(b), nil
	}

	p, err := parse("p", pHex)
	if err != nil {
		return nil, err
	}
	q, err := parse("q", qHex)
	if err != nil {
		return nil, err
	}
	r, err := parse("r", rHex)
	if err != nil {
		return nil, err
	}
	g, err := parse("g", gHex)
	if err != nil {
		return nil, err
	}

	if len(p.Bytes()) > PBytes || len(q.Bytes()) > QBytes {
		return nil, xerrors.New("parameters exceed the serialization sizes")
	}
	pMinusOne := new(big.Int).Sub(p, big.NewInt(1))
	if new(big.Int).Mul(q, r).Cmp(pMinusOne) != 0 {
		return nil, xerrors.New("p - 1 is not q * r")
	}
	if g.Cmp(big.NewInt(1)) <= 0 || g.Cmp(p) >= 0 {
		return nil, xerrors.New("generator out of range")
	}
	if new(big.Int).Exp(g, q, p).Cmp(big.NewInt(1)) != 0 {
		return nil, xerrors.New("generator is not of order q")
	}

	pMod, err := bigmod.NewModulusFromBig(p)
	if err != nil {
		return nil, xerrors.Errorf("modulus: %v", err)
	}
	gBytes, err := util.Normalize(g.Bytes(), PBytes)
	if err != nil {
		return nil, err
	}
	gNat, err := bigmod.NewNat().SetBytes(gBytes, pMod)
	if err != nil {
		return nil, xerrors.Errorf("generator: %v", err)
	}

	ctx := &Context{
		name: name,
		p:    p,
		q:    q,
		r:    r,
		g:    g,
		pMod: pMod,
		gNat: gNat,
	}
	ctx.G = &ElementModP{ctx: ctx, v: new(big.Int).Set(g)}
	ctx.OneModP = &ElementModP{ctx: ctx, v: big.NewInt(1)}
	ctx.ZeroModQ = &ElementModQ{ctx: ctx, v: big.NewInt(0)}
	ctx.OneModQ = &ElementModQ{ctx: ctx, v: big.NewInt(1)}
	ctx.TwoModQ = &ElementModQ{ctx: ctx, v: big.NewInt(2)}
	return ctx, nil
}

// Name returns the name of the group.
func (c *Context) Name() string {
	return c.name
}

// P returns a copy of the field modulus.
func (c *Context) P() *big.Int {
	return new(big.Int).Set(c.p)
}

// Q returns a copy of the subgroup order.
func (c *Context) Q() *big.Int {
	return new(big.Int).Set(c.q)
}

// R returns a copy of the cofactor.
func (c *Context) R() *big.Int {
	return new(big.Int).Set(c.r)
}

func (c *Context) equals(o *Context) bool {
	if c == o {
		return true
	}
	return o != nil && c.p.Cmp(o.p) == 0 && c.g.Cmp(o.g) == 0
}

// BigToElementModP validates that 0 <= x < p.
func (c *Context) BigToElementModP(x *big.Int) (*ElementModP, error) {
	if x == nil || x.Sign() < 0 || x.Cmp(c.p) >= 0 {
		return nil, &RangeError{Domain: "Z_p", Value: x}
	}
	return &ElementModP{ctx: c, v: new(big.Int).Set(x)}, nil
}

// BigToElementModQ validates that 0 <= x < q.
func (c *Context) BigToElementModQ(x *big.Int) (*ElementModQ, error) {
	if x == nil || x.Sign() < 0 || x.Cmp(c.q) >= 0 {
		return nil, &RangeError{Domain: "Z_q", Value: x}
	}
	return &ElementModQ{ctx: c, v: new(big.Int).Set(x)}, nil
}

// BinaryToElementModP decodes big-endian bytes into an element of Z_p.
func (c *Context) BinaryToElementModP(b []byte) (*ElementModP, error) {
	if len(b) > PBytes {
		return nil, &RangeError{Domain: "Z_p", Value: new(big.Int).SetBytes(b)}
	}
	return c.BigToElementModP(new(big.Int).SetBytes(b))
}

// BinaryToElementModQ decodes big-endian bytes into an element of Z_q.
func (c *Context) BinaryToElementModQ(b []byte) (*ElementModQ, error) {
	if len(b) > QBytes {
		return nil, &RangeError{Domain: "Z_q", Value: new(big.Int).SetBytes(b)}
	}
	return c.BigToElementModQ(new(big.Int).SetBytes(b))
}

// UIntToElementModQ converts a small non-negative integer.
func (c *Context) UIntToElementModQ(i uint64) *ElementModQ {
	v := new(big.Int).SetUint64(i)
	return &ElementModQ{ctx: c, v: bn.Mod(v, c.q)}
}

// HashToElementModQ reduces a 256-bit digest modulo q.
func (c *Context) HashToElementModQ(digest []byte) *ElementModQ {
	v := new(big.Int).SetBytes(digest)
	return &ElementModQ{ctx: c, v: bn.Mod(v, c.q)}
}

// RandomElementModQ samples uniformly from [minimum, q) by rejection.
func (c *Context) RandomElementModQ(minimum int) (*ElementModQ, error) {
	lo := big.NewInt(int64(minimum))
	buf := make([]byte, QBytes)
	for {
		if _, err := rand.Read(buf); err != nil {
			return nil, xerrors.Errorf("failed to sample element: %v", err)
		}
		v := new(big.Int).SetBytes(buf)
		if v.Cmp(c.q) < 0 && v.Cmp(lo) >= 0 {
			return &ElementModQ{ctx: c, v: v}, nil
		}
	}
}

// RandomElementModP samples uniformly from [0, p) by rejection.
func (c *Context) RandomElementModP() (*ElementModP, error) {
	buf := make([]byte, PBytes)
	for {
		if _, err := rand.Read(buf); err != nil {
			return nil, xerrors.Errorf("failed to sample element: %v", err)
		}
		v := new(big.Int).SetBytes(buf)
		if v.Cmp(c.p) < 0 {
			return &ElementModP{ctx: c, v: v}, nil
		}
	}
}

// GPowP computes g^e mod p in constant time with respect to e.
func (c *Context) GPowP(e *ElementModQ) *ElementModP {
	c.check(e.ctx)
	out := bigmod.NewNat().Exp(c.gNat, e.Bytes(), c.pMod)
	return &ElementModP{ctx: c, v: new(big.Int).SetBytes(out.Bytes(c.pMod))}
}

// PowP computes b^e mod p in constant time with respect to e.
func (c *Context) PowP(b *ElementModP, e *ElementModQ) *ElementModP {
	c.check(b.ctx)
	c.check(e.ctx)
	base, err := bigmod.NewNat().SetBytes(b.Bytes(), c.pMod)
	if err != nil {
		// Elements are reduced on construction.
		panic("element not reduced: " + err.Error())
	}
	out := bigmod.NewNat().Exp(base, e.Bytes(), c.pMod)
	return &ElementModP{ctx: c, v: new(big.Int).SetBytes(out.Bytes(c.pMod))}
}

// GPowPPublic computes g^e mod p. It is not constant time and must only be
// used with public exponents.
func (c *Context) GPowPPublic(e *ElementModQ) *ElementModP {
	c.check(e.ctx)
	return &ElementModP{ctx: c, v: new(big.Int).Exp(c.g, e.v, c.p)}
}

// PowPPublic computes b^e mod p. It is not constant time and must only be
// used with public exponents.
func (c *Context) PowPPublic(b *ElementModP, e *ElementModQ) *ElementModP {
	c.check(b.ctx)
	c.check(e.ctx)
	return &ElementModP{ctx: c, v: new(big.Int).Exp(b.v, e.v, c.p)}
}

// MultP returns the product of the elements mod p.
func (c *Context) MultP(elems ...*ElementModP) *ElementModP {
	acc := big.NewInt(1)
	for _, e := range elems {
		c.check(e.ctx)
		acc.Mul(acc, e.v)
		acc.Mod(acc, c.p)
	}
	return &ElementModP{ctx: c, v: acc}
}

// DivP returns a / b mod p.
func (c *Context) DivP(a, b *ElementModP) *ElementModP {
	return c.MultP(a, b.InverseP())
}

// AddQ returns the sum of the elements mod q.
func (c *Context) AddQ(elems ...*ElementModQ) *ElementModQ {
	acc := big.NewInt(0)
	for _, e := range elems {
		c.check(e.ctx)
		acc.Add(acc, e.v)
	}
	return &ElementModQ{ctx: c, v: bn.Mod(acc, c.q)}
}

// SubQ returns a - b mod q.
func (c *Context) SubQ(a, b *ElementModQ) *ElementModQ {
	c.check(a.ctx)
	c.check(b.ctx)
	return &ElementModQ{ctx: c, v: bn.Mod(new(big.Int).Sub(a.v, b.v), c.q)}
}

// MultQ returns the product of the elements mod q.
func (c *Context) MultQ(elems ...*ElementModQ) *ElementModQ {
	acc := big.NewInt(1)
	for _, e := range elems {
		c.check(e.ctx)
		acc = bn.Mod(bn.Multiply(acc, e.v), c.q)
	}
	return &ElementModQ{ctx: c, v: acc}
}

// NegateQ returns -a mod q.
func (c *Context) NegateQ(a *ElementModQ) *ElementModQ {
	c.check(a.ctx)
	return &ElementModQ{ctx: c, v: bn.Mod(new(big.Int).Neg(a.v), c.q)}
}

// InverseQ returns a^-1 mod q. Zero has no inverse.
func (c *Context) InverseQ(a *ElementModQ) (*ElementModQ, error) {
	c.check(a.ctx)
	if a.v.Sign() == 0 {
		return nil, &RangeError{Domain: "Z_q^*", Value: a.v}
	}
	return &ElementModQ{ctx: c, v: bn.ModInverse(a.v, c.q)}, nil
}

// APlusBCQ returns a + b*c mod q.
func (c *Context) APlusBCQ(a, b, cc *ElementModQ) *ElementModQ {
	return c.AddQ(a, c.MultQ(b, cc))
}

// AMinusBCQ returns a - b*c mod q.
func (c *Context) AMinusBCQ(a, b, cc *ElementModQ) *ElementModQ {
	return c.SubQ(a, c.MultQ(b, cc))
}

func (c *Context) check(o *Context) {
	if !c.equals(o) {
		panic("incompatible groups")
	}
}
