package group

import (
	"encoding/json"
	"github.com/takakv/egcore/util"
	"math/big"
)

// ElementModP is an element of Z_p, always in [0, p).
type ElementModP struct {
	ctx *Context
	v   *big.Int
}

// ElementModQ is an element of Z_q, always in [0, q).
type ElementModQ struct {
	ctx *Context
	v   *big.Int
}

// Context returns the group the element belongs to.
func (e *ElementModP) Context() *Context {
	return e.ctx
}

// Big returns a copy of the value.
func (e *ElementModP) Big() *big.Int {
	return new(big.Int).Set(e.v)
}

// Bytes returns the 384-byte big-endian encoding.
func (e *ElementModP) Bytes() []byte {
	return e.v.FillBytes(make([]byte, PBytes))
}

// Equal returns true if both elements hold the same value in the same group.
func (e *ElementModP) Equal(o *ElementModP) bool {
	if e == nil || o == nil {
		return e == o
	}
	return e.ctx.equals(o.ctx) && e.v.Cmp(o.v) == 0
}

// InverseP returns e^-1 mod p. Zero maps to zero.
func (e *ElementModP) InverseP() *ElementModP {
	inv := new(big.Int)
	inv.ModInverse(e.v, e.ctx.p)
	return &ElementModP{ctx: e.ctx, v: inv}
}

// InBounds reports whether 0 <= e < p.
func (e *ElementModP) InBounds() bool {
	return e.v.Sign() >= 0 && e.v.Cmp(e.ctx.p) < 0
}

// IsValidResidue reports whether e is a non-zero member of the order-q
// subgroup.
func (e *ElementModP) IsValidResidue() bool {
	if e.v.Sign() <= 0 || !e.InBounds() {
		return false
	}
	return new(big.Int).Exp(e.v, e.ctx.q, e.ctx.p).Cmp(big.NewInt(1)) == 0
}

// String returns the upper-case hexadecimal encoding.
func (e *ElementModP) String() string {
	return util.UpperHex(e.Bytes())
}

func (e *ElementModP) MarshalBinary() ([]byte, error) {
	return e.Bytes(), nil
}

func (e *ElementModP) UnmarshalBinary(b []byte) error {
	ctx := e.ctx
	if ctx == nil {
		ctx = Production()
	}
	x, err := ctx.BinaryToElementModP(b)
	if err != nil {
		return err
	}
	*e = *x
	return nil
}

func (e *ElementModP) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.String())
}

func (e *ElementModP) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	raw, err := util.ParseHex(s)
	if err != nil {
		return err
	}
	return e.UnmarshalBinary(raw)
}

// Context returns the group the element belongs to.
func (e *ElementModQ) Context() *Context {
	return e.ctx
}

// Big returns a copy of the value.
func (e *ElementModQ) Big() *big.Int {
	return new(big.Int).Set(e.v)
}

// Bytes returns the 32-byte big-endian encoding.
func (e *ElementModQ) Bytes() []byte {
	return e.v.FillBytes(make([]byte, QBytes))
}

// Equal returns true if both elements hold the same value in the same group.
func (e *ElementModQ) Equal(o *ElementModQ) bool {
	if e == nil || o == nil {
		return e == o
	}
	return e.ctx.equals(o.ctx) && e.v.Cmp(o.v) == 0
}

// InBounds reports whether 0 <= e < q.
func (e *ElementModQ) InBounds() bool {
	return e.v.Sign() >= 0 && e.v.Cmp(e.ctx.q) < 0
}

// IsZero reports whether e is the additive identity.
func (e *ElementModQ) IsZero() bool {
	return e.v.Sign() == 0
}

// String returns the upper-case hexadecimal encoding.
func (e *ElementModQ) String() string {
	return util.UpperHex(e.Bytes())
}

func (e *ElementModQ) MarshalBinary() ([]byte, error) {
	return e.Bytes(), nil
}

func (e *ElementModQ) UnmarshalBinary(b []byte) error {
	ctx := e.ctx
	if ctx == nil {
		ctx = Production()
	}
	x, err := ctx.BinaryToElementModQ(b)
	if err != nil {
		return err
	}
	*e = *x
	return nil
}

func (e *ElementModQ) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.String())
}

func (e *ElementModQ) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	raw, err := util.ParseHex(s)
	if err != nil {
		return err
	}
	return e.UnmarshalBinary(raw)
}
