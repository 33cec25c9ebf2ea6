package group

import (
	"encoding/json"
	"errors"
	"github.com/stretchr/testify/require"
	"math/big"
	"testing"
)

func TestProduction(t *testing.T) {
	ctx := Production()
	require.Same(t, ctx, Production())
	require.Equal(t, 3072, ctx.P().BitLen())
	require.Equal(t, 256, ctx.Q().BitLen())

	// q = 2^256 - 189
	want := new(big.Int).Lsh(big.NewInt(1), 256)
	want.Sub(want, big.NewInt(189))
	require.Equal(t, 0, want.Cmp(ctx.Q()))

	require.True(t, ctx.G.IsValidResidue())
}

func TestNewContextRejects(t *testing.T) {
	_, err := NewContext("bad", productionP, productionQ, productionR, "1")
	require.Error(t, err)

	_, err = NewContext("bad", productionP, productionQ, "2", productionG)
	require.Error(t, err)
}

func TestGroup(t *testing.T) {
	const testTimes = 1 << 4
	ctx := Production()
	t.Run(ctx.Name()+"/Exp", func(tt *testing.T) { testExp(tt, testTimes, ctx) })
	t.Run(ctx.Name()+"/Inverse", func(tt *testing.T) { testInverse(tt, testTimes, ctx) })
	t.Run(ctx.Name()+"/Order", func(tt *testing.T) { testOrder(tt, testTimes, ctx) })
	t.Run(ctx.Name()+"/ModQ", func(tt *testing.T) { testModQ(tt, testTimes, ctx) })
	t.Run(ctx.Name()+"/MarshalBinary", func(tt *testing.T) { testMarshalBinary(tt, testTimes, ctx) })
	t.Run(ctx.Name()+"/MarshalJSON", func(tt *testing.T) { testMarshalJSON(tt, testTimes, ctx) })
}

func testExp(t *testing.T, testTimes int, ctx *Context) {
	for i := 0; i < testTimes; i++ {
		e, err := ctx.RandomElementModQ(0)
		require.NoError(t, err)

		ct := ctx.GPowP(e)
		vt := ctx.GPowPPublic(e)
		require.True(t, ct.Equal(vt), "constant-time and public exponentiation differ")

		b := ctx.GPowPPublic(ctx.UIntToElementModQ(uint64(i + 3)))
		require.True(t, ctx.PowP(b, e).Equal(ctx.PowPPublic(b, e)))
	}
}

func testInverse(t *testing.T, testTimes int, ctx *Context) {
	for i := 0; i < testTimes; i++ {
		e, err := ctx.RandomElementModQ(1)
		require.NoError(t, err)
		x := ctx.GPowP(e)
		require.True(t, ctx.MultP(x, x.InverseP()).Equal(ctx.OneModP))
		require.True(t, ctx.DivP(x, x).Equal(ctx.OneModP))

		inv, err := ctx.InverseQ(e)
		require.NoError(t, err)
		require.True(t, ctx.MultQ(e, inv).Equal(ctx.OneModQ))
	}

	_, err := ctx.InverseQ(ctx.ZeroModQ)
	var rangeErr *RangeError
	require.True(t, errors.As(err, &rangeErr))
}

func testOrder(t *testing.T, testTimes int, ctx *Context) {
	for i := 0; i < testTimes; i++ {
		e, err := ctx.RandomElementModQ(0)
		require.NoError(t, err)
		x := ctx.GPowP(e)
		require.True(t, x.IsValidResidue())

		// g^e * g^-e = 1
		y := ctx.GPowP(ctx.NegateQ(e))
		require.True(t, ctx.MultP(x, y).Equal(ctx.OneModP))
	}
}

func testModQ(t *testing.T, testTimes int, ctx *Context) {
	for i := 0; i < testTimes; i++ {
		a, err := ctx.RandomElementModQ(0)
		require.NoError(t, err)
		b, err := ctx.RandomElementModQ(0)
		require.NoError(t, err)

		sum := ctx.AddQ(a, b)
		require.True(t, sum.InBounds())
		require.True(t, ctx.SubQ(sum, b).Equal(a))

		// g^(a+b) = g^a * g^b
		require.True(t, ctx.GPowP(sum).Equal(ctx.MultP(ctx.GPowP(a), ctx.GPowP(b))))
		// g^(ab) = (g^a)^b
		require.True(t, ctx.GPowP(ctx.MultQ(a, b)).Equal(ctx.PowP(ctx.GPowP(a), b)))

		require.True(t, ctx.APlusBCQ(a, b, ctx.OneModQ).Equal(sum))
		require.True(t, ctx.AMinusBCQ(sum, b, ctx.OneModQ).Equal(a))
	}

	require.True(t, ctx.NegateQ(ctx.ZeroModQ).IsZero())
}

func testMarshalBinary(t *testing.T, testTimes int, ctx *Context) {
	for i := 0; i < testTimes; i++ {
		x, err := ctx.RandomElementModP()
		require.NoError(t, err)
		enc, err := x.MarshalBinary()
		require.NoError(t, err)
		require.Len(t, enc, PBytes)

		got := new(ElementModP)
		require.NoError(t, got.UnmarshalBinary(enc))
		require.True(t, x.Equal(got))

		e, err := ctx.RandomElementModQ(0)
		require.NoError(t, err)
		require.Len(t, e.Bytes(), QBytes)
	}
}

func testMarshalJSON(t *testing.T, testTimes int, ctx *Context) {
	for i := 0; i < testTimes; i++ {
		e, err := ctx.RandomElementModQ(0)
		require.NoError(t, err)
		x := ctx.GPowP(e)

		enc, err := json.Marshal(struct {
			X *ElementModP
			E *ElementModQ
		}{x, e})
		require.NoError(t, err)

		var got struct {
			X *ElementModP
			E *ElementModQ
		}
		require.NoError(t, json.Unmarshal(enc, &got))
		require.True(t, x.Equal(got.X))
		require.True(t, e.Equal(got.E))
	}
}

func TestRangeRejection(t *testing.T) {
	ctx := Production()
	var rangeErr *RangeError

	_, err := ctx.BigToElementModQ(ctx.Q())
	require.True(t, errors.As(err, &rangeErr))
	_, err = ctx.BigToElementModP(ctx.P())
	require.True(t, errors.As(err, &rangeErr))
	_, err = ctx.BigToElementModP(big.NewInt(-1))
	require.True(t, errors.As(err, &rangeErr))
	_, err = ctx.BinaryToElementModQ(make([]byte, QBytes+1))
	require.True(t, errors.As(err, &rangeErr))

	qMinusOne := new(big.Int).Sub(ctx.Q(), big.NewInt(1))
	e, err := ctx.BigToElementModQ(qMinusOne)
	require.NoError(t, err)
	require.True(t, e.InBounds())

	bad := ctx.Q().FillBytes(make([]byte, QBytes))
	require.Error(t, new(ElementModQ).UnmarshalBinary(bad))
}

func TestRandomInRange(t *testing.T) {
	ctx := Production()
	for i := 0; i < 64; i++ {
		e, err := ctx.RandomElementModQ(2)
		require.NoError(t, err)
		require.True(t, e.InBounds())
		require.True(t, e.Big().Cmp(big.NewInt(2)) >= 0)

		x, err := ctx.RandomElementModP()
		require.NoError(t, err)
		require.True(t, x.InBounds())
	}
}
