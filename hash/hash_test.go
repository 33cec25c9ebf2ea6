package hash

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/json"
	"github.com/stretchr/testify/require"
	"github.com/takakv/egcore/group"
	"testing"
)

type fixed []byte

func (f fixed) HashBytes() []byte { return f }

func TestFunctionSerialization(t *testing.T) {
	ctx := group.Production()
	key := []byte("key")
	e := ctx.UIntToElementModQ(5)
	p := ctx.G

	got := Function(key, byte(0x30), p, e, "ab", 7, fixed{1, 2})

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte{0x30})
	mac.Write(p.Bytes())
	mac.Write(e.Bytes())
	mac.Write([]byte("ab"))
	mac.Write([]byte{0, 0, 0, 7})
	mac.Write([]byte{1, 2})
	require.Equal(t, mac.Sum(nil), got.Bytes())
}

func TestFunctionOrderMatters(t *testing.T) {
	ctx := group.Production()
	a := ctx.UIntToElementModQ(1)
	b := ctx.UIntToElementModQ(2)
	require.NotEqual(t, Function(nil, a, b), Function(nil, b, a))
	require.Equal(t, Function(nil, a, b), Function(nil, []any{a, b}))
	require.Equal(t, Function(nil, a, b), Function(nil, []*group.ElementModQ{a, b}))
}

func TestFunctionPanicsOnUnknownType(t *testing.T) {
	require.Panics(t, func() { Function(nil, 3.5) })
}

func TestUInt256JSON(t *testing.T) {
	u := Function([]byte("k"), "x")
	enc, err := json.Marshal(u)
	require.NoError(t, err)

	var got UInt256
	require.NoError(t, json.Unmarshal(enc, &got))
	require.Equal(t, u, got)

	require.Error(t, json.Unmarshal([]byte(`"00FF"`), &got))
}

func TestToElementModQ(t *testing.T) {
	ctx := group.Production()
	var u UInt256
	for i := range u {
		u[i] = 0xff
	}
	e := u.ToElementModQ(ctx)
	require.True(t, e.InBounds())
	// 2^256 - 1 mod (2^256 - 189) = 188
	require.True(t, e.Equal(ctx.UIntToElementModQ(188)))
}

func TestNonces(t *testing.T) {
	ctx := group.Production()
	seed := ctx.TwoModQ

	n1 := NewNonces(ctx, seed, "ballot-1")
	n2 := NewNonces(ctx, seed, "ballot-1")
	n3 := NewNonces(ctx, seed, "ballot-2")

	for i := 0; i < 8; i++ {
		require.True(t, n1.Get(i).Equal(n2.Get(i)))
		require.False(t, n1.Get(i).Equal(n3.Get(i)))
		require.True(t, n1.Get(i).InBounds())
	}
	require.False(t, n1.Get(0).Equal(n1.Get(1)))
}
