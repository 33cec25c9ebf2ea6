package proof

import (
	"github.com/takakv/egcore/elgamal"
	"github.com/takakv/egcore/group"
	"github.com/takakv/egcore/hash"
	"golang.org/x/xerrors"
)

var (
	// ErrRangeShape is returned when a range proof does not hold one
	// Chaum-Pedersen proof per value 0..L.
	ErrRangeShape = xerrors.New("range proof has the wrong number of proofs")
	// ErrRangeBounds is returned when a challenge or response is not in Z_q.
	ErrRangeBounds = xerrors.New("range proof value out of bounds")
	// ErrRangeChallenge is returned when the recomputed challenge does not
	// match the sum of the stored challenges.
	ErrRangeChallenge = xerrors.New("range proof challenge does not match")
	// ErrRangeValue is returned when asked to prove a value outside 0..L.
	ErrRangeValue = xerrors.New("value outside of the proven range")
)

// Range proves that a ciphertext (α, β) encrypts some value in 0..L.
// Proofs[j] holds (c_j, v_j); exactly one branch is real and the others
// are simulated, so the proofs do not reveal which value is encrypted.
type Range struct {
	Proofs []ChaumPedersen `json:"proofs"`
}

// Limit returns L.
func (r *Range) Limit() int {
	return len(r.Proofs) - 1
}

// commitments holds the prover's per-branch randomness u_j and simulated
// challenges c_j (c_ℓ is unused until the global challenge is known).
type commitments struct {
	u []*group.ElementModQ
	c []*group.ElementModQ
	a []*group.ElementModP
	b []*group.ElementModP
}

func sample(ctx *group.Context, seed *hash.Nonces, i int) (*group.ElementModQ, error) {
	if seed != nil {
		return seed.Get(i), nil
	}
	return ctx.RandomElementModQ(0)
}

// signedMult returns k*c mod q for a possibly negative k.
func signedMult(ctx *group.Context, k int, c *group.ElementModQ) *group.ElementModQ {
	if k >= 0 {
		return ctx.MultQ(ctx.UIntToElementModQ(uint64(k)), c)
	}
	return ctx.NegateQ(ctx.MultQ(ctx.UIntToElementModQ(uint64(-k)), c))
}

// ProveRange proves that ct = (g^ξ, K^(ξ+value)) encrypts a value in
// 0..limit. When seed is non-nil the proof randomness is derived from it,
// which is only meant for reproducible test fixtures.
func ProveRange(pk *elgamal.PublicKey, he hash.UInt256, ct elgamal.Ciphertext, nonce *group.ElementModQ, value, limit int, seed *hash.Nonces) (*Range, error) {
	if limit < 1 || value < 0 || value > limit {
		return nil, ErrRangeValue
	}
	ctx := pk.Context()
	cm := commitments{
		u: make([]*group.ElementModQ, limit+1),
		c: make([]*group.ElementModQ, limit+1),
		a: make([]*group.ElementModP, limit+1),
		b: make([]*group.ElementModP, limit+1),
	}
	for j := 0; j <= limit; j++ {
		u, err := sample(ctx, seed, 2*j)
		if err != nil {
			return nil, err
		}
		cm.u[j] = u
		cm.a[j] = ctx.GPowP(u)
		if j == value {
			cm.b[j] = ctx.PowP(pk.Key, u)
			continue
		}
		c, err := sample(ctx, seed, 2*j+1)
		if err != nil {
			return nil, err
		}
		cm.c[j] = c
		// b_j = K^(u_j + (ℓ-j) c_j)
		cm.b[j] = ctx.PowP(pk.Key, ctx.AddQ(u, signedMult(ctx, value-j, c)))
	}
	return finishRange(pk, he, ct, nonce, value, cm), nil
}

func rangeChallenge(pk *elgamal.PublicKey, he hash.UInt256, ct elgamal.Ciphertext, a, b []*group.ElementModP) *group.ElementModQ {
	items := make([]any, 0, 2*len(a))
	for j := range a {
		items = append(items, a[j], b[j])
	}
	return hash.Function(he.Bytes(), hash.SepRangeProof, pk.Key, ct.Pad, ct.Data, items).
		ToElementModQ(pk.Context())
}

func finishRange(pk *elgamal.PublicKey, he hash.UInt256, ct elgamal.Ciphertext, nonce *group.ElementModQ, value int, cm commitments) *Range {
	ctx := pk.Context()
	c := rangeChallenge(pk, he, ct, cm.a, cm.b)

	// c_ℓ = c - Σ_{j≠ℓ} c_j
	cReal := c
	for j, cj := range cm.c {
		if j != value {
			cReal = ctx.SubQ(cReal, cj)
		}
	}

	proofs := make([]ChaumPedersen, len(cm.u))
	for j := range cm.u {
		cj := cm.c[j]
		if j == value {
			cj = cReal
		}
		proofs[j] = ChaumPedersen{
			Challenge: cj,
			Response:  ctx.AMinusBCQ(cm.u[j], cj, nonce),
		}
	}
	return &Range{Proofs: proofs}
}

// Verify checks that the proof shows ct encrypts a value in 0..limit:
// every c_j and v_j is in Z_q, and with a_j = g^(v_j) α^(c_j) and
// b_j = K^(v_j - j c_j) β^(c_j), Σ c_j = H(HE; 0x21, K, α, β, a_0, b_0, ...).
func (r *Range) Verify(pk *elgamal.PublicKey, he hash.UInt256, ct elgamal.Ciphertext, limit int) error {
	if r == nil || len(r.Proofs) != limit+1 {
		return ErrRangeShape
	}
	for _, p := range r.Proofs {
		if !p.ChallengeInBounds() || !p.ResponseInBounds() {
			return ErrRangeBounds
		}
	}
	if !ct.IsComplete() {
		return ErrRangeChallenge
	}

	ctx := pk.Context()
	a := make([]*group.ElementModP, limit+1)
	b := make([]*group.ElementModP, limit+1)
	sum := ctx.ZeroModQ
	for j, p := range r.Proofs {
		w := ctx.SubQ(p.Response, signedMult(ctx, j, p.Challenge))
		a[j] = ctx.MultP(ctx.GPowPPublic(p.Response), ctx.PowPPublic(ct.Pad, p.Challenge))
		b[j] = ctx.MultP(ctx.PowPPublic(pk.Key, w), ctx.PowPPublic(ct.Data, p.Challenge))
		sum = ctx.AddQ(sum, p.Challenge)
	}
	if !rangeChallenge(pk, he, ct, a, b).Equal(sum) {
		return ErrRangeChallenge
	}
	return nil
}
