// Package proof implements the non-interactive Chaum-Pedersen proofs of
// the protocol: range proofs on encrypted selections and contests, and
// proofs of correct decryption. Challenges are derived with the keyed hash
// over the exact public transcript.
package proof

import (
	"github.com/takakv/egcore/elgamal"
	"github.com/takakv/egcore/group"
	"github.com/takakv/egcore/hash"
)

// ChaumPedersen holds the challenge and response of one proof.
type ChaumPedersen struct {
	Challenge *group.ElementModQ `json:"challenge"`
	Response  *group.ElementModQ `json:"response"`
}

// ResponseInBounds reports whether the response is present and in [0, q).
func (p ChaumPedersen) ResponseInBounds() bool {
	return p.Response != nil && p.Response.InBounds()
}

// ChallengeInBounds reports whether the challenge is present and in [0, q).
func (p ChaumPedersen) ChallengeInBounds() bool {
	return p.Challenge != nil && p.Challenge.InBounds()
}

// ProveDecryption proves that M = data / pad^s for the key pair's secret s,
// i.e. that log_g K = log_pad (data / M).
func ProveDecryption(kp *elgamal.KeyPair, he hash.UInt256, ct elgamal.Ciphertext, M *group.ElementModP) (ChaumPedersen, error) {
	ctx := kp.PublicKey.Context()
	u, err := ctx.RandomElementModQ(2)
	if err != nil {
		return ChaumPedersen{}, err
	}
	a := ctx.GPowP(u)
	b := ctx.PowP(ct.Pad, u)
	mbar := ctx.DivP(ct.Data, M)

	c := hash.Function(he.Bytes(), hash.SepSelectionDecryption, kp.PublicKey.Key,
		ct.Pad, ct.Data, a, b, mbar).ToElementModQ(ctx)
	v := ctx.AMinusBCQ(u, c, kp.SecretKey)
	return ChaumPedersen{Challenge: c, Response: v}, nil
}

// VerifyDecryption recomputes a = g^v K^c and b = pad^v (data/M)^c and
// checks that the stored challenge equals H(HE; 0x30, K, pad, data, a, b,
// data/M). It does not check the response range.
func (p ChaumPedersen) VerifyDecryption(pk *elgamal.PublicKey, he hash.UInt256, ct elgamal.Ciphertext, M *group.ElementModP) bool {
	if !p.ChallengeInBounds() || !p.ResponseInBounds() || M == nil || !ct.IsComplete() {
		return false
	}
	ctx := pk.Context()
	mbar := ctx.DivP(ct.Data, M)
	a := ctx.MultP(ctx.GPowPPublic(p.Response), ctx.PowPPublic(pk.Key, p.Challenge))
	b := ctx.MultP(ctx.PowPPublic(ct.Pad, p.Response), ctx.PowPPublic(mbar, p.Challenge))

	c := hash.Function(he.Bytes(), hash.SepSelectionDecryption, pk.Key,
		ct.Pad, ct.Data, a, b, mbar).ToElementModQ(ctx)
	return c.Equal(p.Challenge)
}

// ProveContestDataDecryption computes β = C0^s and proves it is correct.
func ProveContestDataDecryption(kp *elgamal.KeyPair, he hash.UInt256, hc *elgamal.HashedCiphertext) (ChaumPedersen, *group.ElementModP, error) {
	ctx := kp.PublicKey.Context()
	beta := ctx.PowP(hc.C0, kp.SecretKey)

	u, err := ctx.RandomElementModQ(2)
	if err != nil {
		return ChaumPedersen{}, nil, err
	}
	a := ctx.GPowP(u)
	b := ctx.PowP(hc.C0, u)

	c := hash.Function(he.Bytes(), hash.SepContestDataDecryption, kp.PublicKey.Key,
		hc.C0, hc.C1, hc.C2, a, b, beta).ToElementModQ(ctx)
	v := ctx.AMinusBCQ(u, c, kp.SecretKey)
	return ChaumPedersen{Challenge: c, Response: v}, beta, nil
}

// VerifyContestData recomputes a = g^v K^c and b = C0^v β^c and checks the
// challenge H(HE; 0x31, K, C0, C1, C2, a, b, β).
func (p ChaumPedersen) VerifyContestData(pk *elgamal.PublicKey, he hash.UInt256, hc *elgamal.HashedCiphertext, beta *group.ElementModP) bool {
	if !p.ChallengeInBounds() || !p.ResponseInBounds() || hc == nil || hc.C0 == nil || beta == nil {
		return false
	}
	ctx := pk.Context()
	a := ctx.MultP(ctx.GPowPPublic(p.Response), ctx.PowPPublic(pk.Key, p.Challenge))
	b := ctx.MultP(ctx.PowPPublic(hc.C0, p.Response), ctx.PowPPublic(beta, p.Challenge))

	c := hash.Function(he.Bytes(), hash.SepContestDataDecryption, pk.Key,
		hc.C0, hc.C1, hc.C2, a, b, beta).ToElementModQ(ctx)
	return c.Equal(p.Challenge)
}
