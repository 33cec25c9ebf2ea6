// Package elgamal implements exponential ElGamal encryption under a joint
// public key K = g^s, with plaintexts encoded as K^m.
package elgamal

import (
	"github.com/takakv/egcore/group"
	"golang.org/x/xerrors"
)

// ErrNoCiphertexts is returned when combining an empty list.
var ErrNoCiphertexts = xerrors.New("no ciphertexts to combine")

// PublicKey is an ElGamal public key K = g^s.
type PublicKey struct {
	Key *group.ElementModP `json:"key"`
}

// NewPublicKey validates that K is a member of the order-q subgroup.
func NewPublicKey(key *group.ElementModP) (*PublicKey, error) {
	if key == nil || !key.IsValidResidue() {
		return nil, xerrors.New("public key is not a valid residue")
	}
	return &PublicKey{Key: key}, nil
}

// Context returns the group of the key.
func (pk *PublicKey) Context() *group.Context {
	return pk.Key.Context()
}

// KeyPair holds a secret s and the matching public key.
type KeyPair struct {
	PublicKey *PublicKey         `json:"public_key"`
	SecretKey *group.ElementModQ `json:"secret_key"`
}

// NewKeyPair derives the public key for secret s. Secrets below 2 would
// make K trivially guessable and are rejected.
func NewKeyPair(ctx *group.Context, secret *group.ElementModQ) (*KeyPair, error) {
	if secret.Big().Sign() <= 0 || secret.Equal(ctx.OneModQ) {
		return nil, xerrors.New("secret key must be at least 2")
	}
	pk, err := NewPublicKey(ctx.GPowP(secret))
	if err != nil {
		return nil, err
	}
	return &KeyPair{PublicKey: pk, SecretKey: secret}, nil
}

// GenerateKeyPair samples a fresh secret from [2, q).
func GenerateKeyPair(ctx *group.Context) (*KeyPair, error) {
	s, err := ctx.RandomElementModQ(2)
	if err != nil {
		return nil, err
	}
	return NewKeyPair(ctx, s)
}

// Ciphertext is an ElGamal ciphertext (g^ξ, K^(ξ+m)).
type Ciphertext struct {
	Pad  *group.ElementModP `json:"pad"`
	Data *group.ElementModP `json:"data"`
}

// Encrypt encrypts m >= 0 under pk with the given nonce.
func Encrypt(pk *PublicKey, m int, nonce *group.ElementModQ) (Ciphertext, error) {
	if m < 0 {
		return Ciphertext{}, xerrors.Errorf("cannot encrypt negative message %d", m)
	}
	if nonce.IsZero() {
		return Ciphertext{}, xerrors.New("nonce must be non-zero")
	}
	ctx := pk.Context()
	exp := ctx.AddQ(nonce, ctx.UIntToElementModQ(uint64(m)))
	return Ciphertext{
		Pad:  ctx.GPowP(nonce),
		Data: ctx.PowP(pk.Key, exp),
	}, nil
}

// Add returns the component-wise product, which encrypts the sum of the
// plaintexts.
func (c Ciphertext) Add(o Ciphertext) Ciphertext {
	ctx := c.Pad.Context()
	return Ciphertext{
		Pad:  ctx.MultP(c.Pad, o.Pad),
		Data: ctx.MultP(c.Data, o.Data),
	}
}

// Sum combines one or more ciphertexts homomorphically.
func Sum(cs ...Ciphertext) (Ciphertext, error) {
	if len(cs) == 0 {
		return Ciphertext{}, ErrNoCiphertexts
	}
	acc := cs[0]
	for _, c := range cs[1:] {
		acc = acc.Add(c)
	}
	return acc, nil
}

// Equal compares both components.
func (c Ciphertext) Equal(o Ciphertext) bool {
	return c.Pad.Equal(o.Pad) && c.Data.Equal(o.Data)
}

// IsComplete reports whether both components are present, as they may not
// be in a decoded record.
func (c Ciphertext) IsComplete() bool {
	return c.Pad != nil && c.Data != nil
}

// IsValid reports whether both components are members of the order-q
// subgroup.
func (c Ciphertext) IsValid() bool {
	return c.IsComplete() && c.Pad.IsValidResidue() && c.Data.IsValidResidue()
}

// HashBytes serializes the ciphertext as pad followed by data.
func (c Ciphertext) HashBytes() []byte {
	return append(c.Pad.Bytes(), c.Data.Bytes()...)
}

// DecryptWithSecret returns M = data / pad^s, which equals K^m.
func (c Ciphertext) DecryptWithSecret(s *group.ElementModQ) *group.ElementModP {
	ctx := c.Pad.Context()
	return ctx.DivP(c.Data, ctx.PowP(c.Pad, s))
}

// DecryptWithNonce returns M = data / K^ξ for the encryption nonce ξ.
func (c Ciphertext) DecryptWithNonce(pk *PublicKey, nonce *group.ElementModQ) *group.ElementModP {
	ctx := c.Pad.Context()
	return ctx.DivP(c.Data, ctx.PowP(pk.Key, nonce))
}
