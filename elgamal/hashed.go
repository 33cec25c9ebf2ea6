package elgamal

import (
	"crypto/hmac"
	"crypto/sha256"
	"github.com/takakv/egcore/group"
	"github.com/takakv/egcore/hash"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/xerrors"
	"io"
)

// ErrHashedMAC is returned when the MAC of a hashed ciphertext does not
// verify under the derived key.
var ErrHashedMAC = xerrors.New("hashed ciphertext MAC mismatch")

// HashedCiphertext encrypts arbitrary bytes with a key derived from an
// ElGamal shared secret β = K^ξ: C0 = g^ξ, C1 = plaintext xor keystream,
// C2 = MAC(C0 || C1).
type HashedCiphertext struct {
	C0 *group.ElementModP `json:"c0"`
	C1 []byte             `json:"c1"`
	C2 hash.UInt256       `json:"c2"`
}

// EncryptHashed encrypts plaintext for pk. The label binds the ciphertext
// to its position in the ballot.
func EncryptHashed(pk *PublicKey, he hash.UInt256, label string, plaintext []byte, nonce *group.ElementModQ) (*HashedCiphertext, error) {
	pre, err := PrecomputeHashed(pk, nonce)
	if err != nil {
		return nil, err
	}
	return pre.Encrypt(he, label, plaintext)
}

// PrecomputedHashed holds C0 = g^ξ and β = K^ξ so that the plaintext can
// be encrypted later without exponentiations.
type PrecomputedHashed struct {
	pk   *PublicKey
	c0   *group.ElementModP
	beta *group.ElementModP
}

func PrecomputeHashed(pk *PublicKey, nonce *group.ElementModQ) (*PrecomputedHashed, error) {
	if nonce.IsZero() {
		return nil, xerrors.New("nonce must be non-zero")
	}
	ctx := pk.Context()
	return &PrecomputedHashed{pk: pk, c0: ctx.GPowP(nonce), beta: ctx.PowP(pk.Key, nonce)}, nil
}

// Encrypt derives the keys and encrypts plaintext. It may be called more
// than once; every result shares C0.
func (p *PrecomputedHashed) Encrypt(he hash.UInt256, label string, plaintext []byte) (*HashedCiphertext, error) {
	macKey, stream, err := deriveKeys(p.pk, he, label, p.c0, p.beta, len(plaintext))
	if err != nil {
		return nil, err
	}
	c1 := make([]byte, len(plaintext))
	for i := range plaintext {
		c1[i] = plaintext[i] ^ stream[i]
	}
	return &HashedCiphertext{C0: p.c0, C1: c1, C2: mac(macKey, p.c0, c1)}, nil
}

// DecryptWithSecret recovers the plaintext with the secret key s.
func (h *HashedCiphertext) DecryptWithSecret(pk *PublicKey, he hash.UInt256, label string, s *group.ElementModQ) ([]byte, error) {
	beta := pk.Context().PowP(h.C0, s)
	return h.DecryptWithBeta(pk, he, label, beta)
}

// DecryptWithBeta recovers the plaintext from the shared secret β = C0^s.
func (h *HashedCiphertext) DecryptWithBeta(pk *PublicKey, he hash.UInt256, label string, beta *group.ElementModP) ([]byte, error) {
	macKey, stream, err := deriveKeys(pk, he, label, h.C0, beta, len(h.C1))
	if err != nil {
		return nil, err
	}
	want := mac(macKey, h.C0, h.C1)
	if !hmac.Equal(want[:], h.C2[:]) {
		return nil, ErrHashedMAC
	}
	out := make([]byte, len(h.C1))
	for i := range h.C1 {
		out[i] = h.C1[i] ^ stream[i]
	}
	return out, nil
}

func deriveKeys(pk *PublicKey, he hash.UInt256, label string, c0, beta *group.ElementModP, n int) ([]byte, []byte, error) {
	session := hash.Function(he.Bytes(), hash.SepContestDataKey, pk.Key, c0, beta)
	r := hkdf.New(sha256.New, session.Bytes(), nil, []byte("data_enc_keys|"+label))
	buf := make([]byte, sha256.Size+n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, nil, xerrors.Errorf("key derivation: %v", err)
	}
	return buf[:sha256.Size], buf[sha256.Size:], nil
}

func mac(key []byte, c0 *group.ElementModP, c1 []byte) hash.UInt256 {
	return hash.Function(key, c0, c1)
}
