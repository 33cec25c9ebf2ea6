// Package hash implements the keyed hash H(key; items...) used to derive
// every challenge, contest hash and confirmation code.
package hash

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"github.com/takakv/egcore/group"
	"github.com/takakv/egcore/util"
	"golang.org/x/xerrors"
	"io"
)

// UInt256 is a 256-bit hash output.
type UInt256 [32]byte

// Bytes returns a copy of the 32 bytes.
func (u UInt256) Bytes() []byte {
	b := make([]byte, len(u))
	copy(b, u[:])
	return b
}

// ToElementModQ reduces the value modulo q.
func (u UInt256) ToElementModQ(ctx *group.Context) *group.ElementModQ {
	return ctx.HashToElementModQ(u[:])
}

func (u UInt256) String() string {
	return util.UpperHex(u[:])
}

func (u UInt256) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}

func (u *UInt256) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	raw, err := util.ParseHex(s)
	if err != nil {
		return err
	}
	if len(raw) != len(u) {
		return xerrors.Errorf("expected %d bytes, got %d", len(u), len(raw))
	}
	copy(u[:], raw)
	return nil
}

// Serializer is implemented by values that contribute a fixed byte
// sequence to the hash, such as ciphertexts.
type Serializer interface {
	HashBytes() []byte
}

// Function computes HMAC-SHA-256 keyed with key over the concatenated
// serialization of items. Every item is written in order:
//
//	byte          1 byte
//	[]byte        raw
//	UInt256       32 bytes
//	*ElementModP  384 bytes, big-endian
//	*ElementModQ  32 bytes, big-endian
//	string        UTF-8
//	int, uint32   4 bytes, big-endian
//	Serializer    HashBytes()
//	slices of the above, flattened
func Function(key []byte, items ...any) UInt256 {
	mac := hmac.New(sha256.New, key)
	for _, item := range items {
		write(mac, item)
	}
	var out UInt256
	copy(out[:], mac.Sum(nil))
	return out
}

func write(h io.Writer, item any) {
	switch v := item.(type) {
	case byte:
		h.Write([]byte{v})
	case []byte:
		h.Write(v)
	case UInt256:
		h.Write(v[:])
	case *UInt256:
		h.Write(v[:])
	case *group.ElementModP:
		h.Write(v.Bytes())
	case *group.ElementModQ:
		h.Write(v.Bytes())
	case string:
		h.Write([]byte(v))
	case int:
		writeUint32(h, uint32(v))
	case uint32:
		writeUint32(h, v)
	case Serializer:
		h.Write(v.HashBytes())
	case []*group.ElementModP:
		for _, e := range v {
			h.Write(e.Bytes())
		}
	case []*group.ElementModQ:
		for _, e := range v {
			h.Write(e.Bytes())
		}
	case []UInt256:
		for _, e := range v {
			h.Write(e[:])
		}
	case []any:
		for _, e := range v {
			write(h, e)
		}
	default:
		panic(fmt.Sprintf("hash: unsupported item type %T", item))
	}
}

func writeUint32(h io.Writer, v uint32) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	h.Write(buf[:])
}
