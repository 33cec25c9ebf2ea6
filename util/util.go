package util

import (
	"encoding/hex"
	"golang.org/x/xerrors"
	"strings"
)

// ParseHex decodes a hexadecimal string that may be split into
// whitespace-separated groups, as the published group constants are.
func ParseHex(s string) ([]byte, error) {
	repr := strings.Join(strings.Fields(s), "")
	if len(repr)%2 == 1 {
		repr = "0" + repr
	}
	b, err := hex.DecodeString(repr)
	if err != nil {
		return nil, xerrors.Errorf("invalid hex constant: %v", err)
	}
	return b, nil
}

// Normalize left-pads b with zeros to exactly n bytes. Leading zero bytes
// beyond n are stripped; a value that does not fit is an error.
func Normalize(b []byte, n int) ([]byte, error) {
	for len(b) > n && b[0] == 0 {
		b = b[1:]
	}
	if len(b) > n {
		return nil, xerrors.Errorf("value of %d bytes does not fit in %d bytes", len(b), n)
	}
	out := make([]byte, n)
	copy(out[n-len(b):], b)
	return out, nil
}

// UpperHex returns the upper-case hexadecimal encoding of b.
func UpperHex(b []byte) string {
	return strings.ToUpper(hex.EncodeToString(b))
}
