package ballot

import (
	"encoding/binary"
	"github.com/fxamacker/cbor/v2"
	"golang.org/x/xerrors"
)

// Contest data status values.
const (
	StatusNormal    = "normal"
	StatusNullVote  = "null_vote"
	StatusUnderVote = "under_vote"
)

// contestDataBlock is the granularity the encoded contest data is padded
// to, so the ciphertext length only leaks a coarse size.
const contestDataBlock = 64

// ContestData is the extra per-contest information that travels encrypted
// with the ballot and is revealed on decryption.
type ContestData struct {
	Status   string   `json:"status" cbor:"1,keyasint"`
	WriteIns []string `json:"write_ins,omitempty" cbor:"2,keyasint,omitempty"`
}

// NewContestData derives the status from the number of votes cast.
func NewContestData(votes, limit int, writeIns []string) ContestData {
	status := StatusNormal
	switch {
	case votes == 0:
		status = StatusNullVote
	case votes < limit:
		status = StatusUnderVote
	}
	return ContestData{Status: status, WriteIns: writeIns}
}

// Encode returns a 4-byte big-endian length, the canonical CBOR encoding
// and zero padding up to a multiple of the block size.
func (d ContestData) Encode() ([]byte, error) {
	body, err := canonical.Marshal(d)
	if err != nil {
		return nil, xerrors.Errorf("encode contest data: %v", err)
	}
	n := 4 + len(body)
	if r := n % contestDataBlock; r != 0 {
		n += contestDataBlock - r
	}
	out := make([]byte, n)
	binary.BigEndian.PutUint32(out, uint32(len(body)))
	copy(out[4:], body)
	return out, nil
}

// DecodeContestData reverses Encode.
func DecodeContestData(b []byte) (ContestData, error) {
	if len(b) < 4 {
		return ContestData{}, xerrors.New("contest data too short")
	}
	n := binary.BigEndian.Uint32(b)
	if uint64(n) > uint64(len(b)-4) {
		return ContestData{}, xerrors.Errorf("contest data length %d exceeds %d bytes", n, len(b)-4)
	}
	var d ContestData
	if err := cbor.Unmarshal(b[4:4+n], &d); err != nil {
		return ContestData{}, xerrors.Errorf("decode contest data: %v", err)
	}
	return d, nil
}
