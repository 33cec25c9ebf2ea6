package ballot

import (
	"github.com/takakv/egcore/elgamal"
	"github.com/takakv/egcore/group"
	"github.com/takakv/egcore/hash"
	"github.com/takakv/egcore/proof"
	"golang.org/x/xerrors"
)

// CiphertextBallot is an encrypted ballot that has not been submitted yet.
// It still holds the selection nonces, which Submit drops.
type CiphertextBallot struct {
	BallotID         string              `json:"ballot_id"`
	BallotStyleID    string              `json:"ballot_style_id"`
	CodeSeed         hash.UInt256        `json:"code_seed"`
	ConfirmationCode hash.UInt256        `json:"confirmation_code"`
	Timestamp        int64               `json:"timestamp"`
	Contests         []CiphertextContest `json:"contests"`
}

// CiphertextContest holds the encrypted selections of one contest, their
// product with a proof that it encrypts at most VotesAllowed, and the
// encrypted contest data.
type CiphertextContest struct {
	ContestID     string                    `json:"contest_id"`
	SequenceOrder int                       `json:"sequence_order"`
	Selections    []CiphertextSelection     `json:"selections"`
	Ciphertext    elgamal.Ciphertext        `json:"ciphertext"`
	Proof         *proof.Range              `json:"proof"`
	ContestData   *elgamal.HashedCiphertext `json:"contest_data"`
	ContestHash   hash.UInt256              `json:"contest_hash"`
}

type CiphertextSelection struct {
	SelectionID   string             `json:"selection_id"`
	SequenceOrder int                `json:"sequence_order"`
	Ciphertext    elgamal.Ciphertext `json:"ciphertext"`
	Proof         *proof.Range       `json:"proof"`
	Nonce         *group.ElementModQ `json:"-"`
}

// BallotState is the state of a submitted ballot.
type BallotState int

const (
	Cast BallotState = iota + 1
	Spoiled
)

func (s BallotState) String() string {
	switch s {
	case Cast:
		return "CAST"
	case Spoiled:
		return "SPOILED"
	default:
		return "UNKNOWN"
	}
}

func (s BallotState) MarshalText() ([]byte, error) {
	if s != Cast && s != Spoiled {
		return nil, xerrors.Errorf("invalid ballot state %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *BallotState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "CAST":
		*s = Cast
	case "SPOILED":
		*s = Spoiled
	default:
		return xerrors.Errorf("invalid ballot state %q", string(b))
	}
	return nil
}

// EncryptedBallot is a submitted ballot as published in the record.
type EncryptedBallot struct {
	CiphertextBallot
	State BallotState `json:"state"`
}

// Submit casts or spoils the ballot. The returned ballot shares no nonces
// with the receiver.
func (b *CiphertextBallot) Submit(state BallotState) (*EncryptedBallot, error) {
	if state != Cast && state != Spoiled {
		return nil, xerrors.Errorf("cannot submit ballot %s as %s", b.BallotID, state)
	}
	out := &EncryptedBallot{CiphertextBallot: *b, State: state}
	out.Contests = make([]CiphertextContest, len(b.Contests))
	for i, c := range b.Contests {
		c.Selections = append([]CiphertextSelection(nil), c.Selections...)
		for j := range c.Selections {
			c.Selections[j].Nonce = nil
		}
		out.Contests[i] = c
	}
	return out, nil
}

// ContestHash computes χ = H(HE; 0x23, sequence order, K, selection
// ciphertexts in order, contest ciphertext, contest data).
func ContestHash(he hash.UInt256, pk *elgamal.PublicKey, c *CiphertextContest) hash.UInt256 {
	items := make([]any, 0, len(c.Selections))
	for _, s := range c.Selections {
		items = append(items, s.Ciphertext)
	}
	var data []byte
	if c.ContestData != nil {
		data = append(c.ContestData.C0.Bytes(), c.ContestData.C1...)
		data = append(data, c.ContestData.C2[:]...)
	}
	return hash.Function(he.Bytes(), hash.SepContestHash, c.SequenceOrder, pk.Key, items, c.Ciphertext, data)
}

// ConfirmationCode computes H(HE; 0x24, χ_1, ..., χ_m, code seed).
func ConfirmationCode(he hash.UInt256, codeSeed hash.UInt256, contestHashes []hash.UInt256) hash.UInt256 {
	return hash.Function(he.Bytes(), hash.SepConfirmationCode, contestHashes, codeSeed)
}
