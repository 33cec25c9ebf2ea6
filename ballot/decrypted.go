package ballot

import (
	"github.com/takakv/egcore/elgamal"
	"github.com/takakv/egcore/group"
	"github.com/takakv/egcore/proof"
)

// DecryptedTallyOrBallot is a decrypted tally or spoiled ballot together
// with the proofs that the decryption is correct.
type DecryptedTallyOrBallot struct {
	ID       string             `json:"id"`
	Contests []DecryptedContest `json:"contests"`
}

type DecryptedContest struct {
	ContestID   string                `json:"contest_id"`
	Selections  []DecryptedSelection  `json:"selections"`
	ContestData *DecryptedContestData `json:"decrypted_contest_data,omitempty"`
}

// DecryptedSelection carries the cleartext tally t, the value M = K^t and
// a proof that M is the decryption of Ciphertext.
type DecryptedSelection struct {
	SelectionID string              `json:"selection_id"`
	Tally       int                 `json:"tally"`
	Value       *group.ElementModP  `json:"value"`
	Ciphertext  elgamal.Ciphertext  `json:"ciphertext"`
	Proof       proof.ChaumPedersen `json:"proof"`
}

// DecryptedContestData carries the revealed contest data, the shared
// secret β = C0^s and its proof.
type DecryptedContestData struct {
	ContestData          ContestData               `json:"contest_data"`
	EncryptedContestData *elgamal.HashedCiphertext `json:"encrypted_contest_data"`
	Beta                 *group.ElementModP        `json:"beta"`
	Proof                proof.ChaumPedersen       `json:"proof"`
}

// Tallies returns the cleartext tally of every selection keyed by
// SelectionKey.
func (d *DecryptedTallyOrBallot) Tallies() map[string]int {
	out := make(map[string]int)
	for _, c := range d.Contests {
		for _, s := range c.Selections {
			out[SelectionKey(c.ContestID, s.SelectionID)] = s.Tally
		}
	}
	return out
}
