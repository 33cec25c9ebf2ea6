package ballot

import (
	"github.com/takakv/egcore/elgamal"
	"github.com/takakv/egcore/group"
	"golang.org/x/xerrors"
)

// EncryptedTally is the homomorphic sum of the cast ballots.
type EncryptedTally struct {
	TallyID       string         `json:"tally_id"`
	CastBallotIDs []string       `json:"cast_ballot_ids"`
	Contests      []TallyContest `json:"contests"`
}

type TallyContest struct {
	ContestID  string           `json:"contest_id"`
	Selections []TallySelection `json:"selections"`
}

type TallySelection struct {
	SelectionID string             `json:"selection_id"`
	Ciphertext  elgamal.Ciphertext `json:"ciphertext"`
}

// AccumulateTally multiplies the selection ciphertexts of every CAST
// ballot per manifest selection. Spoiled ballots are skipped. A selection
// without cast ballots holds the trivial encryption (1, 1) of 0.
func AccumulateTally(ctx *group.Context, tallyID string, m *Manifest, ballots []*EncryptedBallot) (*EncryptedTally, error) {
	if len(m.Contests) == 0 {
		return nil, xerrors.New("manifest has no contests")
	}
	one := ctx.OneModP
	sums := make(map[string]elgamal.Ciphertext)
	for _, key := range m.selectionKeys() {
		sums[key] = elgamal.Ciphertext{Pad: one, Data: one}
	}

	seen := make(map[string]bool)
	t := &EncryptedTally{TallyID: tallyID}
	for _, b := range ballots {
		if b.State != Cast {
			continue
		}
		if seen[b.BallotID] {
			return nil, xerrors.Errorf("ballot %s is cast twice", b.BallotID)
		}
		seen[b.BallotID] = true
		for _, c := range b.Contests {
			for _, s := range c.Selections {
				key := SelectionKey(c.ContestID, s.SelectionID)
				sum, ok := sums[key]
				if !ok {
					return nil, xerrors.Errorf("ballot %s: selection %s not in manifest", b.BallotID, key)
				}
				if !s.Ciphertext.IsComplete() {
					return nil, xerrors.Errorf("ballot %s: selection %s has no ciphertext", b.BallotID, key)
				}
				sums[key] = sum.Add(s.Ciphertext)
			}
		}
		t.CastBallotIDs = append(t.CastBallotIDs, b.BallotID)
	}

	for _, c := range m.Contests {
		tc := TallyContest{ContestID: c.ContestID}
		for _, s := range c.Selections {
			tc.Selections = append(tc.Selections, TallySelection{
				SelectionID: s.SelectionID,
				Ciphertext:  sums[SelectionKey(c.ContestID, s.SelectionID)],
			})
		}
		t.Contests = append(t.Contests, tc)
	}
	return t, nil
}

func (m *Manifest) selectionKeys() []string {
	var keys []string
	for _, c := range m.Contests {
		for _, s := range c.Selections {
			keys = append(keys, SelectionKey(c.ContestID, s.SelectionID))
		}
	}
	return keys
}
