package verifier

import (
	"github.com/takakv/egcore/ballot"
	"github.com/takakv/egcore/elgamal"
)

const (
	checkAggregation = "9.A"
	checkSpoiledCt   = "12.A"
)

// VerifyAggregation recomputes the encrypted tally from the submitted
// ballots and checks that every decrypted tally selection carries the
// product of the cast ciphertexts.
func (v *DecryptionVerifier) VerifyAggregation(ballots []*ballot.EncryptedBallot, t *ballot.DecryptedTallyOrBallot) []Finding {
	et, err := ballot.AccumulateTally(v.pk.Context(), t.ID, v.manifest, ballots)
	if err != nil {
		return []Finding{{Check: checkAggregation, Where: t.ID, Message: err.Error()}}
	}
	want := make(map[string]elgamal.Ciphertext)
	for _, c := range et.Contests {
		for _, s := range c.Selections {
			want[ballot.SelectionKey(c.ContestID, s.SelectionID)] = s.Ciphertext
		}
	}
	return compareCiphertexts(checkAggregation, t, want)
}

// VerifySpoiledCiphertexts checks that every decrypted spoiled ballot
// decrypts the ciphertexts of a submitted SPOILED ballot with the same id.
func (v *DecryptionVerifier) VerifySpoiledCiphertexts(ballots []*ballot.EncryptedBallot, spoiled []*ballot.DecryptedTallyOrBallot) []Finding {
	byID := make(map[string]*ballot.EncryptedBallot)
	for _, b := range ballots {
		if b.State == ballot.Spoiled {
			byID[b.BallotID] = b
		}
	}
	var findings []Finding
	for _, d := range spoiled {
		b, ok := byID[d.ID]
		if !ok {
			findings = append(findings, Finding{Check: checkSpoiledCt, Where: d.ID, Message: "no spoiled ballot with this id"})
			continue
		}
		want := make(map[string]elgamal.Ciphertext)
		for _, c := range b.Contests {
			for _, s := range c.Selections {
				want[ballot.SelectionKey(c.ContestID, s.SelectionID)] = s.Ciphertext
			}
		}
		findings = append(findings, compareCiphertexts(checkSpoiledCt, d, want)...)
	}
	return findings
}

func compareCiphertexts(check string, d *ballot.DecryptedTallyOrBallot, want map[string]elgamal.Ciphertext) []Finding {
	var findings []Finding
	for _, c := range d.Contests {
		for _, s := range c.Selections {
			key := ballot.SelectionKey(c.ContestID, s.SelectionID)
			ct, ok := want[key]
			if !ok || !s.Ciphertext.IsComplete() || !ct.Equal(s.Ciphertext) {
				findings = append(findings, Finding{Check: check, Where: d.ID + "/" + key, Message: "ciphertext does not match the submitted ballots"})
			}
		}
	}
	return findings
}
