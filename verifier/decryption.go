// Package verifier replays the numbered checks of the protocol against
// published election data, independently of how it was produced. Every
// check runs; failures accumulate as findings instead of stopping at the
// first one.
package verifier

import (
	"context"
	"fmt"
	"github.com/takakv/egcore/ballot"
	"github.com/takakv/egcore/elgamal"
	"github.com/takakv/egcore/hash"
	"github.com/takakv/egcore/pipeline"
	"time"
)

// Kind selects the checks that apply to a decrypted record.
type Kind int

const (
	// KindTally is a decrypted tally: checks 8, 9 and 10.
	KindTally Kind = iota
	// KindBallot is a decrypted spoiled ballot: checks 11 to 14, including
	// the 0/1 and contest limit checks.
	KindBallot
)

// Target is a decrypted tally or ballot to verify.
type Target struct {
	Kind      Kind
	Decrypted *ballot.DecryptedTallyOrBallot
}

// check ids for tallies and ballots respectively
var (
	checkContest   = [2]string{"9.C", "13.C"}
	checkSelection = [2]string{"9.D", "13.D"}
	checkCovered   = [2]string{"9.E", "13.E"}
	checkResponse  = [2]string{"8.A", "11.A"}
	checkChallenge = [2]string{"8.B", "11.B"}
	checkValue     = [2]string{"9.B", "12.B"}
	checkDataResp  = [2]string{"10.A", "14.A"}
	checkDataChal  = [2]string{"10.B", "14.B"}
)

const (
	checkVote  = "13.A"
	checkLimit = "13.B"
)

// DecryptionVerifier checks decrypted tallies and spoiled ballots.
type DecryptionVerifier struct {
	pk         *elgamal.PublicKey
	he         hash.UInt256
	manifest   *ballot.Manifest
	limits     map[string]int
	selections map[string]struct{}
}

// NewDecryptionVerifier indexes the manifest once for all verifications.
func NewDecryptionVerifier(cfg *ballot.ElectionConfig) *DecryptionVerifier {
	return &DecryptionVerifier{
		pk:         cfg.JointPublicKey,
		he:         cfg.ExtendedBaseHash,
		manifest:   cfg.Manifest,
		limits:     cfg.Manifest.ContestLimits(),
		selections: cfg.Manifest.SelectionSet(),
	}
}

// Verify runs every check on the target and returns all findings. It does
// not modify the target and may be called concurrently.
func (v *DecryptionVerifier) Verify(t Target, stats *Stats) []Finding {
	start := time.Now()
	k := t.Kind
	d := t.Decrypted
	ctx := v.pk.Context()

	var findings []Finding
	add := func(check, where, format string, args ...any) {
		findings = append(findings, Finding{Check: check, Where: where, Message: fmt.Sprintf(format, args...)})
	}

	nselections := 0
	covered := make(map[string]bool)
	for _, c := range d.Contests {
		where := d.ID + "/" + c.ContestID
		limit, ok := v.limits[c.ContestID]
		if !ok {
			add(checkContest[k], where, "contest not in manifest")
			continue
		}
		if c.ContestData != nil {
			findings = append(findings, v.verifyContestData(k, where, c.ContestData)...)
		}

		votes := 0
		for _, s := range c.Selections {
			nselections++
			key := ballot.SelectionKey(c.ContestID, s.SelectionID)
			here := d.ID + "/" + key
			covered[key] = true
			if _, ok := v.selections[key]; !ok {
				add(checkSelection[k], here, "selection not in manifest")
				continue
			}

			if !s.Proof.ResponseInBounds() {
				add(checkResponse[k], here, "response out of bounds")
			}
			if !s.Proof.VerifyDecryption(v.pk, v.he, s.Ciphertext, s.Value) {
				add(checkChallenge[k], here, "challenge does not match")
			}
			if s.Tally < 0 || s.Value == nil ||
				!s.Value.Equal(ctx.PowPPublic(v.pk.Key, ctx.UIntToElementModQ(uint64(s.Tally)))) {
				add(checkValue[k], here, "M = K^t mod p failed for tally %d", s.Tally)
			}
			if k == KindBallot && s.Tally != 0 && s.Tally != 1 {
				add(checkVote, here, "ballot vote %d must be 0 or 1", s.Tally)
			}
			votes += s.Tally
		}
		if k == KindBallot && (votes < 0 || votes > limit) {
			add(checkLimit, where, "sum of votes %d must be in [0, %d]", votes, limit)
		}
	}

	for _, mc := range v.manifest.Contests {
		for _, ms := range mc.Selections {
			key := ballot.SelectionKey(mc.ContestID, ms.SelectionID)
			if !covered[key] {
				add(checkCovered[k], d.ID+"/"+key, "manifest selection not in %s", kindName(k))
			}
		}
	}

	if stats != nil {
		stats.Of("verifyDecryption", "selections").Accum(time.Since(start), nselections)
	}
	return findings
}

func (v *DecryptionVerifier) verifyContestData(k Kind, where string, cd *ballot.DecryptedContestData) []Finding {
	var findings []Finding
	if !cd.Proof.ResponseInBounds() {
		findings = append(findings, Finding{Check: checkDataResp[k], Where: where, Message: "contest data response out of bounds"})
	}
	if !cd.Proof.VerifyContestData(v.pk, v.he, cd.EncryptedContestData, cd.Beta) {
		findings = append(findings, Finding{Check: checkDataChal[k], Where: where, Message: "contest data challenge does not match"})
	}
	return findings
}

func kindName(k Kind) string {
	if k == KindBallot {
		return "ballot"
	}
	return "tally"
}

// VerifyTally verifies a decrypted tally.
func (v *DecryptionVerifier) VerifyTally(t *ballot.DecryptedTallyOrBallot, stats *Stats) *Report {
	r := &Report{}
	r.Add(v.Verify(Target{Kind: KindTally, Decrypted: t}, stats)...)
	return r
}

// VerifySpoiledBallotTallies verifies decrypted spoiled ballots with the
// given number of parallel workers. The findings do not depend on the
// number of workers.
func (v *DecryptionVerifier) VerifySpoiledBallotTallies(ctx context.Context, ballots []*ballot.DecryptedTallyOrBallot, workers int, stats *Stats) (*Report, error) {
	start := time.Now()
	r := &Report{}
	err := pipeline.Run(ctx, pipeline.Config{Workers: workers}, pipeline.Slice(ballots),
		func(_ context.Context, _ int, b *ballot.DecryptedTallyOrBallot) ([]Finding, error) {
			return v.Verify(Target{Kind: KindBallot, Decrypted: b}, stats), nil
		},
		func(_ context.Context, fs []Finding, _ error) error {
			r.Add(fs...)
			return nil
		})
	if err != nil {
		return nil, err
	}
	if stats != nil {
		stats.Of("verifySpoiledBallotTallies", "ballots").Accum(time.Since(start), len(ballots))
	}
	return r, nil
}
