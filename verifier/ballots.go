package verifier

import (
	"context"
	"errors"
	"fmt"
	"github.com/takakv/egcore/ballot"
	"github.com/takakv/egcore/elgamal"
	"github.com/takakv/egcore/hash"
	"github.com/takakv/egcore/pipeline"
	"github.com/takakv/egcore/proof"
	"time"
)

// Encrypted ballot check ids.
const (
	checkSelectionBounds = "5.A"
	checkSelectionProof  = "5.B"
	checkBallotManifest  = "5.C"
	checkContestProduct  = "6.A"
	checkContestProof    = "6.B"
	checkContestHash     = "7.A"
	checkConfirmation    = "7.B"
)

// BallotVerifier checks the proofs and hashes of submitted ballots.
type BallotVerifier struct {
	pk       *elgamal.PublicKey
	he       hash.UInt256
	manifest *ballot.Manifest
}

func NewBallotVerifier(cfg *ballot.ElectionConfig) *BallotVerifier {
	return &BallotVerifier{
		pk:       cfg.JointPublicKey,
		he:       cfg.ExtendedBaseHash,
		manifest: cfg.Manifest,
	}
}

func rangeCheck(err error, bounds, challenge string) string {
	if errors.Is(err, proof.ErrRangeChallenge) {
		return challenge
	}
	return bounds
}

// Verify checks every selection ciphertext and range proof (5.A, 5.B),
// manifest coverage (5.C), every contest aggregate and limit proof (6.A,
// 6.B), the contest hashes (7.A) and the confirmation code (7.B). A record
// with missing fields yields findings, never a panic.
func (v *BallotVerifier) Verify(b *ballot.EncryptedBallot, stats *Stats) []Finding {
	start := time.Now()
	var findings []Finding
	add := func(check, where, format string, args ...any) {
		findings = append(findings, Finding{Check: check, Where: where, Message: fmt.Sprintf(format, args...)})
	}

	nselections := 0
	seen := make(map[string]bool)
	hashes := make([]hash.UInt256, 0, len(b.Contests))
	for i := range b.Contests {
		c := &b.Contests[i]
		where := b.BallotID + "/" + c.ContestID
		hashes = append(hashes, c.ContestHash)
		mc, ok := v.manifest.Contest(c.ContestID)
		if !ok {
			add(checkBallotManifest, where, "contest not in manifest")
			continue
		}

		// every input of the contest hash must be present to recompute it
		hashable := c.Ciphertext.IsComplete() && (c.ContestData == nil || c.ContestData.C0 != nil)
		cts := make([]elgamal.Ciphertext, 0, len(c.Selections))
		for _, s := range c.Selections {
			nselections++
			key := ballot.SelectionKey(c.ContestID, s.SelectionID)
			here := b.BallotID + "/" + key
			seen[key] = true
			if _, ok := mc.Selection(s.SelectionID); !ok {
				add(checkBallotManifest, here, "selection not in manifest")
				continue
			}
			if !s.Ciphertext.IsComplete() {
				add(checkSelectionBounds, here, "selection ciphertext is missing")
				hashable = false
				continue
			}
			if !s.Ciphertext.IsValid() {
				add(checkSelectionBounds, here, "selection ciphertext is not in the group")
			}
			cts = append(cts, s.Ciphertext)
			if err := s.Proof.Verify(v.pk, v.he, s.Ciphertext, 1); err != nil {
				add(rangeCheck(err, checkSelectionBounds, checkSelectionProof), here, "selection range proof: %v", err)
			}
		}

		if total, err := elgamal.Sum(cts...); err != nil || !total.Equal(c.Ciphertext) {
			add(checkContestProduct, where, "contest ciphertext is not the product of its selections")
		}
		if err := c.Proof.Verify(v.pk, v.he, c.Ciphertext, mc.VotesAllowed); err != nil {
			add(checkContestProof, where, "contest limit proof: %v", err)
		}
		if !hashable {
			add(checkContestHash, where, "contest hash inputs are missing")
		} else if ballot.ContestHash(v.he, v.pk, c) != c.ContestHash {
			add(checkContestHash, where, "contest hash does not match")
		}
	}

	for _, mc := range v.manifest.Contests {
		for _, ms := range mc.Selections {
			key := ballot.SelectionKey(mc.ContestID, ms.SelectionID)
			if !seen[key] {
				add(checkBallotManifest, b.BallotID+"/"+key, "manifest selection not in ballot")
			}
		}
	}

	if ballot.ConfirmationCode(v.he, b.CodeSeed, hashes) != b.ConfirmationCode {
		add(checkConfirmation, b.BallotID, "confirmation code does not match")
	}

	if stats != nil {
		stats.Of("verifyEncryptedBallots", "selections").Accum(time.Since(start), nselections)
	}
	return findings
}

// VerifyBallots verifies submitted ballots with the given number of
// parallel workers.
func (v *BallotVerifier) VerifyBallots(ctx context.Context, ballots []*ballot.EncryptedBallot, workers int, stats *Stats) (*Report, error) {
	r := &Report{}
	err := pipeline.Run(ctx, pipeline.Config{Workers: workers}, pipeline.Slice(ballots),
		func(_ context.Context, _ int, b *ballot.EncryptedBallot) ([]Finding, error) {
			return v.Verify(b, stats), nil
		},
		func(_ context.Context, fs []Finding, _ error) error {
			r.Add(fs...)
			return nil
		})
	if err != nil {
		return nil, err
	}
	return r, nil
}
