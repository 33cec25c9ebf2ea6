package encrypt

import (
	"github.com/takakv/egcore/ballot"
	"github.com/takakv/egcore/elgamal"
	"github.com/takakv/egcore/group"
	"github.com/takakv/egcore/hash"
	"github.com/takakv/egcore/proof"
	"golang.org/x/xerrors"
	"time"
)

// Precompute is a ballot whose exponentiations were done before the voter
// made any choice, including the contest limit proofs and the contest data
// keys. Vote only records values; Encrypt completes every proof with
// multiplications and hashes.
type Precompute struct {
	enc      *Encryptor
	ballotID string
	styleID  string
	codeSeed hash.UInt256
	master   *group.ElementModQ
	contests []*precomputedContest
}

type precomputedContest struct {
	contest    *ballot.Contest
	selections []*precomputedSelection
	writeIns   []string
	limit      *proof.PrecomputedRange
	data       *elgamal.PrecomputedHashed
}

type precomputedSelection struct {
	selection *ballot.Selection
	pre       *proof.PrecomputedRange
	vote      int
}

// NewPrecompute prepares every selection of the manifest. With a nil
// masterNonce the nonces are random; otherwise they are derived as in
// EncryptFixed, for tests only.
func NewPrecompute(enc *Encryptor, ballotID, styleID string, codeSeed hash.UInt256, masterNonce *group.ElementModQ) (*Precompute, error) {
	p := &Precompute{
		enc:      enc,
		ballotID: ballotID,
		styleID:  styleID,
		codeSeed: codeSeed,
		master:   masterNonce,
	}
	for i := range enc.manifest.Contests {
		mc := &enc.manifest.Contests[i]
		pc := &precomputedContest{contest: mc}
		nonce := enc.ctx.ZeroModQ
		for j := range mc.Selections {
			ms := &mc.Selections[j]
			sn, seed, err := enc.selectionNonce(masterNonce, ballotID, mc, ms)
			if err != nil {
				return nil, err
			}
			pre, err := proof.PrecomputeRange(enc.pk, sn, 1, seed)
			if err != nil {
				return nil, err
			}
			nonce = enc.ctx.AddQ(nonce, sn)
			pc.selections = append(pc.selections, &precomputedSelection{selection: ms, pre: pre})
		}

		// the contest ciphertext is the product of its selections, so its
		// nonce is the sum of theirs
		seed, dataNonce, err := enc.contestNonces(masterNonce, ballotID, mc)
		if err != nil {
			return nil, err
		}
		if pc.limit, err = proof.PrecomputeRange(enc.pk, nonce, mc.VotesAllowed, seed); err != nil {
			return nil, err
		}
		if pc.data, err = elgamal.PrecomputeHashed(enc.pk, dataNonce); err != nil {
			return nil, err
		}
		p.contests = append(p.contests, pc)
	}
	return p, nil
}

func (p *Precompute) find(contestID string) (*precomputedContest, error) {
	for _, pc := range p.contests {
		if pc.contest.ContestID == contestID {
			return pc, nil
		}
	}
	return nil, precondition(p.ballotID, "contest %s not in manifest", contestID)
}

// Vote sets a selection to 0 or 1. Voting again on the same selection
// replaces the previous value.
func (p *Precompute) Vote(contestID, selectionID string, v int) error {
	pc, err := p.find(contestID)
	if err != nil {
		return err
	}
	if v != 0 && v != 1 {
		return precondition(p.ballotID, "selection %s has vote %d", ballot.SelectionKey(contestID, selectionID), v)
	}
	for _, ps := range pc.selections {
		if ps.selection.SelectionID == selectionID {
			ps.vote = v
			return nil
		}
	}
	return precondition(p.ballotID, "selection %s not in contest %s", selectionID, contestID)
}

// WriteIns replaces the write-ins recorded in the contest data.
func (p *Precompute) WriteIns(contestID string, writeIns ...string) error {
	pc, err := p.find(contestID)
	if err != nil {
		return err
	}
	pc.writeIns = writeIns
	return nil
}

// Encrypt completes the ballot with the current votes.
func (p *Precompute) Encrypt() (*ballot.CiphertextBallot, error) {
	e := p.enc
	cb := &ballot.CiphertextBallot{
		BallotID:      p.ballotID,
		BallotStyleID: p.styleID,
		CodeSeed:      p.codeSeed,
	}
	if p.master == nil {
		cb.Timestamp = time.Now().Unix()
	}

	for _, pc := range p.contests {
		mc := pc.contest
		sum := 0
		selections := make([]ballot.CiphertextSelection, 0, len(pc.selections))
		for _, ps := range pc.selections {
			sum += ps.vote
			ct, rp, err := ps.pre.Complete(e.he, ps.vote)
			if err != nil {
				return nil, err
			}
			selections = append(selections, ballot.CiphertextSelection{
				SelectionID:   ps.selection.SelectionID,
				SequenceOrder: ps.selection.SequenceOrder,
				Ciphertext:    ct,
				Proof:         rp,
				Nonce:         ps.pre.Nonce(),
			})
		}
		if sum > mc.VotesAllowed {
			return nil, precondition(p.ballotID, "contest %s has %d votes, limit is %d", mc.ContestID, sum, mc.VotesAllowed)
		}
		total, rp, err := pc.limit.Complete(e.he, sum)
		if err != nil {
			return nil, xerrors.Errorf("contest %s: %v", mc.ContestID, err)
		}
		data, err := ballot.NewContestData(sum, mc.VotesAllowed, pc.writeIns).Encode()
		if err != nil {
			return nil, err
		}
		hc, err := pc.data.Encrypt(e.he, mc.ContestID, data)
		if err != nil {
			return nil, err
		}
		cb.Contests = append(cb.Contests, *e.assembleContest(mc, selections, total, rp, hc))
	}
	e.confirm(cb)
	return cb, nil
}
