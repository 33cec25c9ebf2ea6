// Package encrypt turns plaintext ballots into ciphertext ballots with a
// range proof on every selection and contest, encrypted contest data and a
// confirmation code.
package encrypt

import (
	"fmt"
	"github.com/takakv/egcore/ballot"
	"github.com/takakv/egcore/elgamal"
	"github.com/takakv/egcore/group"
	"github.com/takakv/egcore/hash"
	"github.com/takakv/egcore/proof"
	"golang.org/x/xerrors"
	"time"
)

// PreconditionError reports a ballot that does not match the manifest. It
// is fatal to that ballot only.
type PreconditionError struct {
	BallotID string
	Reason   string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("ballot %s: %s", e.BallotID, e.Reason)
}

func precondition(ballotID, format string, args ...any) error {
	return &PreconditionError{BallotID: ballotID, Reason: fmt.Sprintf(format, args...)}
}

// Encryptor encrypts ballots of one election.
type Encryptor struct {
	ctx      *group.Context
	manifest *ballot.Manifest
	pk       *elgamal.PublicKey
	he       hash.UInt256
}

// NewEncryptor returns an encryptor for the election config.
func NewEncryptor(cfg *ballot.ElectionConfig) *Encryptor {
	return &Encryptor{
		ctx:      cfg.JointPublicKey.Context(),
		manifest: cfg.Manifest,
		pk:       cfg.JointPublicKey,
		he:       cfg.ExtendedBaseHash,
	}
}

// Encrypt encrypts pb with fresh random nonces.
func (e *Encryptor) Encrypt(pb *ballot.PlaintextBallot, codeSeed hash.UInt256) (*ballot.CiphertextBallot, error) {
	return e.encrypt(pb, codeSeed, nil)
}

// EncryptFixed encrypts pb with every nonce and all proof randomness
// derived from masterNonce, the ballot id and the position of the
// selection in the manifest. The output is reproducible, which is only
// useful for test fixtures: it must never be used for real ballots.
func (e *Encryptor) EncryptFixed(pb *ballot.PlaintextBallot, codeSeed hash.UInt256, masterNonce *group.ElementModQ) (*ballot.CiphertextBallot, error) {
	if masterNonce == nil || masterNonce.IsZero() {
		return nil, xerrors.New("fixed encryption needs a non-zero master nonce")
	}
	return e.encrypt(pb, codeSeed, masterNonce)
}

// validate returns the votes of pb keyed by selection, and the write-ins
// per contest.
func (e *Encryptor) validate(pb *ballot.PlaintextBallot) (map[string]int, map[string][]string, error) {
	votes := make(map[string]int)
	writeIns := make(map[string][]string)
	contests := make(map[string]bool)
	for _, pc := range pb.Contests {
		mc, ok := e.manifest.Contest(pc.ContestID)
		if !ok {
			return nil, nil, precondition(pb.BallotID, "contest %s not in manifest", pc.ContestID)
		}
		if contests[pc.ContestID] {
			return nil, nil, precondition(pb.BallotID, "contest %s appears twice", pc.ContestID)
		}
		contests[pc.ContestID] = true

		sum := 0
		for _, ps := range pc.Selections {
			if _, ok := mc.Selection(ps.SelectionID); !ok {
				return nil, nil, precondition(pb.BallotID, "selection %s not in contest %s", ps.SelectionID, pc.ContestID)
			}
			key := ballot.SelectionKey(pc.ContestID, ps.SelectionID)
			if _, dup := votes[key]; dup {
				return nil, nil, precondition(pb.BallotID, "selection %s appears twice", key)
			}
			if ps.Vote != 0 && ps.Vote != 1 {
				return nil, nil, precondition(pb.BallotID, "selection %s has vote %d", key, ps.Vote)
			}
			votes[key] = ps.Vote
			sum += ps.Vote
		}
		if sum > mc.VotesAllowed {
			return nil, nil, precondition(pb.BallotID, "contest %s has %d votes, limit is %d", pc.ContestID, sum, mc.VotesAllowed)
		}
		writeIns[pc.ContestID] = pc.WriteIns
	}
	return votes, writeIns, nil
}

func (e *Encryptor) encrypt(pb *ballot.PlaintextBallot, codeSeed hash.UInt256, master *group.ElementModQ) (*ballot.CiphertextBallot, error) {
	votes, writeIns, err := e.validate(pb)
	if err != nil {
		return nil, err
	}

	cb := &ballot.CiphertextBallot{
		BallotID:      pb.BallotID,
		BallotStyleID: pb.BallotStyleID,
		CodeSeed:      codeSeed,
	}
	if master == nil {
		cb.Timestamp = time.Now().Unix()
	}
	for i := range e.manifest.Contests {
		mc := &e.manifest.Contests[i]
		selections := make([]ballot.CiphertextSelection, 0, len(mc.Selections))
		for _, ms := range mc.Selections {
			vote := votes[ballot.SelectionKey(mc.ContestID, ms.SelectionID)]
			nonce, seed, err := e.selectionNonce(master, pb.BallotID, mc, &ms)
			if err != nil {
				return nil, err
			}
			ct, err := elgamal.Encrypt(e.pk, vote, nonce)
			if err != nil {
				return nil, err
			}
			rp, err := proof.ProveRange(e.pk, e.he, ct, nonce, vote, 1, seed)
			if err != nil {
				return nil, err
			}
			selections = append(selections, ballot.CiphertextSelection{
				SelectionID:   ms.SelectionID,
				SequenceOrder: ms.SequenceOrder,
				Ciphertext:    ct,
				Proof:         rp,
				Nonce:         nonce,
			})
		}
		cc, err := e.finishContest(pb.BallotID, mc, selections, votes, writeIns[mc.ContestID], master)
		if err != nil {
			return nil, err
		}
		cb.Contests = append(cb.Contests, *cc)
	}
	e.confirm(cb)
	return cb, nil
}

// selectionNonce returns the encryption nonce of a selection and, in fixed
// mode, the seed of its proof randomness.
func (e *Encryptor) selectionNonce(master *group.ElementModQ, ballotID string, mc *ballot.Contest, ms *ballot.Selection) (*group.ElementModQ, *hash.Nonces, error) {
	if master == nil {
		nonce, err := e.ctx.RandomElementModQ(1)
		return nonce, nil, err
	}
	n := hash.NewNonces(e.ctx, master, ballotID, mc.SequenceOrder, ms.SequenceOrder)
	return n.Get(0), hash.NewNonces(e.ctx, n.Get(1), "range-proof"), nil
}

// finishContest aggregates the selections, proves the contest limit,
// encrypts the contest data and computes the contest hash.
func (e *Encryptor) finishContest(ballotID string, mc *ballot.Contest, selections []ballot.CiphertextSelection, votes map[string]int, writeIns []string, master *group.ElementModQ) (*ballot.CiphertextContest, error) {
	cts := make([]elgamal.Ciphertext, len(selections))
	nonce := e.ctx.ZeroModQ
	sum := 0
	for i, s := range selections {
		cts[i] = s.Ciphertext
		nonce = e.ctx.AddQ(nonce, s.Nonce)
		sum += votes[ballot.SelectionKey(mc.ContestID, s.SelectionID)]
	}
	total, err := elgamal.Sum(cts...)
	if err != nil {
		return nil, xerrors.Errorf("contest %s: %v", mc.ContestID, err)
	}

	seed, dataNonce, err := e.contestNonces(master, ballotID, mc)
	if err != nil {
		return nil, err
	}
	rp, err := proof.ProveRange(e.pk, e.he, total, nonce, sum, mc.VotesAllowed, seed)
	if err != nil {
		return nil, xerrors.Errorf("contest %s: %v", mc.ContestID, err)
	}

	data, err := ballot.NewContestData(sum, mc.VotesAllowed, writeIns).Encode()
	if err != nil {
		return nil, err
	}
	hc, err := elgamal.EncryptHashed(e.pk, e.he, mc.ContestID, data, dataNonce)
	if err != nil {
		return nil, err
	}
	return e.assembleContest(mc, selections, total, rp, hc), nil
}

// contestNonces returns the seed of the contest limit proof (nil unless
// fixed) and the contest data nonce.
func (e *Encryptor) contestNonces(master *group.ElementModQ, ballotID string, mc *ballot.Contest) (*hash.Nonces, *group.ElementModQ, error) {
	if master == nil {
		dataNonce, err := e.ctx.RandomElementModQ(1)
		return nil, dataNonce, err
	}
	n := hash.NewNonces(e.ctx, master, ballotID, mc.SequenceOrder, "contest")
	return hash.NewNonces(e.ctx, n.Get(0), "range-proof"), n.Get(1), nil
}

func (e *Encryptor) assembleContest(mc *ballot.Contest, selections []ballot.CiphertextSelection, total elgamal.Ciphertext, rp *proof.Range, hc *elgamal.HashedCiphertext) *ballot.CiphertextContest {
	cc := &ballot.CiphertextContest{
		ContestID:     mc.ContestID,
		SequenceOrder: mc.SequenceOrder,
		Selections:    selections,
		Ciphertext:    total,
		Proof:         rp,
		ContestData:   hc,
	}
	cc.ContestHash = ballot.ContestHash(e.he, e.pk, cc)
	return cc
}

func (e *Encryptor) confirm(cb *ballot.CiphertextBallot) {
	hashes := make([]hash.UInt256, len(cb.Contests))
	for i, c := range cb.Contests {
		hashes[i] = c.ContestHash
	}
	cb.ConfirmationCode = ballot.ConfirmationCode(e.he, cb.CodeSeed, hashes)
}
