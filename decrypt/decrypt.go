// Package decrypt decrypts tallies and spoiled ballots with a single
// secret key and proves every decryption. It stands in for the threshold
// decryption of a guardian ceremony.
package decrypt

import (
	"github.com/takakv/egcore/ballot"
	"github.com/takakv/egcore/elgamal"
	"github.com/takakv/egcore/hash"
	"github.com/takakv/egcore/proof"
	"golang.org/x/xerrors"
)

// Decryptor holds the secret key of an election.
type Decryptor struct {
	kp   *elgamal.KeyPair
	he   hash.UInt256
	dlog *elgamal.DLog
}

// NewDecryptor checks that kp matches the joint key of cfg. maxTally
// bounds the discrete log search; 0 selects elgamal.DefaultDLogMax.
func NewDecryptor(cfg *ballot.ElectionConfig, kp *elgamal.KeyPair, maxTally int) (*Decryptor, error) {
	if !kp.PublicKey.Key.Equal(cfg.JointPublicKey.Key) {
		return nil, xerrors.New("key pair does not match the joint public key")
	}
	return &Decryptor{
		kp:   kp,
		he:   cfg.ExtendedBaseHash,
		dlog: elgamal.NewDLog(kp.PublicKey.Key, maxTally),
	}, nil
}

func (d *Decryptor) selection(id string, ct elgamal.Ciphertext) (ballot.DecryptedSelection, error) {
	M := ct.DecryptWithSecret(d.kp.SecretKey)
	t, err := d.dlog.Of(M)
	if err != nil {
		return ballot.DecryptedSelection{}, xerrors.Errorf("selection %s: %v", id, err)
	}
	p, err := proof.ProveDecryption(d.kp, d.he, ct, M)
	if err != nil {
		return ballot.DecryptedSelection{}, err
	}
	return ballot.DecryptedSelection{
		SelectionID: id,
		Tally:       t,
		Value:       M,
		Ciphertext:  ct,
		Proof:       p,
	}, nil
}

// DecryptTally decrypts every selection of the tally.
func (d *Decryptor) DecryptTally(t *ballot.EncryptedTally) (*ballot.DecryptedTallyOrBallot, error) {
	out := &ballot.DecryptedTallyOrBallot{ID: t.TallyID}
	for _, c := range t.Contests {
		dc := ballot.DecryptedContest{ContestID: c.ContestID}
		for _, s := range c.Selections {
			ds, err := d.selection(s.SelectionID, s.Ciphertext)
			if err != nil {
				return nil, xerrors.Errorf("tally %s contest %s: %w", t.TallyID, c.ContestID, err)
			}
			dc.Selections = append(dc.Selections, ds)
		}
		out.Contests = append(out.Contests, dc)
	}
	return out, nil
}

// DecryptBallot decrypts a spoiled ballot, including its contest data.
func (d *Decryptor) DecryptBallot(b *ballot.EncryptedBallot) (*ballot.DecryptedTallyOrBallot, error) {
	out := &ballot.DecryptedTallyOrBallot{ID: b.BallotID}
	for _, c := range b.Contests {
		dc := ballot.DecryptedContest{ContestID: c.ContestID}
		for _, s := range c.Selections {
			ds, err := d.selection(s.SelectionID, s.Ciphertext)
			if err != nil {
				return nil, xerrors.Errorf("ballot %s contest %s: %w", b.BallotID, c.ContestID, err)
			}
			dc.Selections = append(dc.Selections, ds)
		}
		if c.ContestData != nil {
			data, err := d.contestData(c.ContestID, c.ContestData)
			if err != nil {
				return nil, xerrors.Errorf("ballot %s contest %s: %w", b.BallotID, c.ContestID, err)
			}
			dc.ContestData = data
		}
		out.Contests = append(out.Contests, dc)
	}
	return out, nil
}

func (d *Decryptor) contestData(contestID string, hc *elgamal.HashedCiphertext) (*ballot.DecryptedContestData, error) {
	p, beta, err := proof.ProveContestDataDecryption(d.kp, d.he, hc)
	if err != nil {
		return nil, err
	}
	raw, err := hc.DecryptWithBeta(d.kp.PublicKey, d.he, contestID, beta)
	if err != nil {
		return nil, err
	}
	cd, err := ballot.DecodeContestData(raw)
	if err != nil {
		return nil, err
	}
	return &ballot.DecryptedContestData{
		ContestData:          cd,
		EncryptedContestData: hc,
		Beta:                 beta,
		Proof:                p,
	}, nil
}
