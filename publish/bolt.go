package publish

import (
	"encoding/json"
	"github.com/takakv/egcore/ballot"
	"go.etcd.io/bbolt"
	"golang.org/x/xerrors"
)

var stateBuckets = map[ballot.BallotState][]byte{
	ballot.Cast:    []byte("cast"),
	ballot.Spoiled: []byte("spoiled"),
}

// BoltBallotSink stores submitted ballots in a bbolt database with one
// bucket per ballot state, keyed by ballot id.
type BoltBallotSink struct {
	db *bbolt.DB
}

// OpenBoltBallotSink opens or creates the database at path.
func OpenBoltBallotSink(path string) (*BoltBallotSink, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, xerrors.Errorf("open ballot db: %v", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range stateBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, xerrors.Errorf("create ballot buckets: %v", err)
	}
	return &BoltBallotSink{db: db}, nil
}

// WriteEncryptedBallot stores b; a ballot id can only be written once.
func (s *BoltBallotSink) WriteEncryptedBallot(b *ballot.EncryptedBallot) error {
	name, ok := stateBuckets[b.State]
	if !ok {
		return xerrors.Errorf("ballot %s has no state", b.BallotID)
	}
	value, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, other := range stateBuckets {
			if tx.Bucket(other).Get([]byte(b.BallotID)) != nil {
				return xerrors.Errorf("ballot %s already submitted", b.BallotID)
			}
		}
		return tx.Bucket(name).Put([]byte(b.BallotID), value)
	})
}

func (s *BoltBallotSink) Close() error {
	return s.db.Close()
}

// ReadBoltBallots returns every ballot of the database, cast ballots
// first, each bucket in id order.
func ReadBoltBallots(path string) ([]*ballot.EncryptedBallot, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{ReadOnly: true})
	if err != nil {
		return nil, xerrors.Errorf("open ballot db: %v", err)
	}
	defer db.Close()

	var out []*ballot.EncryptedBallot
	err = db.View(func(tx *bbolt.Tx) error {
		for _, state := range []ballot.BallotState{ballot.Cast, ballot.Spoiled} {
			bucket := tx.Bucket(stateBuckets[state])
			if bucket == nil {
				continue
			}
			err := bucket.ForEach(func(k, v []byte) error {
				var b ballot.EncryptedBallot
				if err := json.Unmarshal(v, &b); err != nil {
					return xerrors.Errorf("decode ballot %s: %v", k, err)
				}
				out = append(out, &b)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}
