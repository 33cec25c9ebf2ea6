package encrypt

import (
	"context"
	"errors"
	"github.com/rs/zerolog/log"
	"github.com/takakv/egcore/ballot"
	"github.com/takakv/egcore/group"
	"github.com/takakv/egcore/hash"
	"github.com/takakv/egcore/pipeline"
	"time"
)

// BallotSink receives submitted ballots.
type BallotSink interface {
	WriteEncryptedBallot(*ballot.EncryptedBallot) error
}

// InvalidSink receives ballots that failed the manifest preconditions,
// with PlaintextBallot.Invalid set to the reason.
type InvalidSink interface {
	WriteInvalidBallot(*ballot.PlaintextBallot) error
}

// BatchConfig tunes Batch.
type BatchConfig struct {
	pipeline.Config
	CodeSeed hash.UInt256
	// MasterNonce switches to EncryptFixed. Test fixtures only.
	MasterNonce *group.ElementModQ
	// Spoil selects the ballots submitted as SPOILED; the others are CAST.
	Spoil func(ballotID string) bool
}

// BatchResult counts what happened to the ballots of a batch.
type BatchResult struct {
	Cast    int
	Spoiled int
	Invalid int
	Took    time.Duration
}

type outcome struct {
	plaintext *ballot.PlaintextBallot
	encrypted *ballot.EncryptedBallot
}

// Batch encrypts and submits every ballot from source with cfg.Workers
// parallel encryptors. Ballots failing preconditions go to invalid (when
// not nil) and do not stop the batch; sink failures do.
func (e *Encryptor) Batch(ctx context.Context, cfg BatchConfig, source pipeline.Producer[*ballot.PlaintextBallot], sink BallotSink, invalid InvalidSink) (BatchResult, error) {
	var res BatchResult
	start := time.Now()

	work := func(_ context.Context, id int, pb *ballot.PlaintextBallot) (outcome, error) {
		var cb *ballot.CiphertextBallot
		var err error
		if cfg.MasterNonce != nil {
			cb, err = e.EncryptFixed(pb, cfg.CodeSeed, cfg.MasterNonce)
		} else {
			cb, err = e.Encrypt(pb, cfg.CodeSeed)
		}
		var pe *PreconditionError
		if errors.As(err, &pe) {
			return outcome{plaintext: pb}, err
		}
		if err != nil {
			return outcome{}, pipeline.Fatal("encrypt", err)
		}

		state := ballot.Cast
		if cfg.Spoil != nil && cfg.Spoil(pb.BallotID) {
			state = ballot.Spoiled
		}
		eb, err := cb.Submit(state)
		if err != nil {
			return outcome{}, pipeline.Fatal("submit", err)
		}
		log.Debug().Int("worker", id).Str("ballot", pb.BallotID).Msg("encrypted ballot")
		return outcome{plaintext: pb, encrypted: eb}, nil
	}

	write := func(_ context.Context, o outcome, err error) error {
		if err != nil {
			log.Warn().Err(err).Msg("invalid ballot")
			res.Invalid++
			if invalid == nil {
				return nil
			}
			diverted := *o.plaintext
			diverted.Invalid = err.Error()
			return invalid.WriteInvalidBallot(&diverted)
		}
		if err := sink.WriteEncryptedBallot(o.encrypted); err != nil {
			return err
		}
		if o.encrypted.State == ballot.Spoiled {
			res.Spoiled++
		} else {
			res.Cast++
		}
		log.Debug().Str("ballot", o.encrypted.BallotID).Stringer("state", o.encrypted.State).Msg("sink wrote ballot")
		return nil
	}

	err := pipeline.Run(ctx, cfg.Config, source, work, write)
	res.Took = time.Since(start)
	if err != nil {
		return res, err
	}
	n := res.Cast + res.Spoiled
	ev := log.Info().Int("workers", cfg.Workers).Int("cast", res.Cast).Int("spoiled", res.Spoiled).
		Int("invalid", res.Invalid).Dur("took", res.Took)
	if n > 0 {
		ev = ev.Dur("per_ballot", res.Took/time.Duration(n))
	}
	ev.Msg("batch encryption done")
	return res, nil
}
