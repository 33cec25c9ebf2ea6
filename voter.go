package main

import (
	"crypto/rand"
	"encoding/json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/takakv/egcore/ballot"
	"github.com/takakv/egcore/encrypt"
	"github.com/takakv/egcore/hash"
	"github.com/takakv/egcore/pipeline"
	"github.com/takakv/egcore/publish"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"
	"math/big"
	"os"
)

func readManifest(path string) (*ballot.Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m ballot.Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, xerrors.Errorf("manifest %s: %v", path, err)
	}
	return &m, m.Validate()
}

func randInt(n int) int {
	r, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic(err)
	}
	return int(r.Int64())
}

// randomBallot marks between 0 and VotesAllowed distinct selections of
// every contest.
func randomBallot(m *ballot.Manifest) *ballot.PlaintextBallot {
	pb := &ballot.PlaintextBallot{
		BallotID:      uuid.NewString(),
		BallotStyleID: m.ElectionScopeID,
	}
	for _, c := range m.Contests {
		marks := randInt(c.VotesAllowed + 1)
		order := make([]int, len(c.Selections))
		for i := range order {
			order[i] = i
		}
		// Fisher-Yates
		for i := len(order) - 1; i > 0; i-- {
			j := randInt(i + 1)
			order[i], order[j] = order[j], order[i]
		}
		pc := ballot.PlaintextContest{ContestID: c.ContestID}
		for i, k := range order {
			vote := 0
			if i < marks {
				vote = 1
			}
			pc.Selections = append(pc.Selections, ballot.PlaintextSelection{
				SelectionID: c.Selections[k].SelectionID,
				Vote:        vote,
			})
		}
		pb.Contests = append(pb.Contests, pc)
	}
	return pb
}

func generateBallots(c *cli.Context) error {
	p, err := publish.NewPublisher(c.String("record"))
	if err != nil {
		return err
	}
	cfg, err := p.ReadElectionConfig()
	if err != nil {
		return err
	}
	n := c.Int("count")
	if n < 0 {
		return xerrors.Errorf("count must not be negative, got %d", n)
	}
	bs := make([]*ballot.PlaintextBallot, n)
	for i := range bs {
		bs[i] = randomBallot(cfg.Manifest)
	}
	if err := p.WritePlaintextBallots(bs); err != nil {
		return err
	}
	log.Info().Int("ballots", n).Msg("generated plaintext ballots")
	return nil
}

// deviceCodeSeed binds confirmation codes to the encrypting device.
func deviceCodeSeed(he hash.UInt256) hash.UInt256 {
	host, _ := os.Hostname()
	return hash.Function(he.Bytes(), "device", host)
}

func encryptBallots(c *cli.Context) error {
	conf, err := loadConfig(c)
	if err != nil {
		return err
	}
	p, err := publish.NewPublisher(c.String("record"))
	if err != nil {
		return err
	}
	cfg, err := p.ReadElectionConfig()
	if err != nil {
		return err
	}
	plaintexts, err := p.ReadPlaintextBallots()
	if err != nil {
		return err
	}

	bc := encrypt.BatchConfig{
		Config:   conf.Config,
		CodeSeed: deviceCodeSeed(cfg.ExtendedBaseHash),
	}
	if conf.FixedNonces {
		ctx := cfg.JointPublicKey.Context()
		bc.CodeSeed = hash.Function(cfg.ExtendedBaseHash.Bytes(), "device")
		bc.MasterNonce = hash.Function(cfg.ExtendedBaseHash.Bytes(), "master-nonce").ToElementModQ(ctx)
		log.Warn().Msg("encrypting with fixed nonces")
	}
	if every := c.Int("spoil-every"); every > 0 {
		spoiled := make(map[string]bool)
		for i, pb := range plaintexts {
			if (i+1)%every == 0 {
				spoiled[pb.BallotID] = true
			}
		}
		bc.Spoil = func(id string) bool { return spoiled[id] }
	}

	sink, err := p.EncryptedBallotSink(conf.Sink)
	if err != nil {
		return err
	}
	res, err := encrypt.NewEncryptor(cfg).Batch(c.Context, bc, pipeline.Slice(plaintexts),
		sink, p.InvalidBallotSink(conf.InvalidDir))
	if cerr := sink.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	log.Info().Int("cast", res.Cast).Int("spoiled", res.Spoiled).Int("invalid", res.Invalid).
		Str("sink", conf.Sink).Msg("ballots submitted")
	return nil
}
