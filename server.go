package main

import (
	"context"
	"github.com/rs/zerolog/log"
	"github.com/takakv/egcore/ballot"
	"github.com/takakv/egcore/decrypt"
	"github.com/takakv/egcore/pipeline"
	"github.com/takakv/egcore/publish"
	"github.com/takakv/egcore/verifier"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"
	"sort"
	"time"
)

const tallyID = "tally"

func tallyBallots(c *cli.Context) error {
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
	kp, err := p.ReadKeyPair()
	if err != nil {
		return err
	}
	ballots, err := p.ReadEncryptedBallots()
	if err != nil {
		return err
	}

	start := time.Now()
	et, err := ballot.AccumulateTally(cfg.JointPublicKey.Context(), tallyID, cfg.Manifest, ballots)
	if err != nil {
		return err
	}
	if err := p.WriteEncryptedTally(et); err != nil {
		return err
	}
	dec, err := decrypt.NewDecryptor(cfg, kp, conf.MaxTally)
	if err != nil {
		return err
	}
	dt, err := dec.DecryptTally(et)
	if err != nil {
		return err
	}
	if err := p.WriteDecryptedTally(dt); err != nil {
		return err
	}
	log.Info().Int("cast", len(et.CastBallotIDs)).Dur("took", time.Since(start)).Msg("tally decrypted")
	tallies := dt.Tallies()
	keys := make([]string, 0, len(tallies))
	for key := range tallies {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		log.Info().Str("selection", key).Int("tally", tallies[key]).Msg("result")
	}

	var spoiled []*ballot.EncryptedBallot
	for _, b := range ballots {
		if b.State == ballot.Spoiled {
			spoiled = append(spoiled, b)
		}
	}
	var decrypted []*ballot.DecryptedTallyOrBallot
	err = pipeline.Run(c.Context, conf.Config, pipeline.Slice(spoiled),
		func(_ context.Context, _ int, b *ballot.EncryptedBallot) (*ballot.DecryptedTallyOrBallot, error) {
			d, err := dec.DecryptBallot(b)
			if err != nil {
				return nil, pipeline.Fatal("decrypt", err)
			}
			return d, nil
		},
		func(_ context.Context, d *ballot.DecryptedTallyOrBallot, _ error) error {
			decrypted = append(decrypted, d)
			return nil
		})
	if err != nil {
		return err
	}
	if err := p.WriteSpoiledBallotTallies(decrypted); err != nil {
		return err
	}
	log.Info().Int("spoiled", len(decrypted)).Msg("spoiled ballots decrypted")
	return nil
}

func verifyRecord(c *cli.Context) error {
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
	ballots, err := p.ReadEncryptedBallots()
	if err != nil {
		return err
	}
	dt, err := p.ReadDecryptedTally()
	if err != nil {
		return err
	}
	spoiled, err := p.ReadSpoiledBallotTallies()
	if err != nil {
		return err
	}

	stats := verifier.NewStats()
	bv := verifier.NewBallotVerifier(cfg)
	br, err := bv.VerifyBallots(c.Context, ballots, conf.Workers, stats)
	if err != nil {
		return err
	}
	dv := verifier.NewDecryptionVerifier(cfg)
	tr := dv.VerifyTally(dt, stats)
	tr.Attach(dv.VerifyAggregation(ballots, dt)...)
	sr, err := dv.VerifySpoiledBallotTallies(c.Context, spoiled, conf.Workers, stats)
	if err != nil {
		return err
	}
	sr.Attach(dv.VerifySpoiledCiphertexts(ballots, spoiled)...)

	log.Info().Msg("verification stats:\n" + stats.Summary())
	failed := 0
	for name, r := range map[string]*verifier.Report{"ballots": br, "tally": tr, "spoiled": sr} {
		for _, f := range r.Findings() {
			log.Error().Str("check", f.Check).Str("where", f.Where).Msg(f.Message)
		}
		failed += len(r.Findings())
		log.Info().Str("report", name).Int("items", r.Items()).Bool("ok", r.OK()).Msg("verified")
	}
	if failed > 0 {
		return xerrors.Errorf("verification failed with %d findings", failed)
	}
	log.Info().Int("ballots", len(ballots)).Int("spoiled", len(spoiled)).Msg("election record verified")
	return nil
}
