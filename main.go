package main

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/takakv/egcore/ballot"
	"github.com/takakv/egcore/elgamal"
	"github.com/takakv/egcore/group"
	"github.com/takakv/egcore/publish"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"
	"os"
	"time"
)

// Flags keep per-run state, so every app gets fresh ones.
func recordFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "record",
		Aliases:  []string{"r"},
		Usage:    "election record directory",
		Required: true,
	}
}

func workersFlag() cli.Flag {
	return &cli.IntFlag{
		Name:  "workers",
		Usage: "number of parallel workers (overrides the config file)",
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "egcore",
		Usage: "encrypt, tally and verify ballots of a verifiable election",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "TOML configuration file"},
			&cli.StringFlag{Name: "log-level", Usage: "trace, debug, info, warn or error"},
		},
		Before: setupLogging,
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "create a key pair and the election config for a manifest",
				Flags:  []cli.Flag{recordFlag(), &cli.StringFlag{Name: "manifest", Usage: "manifest JSON (default: a sample manifest)"}},
				Action: initElection,
			},
			{
				Name:   "generate",
				Usage:  "generate random plaintext ballots",
				Flags:  []cli.Flag{recordFlag(), &cli.IntFlag{Name: "count", Value: 10, Usage: "number of ballots"}},
				Action: generateBallots,
			},
			{
				Name:  "encrypt",
				Usage: "encrypt and submit the plaintext ballots",
				Flags: []cli.Flag{
					recordFlag(),
					workersFlag(),
					&cli.BoolFlag{Name: "fixed", Usage: "fixed nonces, reproducible output (testing only)"},
					&cli.StringFlag{Name: "sink", Usage: "json or bolt"},
					&cli.StringFlag{Name: "invalid", Usage: "directory for invalid ballots"},
					&cli.IntFlag{Name: "spoil-every", Usage: "spoil every n-th ballot"},
				},
				Action: encryptBallots,
			},
			{
				Name:   "tally",
				Usage:  "accumulate the cast ballots and decrypt the tally and spoiled ballots",
				Flags:  []cli.Flag{recordFlag()},
				Action: tallyBallots,
			},
			{
				Name:   "verify",
				Usage:  "verify the encrypted ballots, the tally and the spoiled ballots",
				Flags:  []cli.Flag{recordFlag(), workersFlag()},
				Action: verifyRecord,
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("egcore failed")
	}
}

// loadConfig reads the config file given on the command line and applies
// the flags set on the command.
func loadConfig(c *cli.Context) (publish.Config, error) {
	cfg, err := publish.LoadConfig(c.String("config"))
	if err != nil {
		return cfg, err
	}
	if c.IsSet("workers") {
		cfg.Workers = c.Int("workers")
	}
	if c.IsSet("fixed") {
		cfg.FixedNonces = c.Bool("fixed")
	}
	if c.IsSet("sink") {
		cfg.Sink = c.String("sink")
	}
	if c.IsSet("invalid") {
		cfg.InvalidDir = c.String("invalid")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	return cfg, cfg.Validate()
}

func setupLogging(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return xerrors.Errorf("log level: %v", err)
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	return nil
}

func initElection(c *cli.Context) error {
	p, err := publish.NewPublisher(c.String("record"))
	if err != nil {
		return err
	}
	manifest := ballot.SampleManifest()
	if path := c.String("manifest"); path != "" {
		manifest, err = readManifest(path)
		if err != nil {
			return err
		}
	}

	kp, err := elgamal.GenerateKeyPair(group.Production())
	if err != nil {
		return err
	}
	cfg, err := ballot.NewElectionConfig(manifest, kp.PublicKey)
	if err != nil {
		return err
	}
	if err := p.WriteElectionConfig(cfg); err != nil {
		return err
	}
	if err := p.WriteKeyPair(kp); err != nil {
		return err
	}
	log.Info().Str("record", c.String("record")).Stringer("he", cfg.ExtendedBaseHash).
		Int("contests", len(manifest.Contests)).Msg("election initialized")
	return nil
}
