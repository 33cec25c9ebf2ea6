package main

import (
	"github.com/stretchr/testify/require"
	"github.com/takakv/egcore/ballot"
	"github.com/takakv/egcore/publish"
	"path/filepath"
	"testing"
)

func run(t *testing.T, args ...string) error {
	t.Helper()
	return newApp().Run(append([]string{"egcore", "--log-level", "warn"}, args...))
}

func TestRandomBallotIsValid(t *testing.T) {
	m := ballot.SampleManifest()
	limits := m.ContestLimits()
	for i := 0; i < 20; i++ {
		pb := randomBallot(m)
		require.Len(t, pb.Contests, len(m.Contests))
		for _, c := range pb.Contests {
			votes := 0
			for _, s := range c.Selections {
				require.Contains(t, []int{0, 1}, s.Vote)
				votes += s.Vote
			}
			require.LessOrEqual(t, votes, limits[c.ContestID])
		}
	}
}

func TestElectionRecord(t *testing.T) {
	for _, sink := range []string{publish.SinkJSON, publish.SinkBolt} {
		t.Run(sink, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, run(t, "init", "--record", dir))
			require.NoError(t, run(t, "generate", "--record", dir, "--count", "4"))

			p, err := publish.NewPublisher(dir)
			require.NoError(t, err)
			overvote := &ballot.PlaintextBallot{
				BallotID: "overvote",
				Contests: []ballot.PlaintextContest{{
					ContestID: "contest-a",
					Selections: []ballot.PlaintextSelection{
						{SelectionID: "a1", Vote: 1},
						{SelectionID: "a2", Vote: 1},
					},
				}},
			}
			require.NoError(t, p.WritePlaintextBallots([]*ballot.PlaintextBallot{overvote}))

			require.NoError(t, run(t, "encrypt", "--record", dir, "--workers", "3",
				"--sink", sink, "--spoil-every", "2"))

			invalid, err := p.ReadInvalidBallots()
			require.NoError(t, err)
			require.Len(t, invalid, 1)
			require.Equal(t, "overvote", invalid[0].BallotID)
			require.NotEmpty(t, invalid[0].Invalid)

			ballots, err := p.ReadEncryptedBallots()
			require.NoError(t, err)
			require.Len(t, ballots, 4)

			require.NoError(t, run(t, "tally", "--record", dir))
			require.NoError(t, run(t, "verify", "--record", dir, "--workers", "2"))

			spoiled, err := p.ReadSpoiledBallotTallies()
			require.NoError(t, err)
			require.NotEmpty(t, spoiled)

			dt, err := p.ReadDecryptedTally()
			require.NoError(t, err)
			dt.Contests[0].Selections[0].Tally++
			require.NoError(t, p.WriteDecryptedTally(dt))
			require.Error(t, run(t, "verify", "--record", dir))
		})
	}
}

func TestFixedNoncesReproducible(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, run(t, "init", "--record", dir))
	require.NoError(t, run(t, "generate", "--record", dir, "--count", "2"))
	p, err := publish.NewPublisher(dir)
	require.NoError(t, err)

	require.NoError(t, run(t, "encrypt", "--record", dir, "--fixed"))
	first, err := p.ReadEncryptedBallots()
	require.NoError(t, err)
	require.NoError(t, run(t, "encrypt", "--record", dir, "--fixed", "--workers", "1"))
	second, err := p.ReadEncryptedBallots()
	require.NoError(t, err)

	require.Len(t, second, len(first))
	byID := make(map[string]*ballot.EncryptedBallot)
	for _, b := range first {
		byID[b.BallotID] = b
	}
	for _, b := range second {
		require.Equal(t, byID[b.BallotID].ConfirmationCode, b.ConfirmationCode)
	}
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "egcore.toml")
	cfg := publish.DefaultConfig()
	cfg.Sink = "carrier-pigeon"
	require.NoError(t, publish.WriteConfig(path, cfg))
	require.Error(t, run(t, "--config", path, "init", "--record", dir))

	cfg.Sink = publish.SinkBolt
	cfg.Workers = 2
	require.NoError(t, publish.WriteConfig(path, cfg))
	require.NoError(t, run(t, "--config", path, "init", "--record", dir))
}
