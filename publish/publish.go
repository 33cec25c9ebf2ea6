// Package publish reads and writes the election record: a directory of
// JSON files, with submitted ballots optionally kept in a bbolt database.
package publish

import (
	"context"
	"encoding/json"
	"github.com/takakv/egcore/ballot"
	"github.com/takakv/egcore/elgamal"
	"github.com/takakv/egcore/pipeline"
	"golang.org/x/xerrors"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Record layout below the publisher directory.
const (
	ElectionConfigFile    = "election_config.json"
	SecretKeyFile         = "secret_key.json"
	EncryptedTallyFile    = "encrypted_tally.json"
	DecryptedTallyFile    = "decrypted_tally.json"
	BallotDBFile          = "encrypted_ballots.db"
	PlaintextBallotDir    = "plaintext_ballots"
	EncryptedBallotDir    = "encrypted_ballots"
	InvalidBallotDir      = "invalid_ballots"
	SpoiledBallotTallyDir = "spoiled_ballot_tallies"
)

// Publisher reads and writes one election record directory.
type Publisher struct {
	dir string
}

// NewPublisher creates dir if it does not exist.
func NewPublisher(dir string) (*Publisher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, xerrors.Errorf("create record dir: %v", err)
	}
	return &Publisher{dir: dir}, nil
}

func (p *Publisher) path(elem ...string) string {
	return filepath.Join(append([]string{p.dir}, elem...)...)
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return xerrors.Errorf("encode %s: %v", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return xerrors.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

// fileName turns a record id into a file name, refusing ids that would
// escape the directory.
func fileName(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", xerrors.Errorf("invalid record id %q", id)
	}
	return id + ".json", nil
}

func writeItem(dir, id string, v any) error {
	name, err := fileName(id)
	if err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, name), v)
}

// jsonFiles lists the .json files of dir in name order. A missing dir is
// empty.
func jsonFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func readAll[T any](dir string) ([]*T, error) {
	files, err := jsonFiles(dir)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(files))
	for _, f := range files {
		v := new(T)
		if err := readJSON(f, v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (p *Publisher) WriteElectionConfig(cfg *ballot.ElectionConfig) error {
	return writeJSON(p.path(ElectionConfigFile), cfg)
}

// ReadElectionConfig reads the config and recomputes its hash chain.
func (p *Publisher) ReadElectionConfig() (*ballot.ElectionConfig, error) {
	var cfg ballot.ElectionConfig
	if err := readJSON(p.path(ElectionConfigFile), &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// WriteKeyPair stores the election secret. It exists for the single-key
// test setup; a guardian ceremony never writes a joint secret.
func (p *Publisher) WriteKeyPair(kp *elgamal.KeyPair) error {
	return writeJSON(p.path(SecretKeyFile), kp)
}

func (p *Publisher) ReadKeyPair() (*elgamal.KeyPair, error) {
	var kp elgamal.KeyPair
	if err := readJSON(p.path(SecretKeyFile), &kp); err != nil {
		return nil, err
	}
	if kp.PublicKey == nil || kp.SecretKey == nil {
		return nil, xerrors.New("incomplete key pair")
	}
	return elgamal.NewKeyPair(kp.SecretKey.Context(), kp.SecretKey)
}

func (p *Publisher) WritePlaintextBallots(bs []*ballot.PlaintextBallot) error {
	for _, b := range bs {
		if err := writeItem(p.path(PlaintextBallotDir), b.BallotID, b); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) ReadPlaintextBallots() ([]*ballot.PlaintextBallot, error) {
	return readAll[ballot.PlaintextBallot](p.path(PlaintextBallotDir))
}

// PlaintextBallots streams the plaintext ballots one file at a time. A
// file that cannot be read stops the pipeline.
func (p *Publisher) PlaintextBallots() pipeline.Producer[*ballot.PlaintextBallot] {
	return func(ctx context.Context, out chan<- *ballot.PlaintextBallot) error {
		files, err := jsonFiles(p.path(PlaintextBallotDir))
		if err != nil {
			return err
		}
		for _, f := range files {
			var b ballot.PlaintextBallot
			if err := readJSON(f, &b); err != nil {
				return err
			}
			select {
			case out <- &b:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	}
}

func (p *Publisher) ReadInvalidBallots() ([]*ballot.PlaintextBallot, error) {
	return readAll[ballot.PlaintextBallot](p.path(InvalidBallotDir))
}

// ReadEncryptedBallots returns the submitted ballots of the JSON directory
// and of the bbolt database, whichever exist.
func (p *Publisher) ReadEncryptedBallots() ([]*ballot.EncryptedBallot, error) {
	out, err := readAll[ballot.EncryptedBallot](p.path(EncryptedBallotDir))
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(p.path(BallotDBFile)); err == nil {
		more, err := ReadBoltBallots(p.path(BallotDBFile))
		if err != nil {
			return nil, err
		}
		out = append(out, more...)
	}
	return out, nil
}

func (p *Publisher) WriteEncryptedTally(t *ballot.EncryptedTally) error {
	return writeJSON(p.path(EncryptedTallyFile), t)
}

func (p *Publisher) ReadEncryptedTally() (*ballot.EncryptedTally, error) {
	var t ballot.EncryptedTally
	if err := readJSON(p.path(EncryptedTallyFile), &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (p *Publisher) WriteDecryptedTally(t *ballot.DecryptedTallyOrBallot) error {
	return writeJSON(p.path(DecryptedTallyFile), t)
}

func (p *Publisher) ReadDecryptedTally() (*ballot.DecryptedTallyOrBallot, error) {
	var t ballot.DecryptedTallyOrBallot
	if err := readJSON(p.path(DecryptedTallyFile), &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (p *Publisher) WriteSpoiledBallotTallies(ts []*ballot.DecryptedTallyOrBallot) error {
	for _, t := range ts {
		if err := writeItem(p.path(SpoiledBallotTallyDir), t.ID, t); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) ReadSpoiledBallotTallies() ([]*ballot.DecryptedTallyOrBallot, error) {
	return readAll[ballot.DecryptedTallyOrBallot](p.path(SpoiledBallotTallyDir))
}

// BallotSink is where submitted ballots are written during encryption.
type BallotSink interface {
	WriteEncryptedBallot(*ballot.EncryptedBallot) error
	Close() error
}

// EncryptedBallotSink opens the sink of the given kind.
func (p *Publisher) EncryptedBallotSink(kind string) (BallotSink, error) {
	switch kind {
	case SinkJSON, "":
		return &JSONBallotSink{dir: p.path(EncryptedBallotDir)}, nil
	case SinkBolt:
		return OpenBoltBallotSink(p.path(BallotDBFile))
	default:
		return nil, xerrors.Errorf("unknown sink %q", kind)
	}
}

// InvalidBallotSink writes diverted ballots to dir, relative to the record
// unless absolute.
func (p *Publisher) InvalidBallotSink(dir string) *JSONInvalidSink {
	if dir == "" {
		dir = InvalidBallotDir
	}
	if !filepath.IsAbs(dir) {
		dir = p.path(dir)
	}
	return &JSONInvalidSink{dir: dir}
}

// JSONBallotSink writes one file per submitted ballot.
type JSONBallotSink struct {
	dir string
}

func (s *JSONBallotSink) WriteEncryptedBallot(b *ballot.EncryptedBallot) error {
	return writeItem(s.dir, b.BallotID, b)
}

func (s *JSONBallotSink) Close() error {
	return nil
}

// JSONInvalidSink writes one file per invalid plaintext ballot.
type JSONInvalidSink struct {
	dir string
}

func (s *JSONInvalidSink) WriteInvalidBallot(b *ballot.PlaintextBallot) error {
	return writeItem(s.dir, b.BallotID, b)
}
