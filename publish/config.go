package publish

import (
	"github.com/BurntSushi/toml"
	"github.com/takakv/egcore/pipeline"
	"golang.org/x/xerrors"
	"os"
)

// Sink kinds.
const (
	SinkJSON = "json"
	SinkBolt = "bolt"
)

// Config holds the tunables of the command line tool.
type Config struct {
	pipeline.Config
	// FixedNonces makes encryption reproducible. Test fixtures only.
	FixedNonces bool   `toml:"fixed_nonces"`
	Sink        string `toml:"sink"`
	// InvalidDir receives ballots that fail the manifest preconditions;
	// empty drops them.
	InvalidDir string `toml:"invalid_dir"`
	LogLevel   string `toml:"log_level"`
	MaxTally   int    `toml:"max_tally"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Config:   pipeline.Config{Workers: 11},
		Sink:     SinkJSON,
		LogLevel: "info",
	}
}

// LoadConfig reads a TOML file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, xerrors.Errorf("read config %s: %v", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects values no run can use.
func (c Config) Validate() error {
	if c.Workers < 1 {
		return xerrors.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.Sink != SinkJSON && c.Sink != SinkBolt {
		return xerrors.Errorf("unknown sink %q", c.Sink)
	}
	if c.MaxTally < 0 {
		return xerrors.Errorf("max_tally must not be negative, got %d", c.MaxTally)
	}
	return nil
}

// WriteConfig stores c as TOML.
func WriteConfig(path string, c Config) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		f.Close()
		return xerrors.Errorf("write config %s: %v", path, err)
	}
	return f.Close()
}
