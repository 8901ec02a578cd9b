// Package config holds the node's operator-tunable settings. Everything that
// feeds deterministic tx execution (windows, transcript caps, raise caps) must
// be identical across the network; the genesis file of a real deployment would
// pin them, for v0 localnet we trust operators to share one config.
package config

import (
	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

type Config struct {
	// ABCI server binding.
	ListenAddr string `toml:"listen_addr"`
	Transport  string `toml:"transport"` // "socket" or "grpc"

	// DisputeWindowSecs is how long a dispute stays open for a counter
	// transcript after each (re)submission.
	DisputeWindowSecs int64 `toml:"dispute_window_secs"`

	// RevealWindowSecs is how long a showdown waits for hole cards before it
	// finalizes without a transfer.
	RevealWindowSecs int64 `toml:"reveal_window_secs"`

	// MaxActionsPerLog bounds submitted transcripts. A heads-up hand with
	// capped raises fits comfortably; anything longer is garbage.
	MaxActionsPerLog int `toml:"max_actions_per_log"`

	// MaxRaisesPerStreet is the betting engine's raise cap.
	MaxRaisesPerStreet int `toml:"max_raises_per_street"`
}

func Default() Config {
	return Config{
		ListenAddr:         "tcp://127.0.0.1:26658",
		Transport:          "socket",
		DisputeWindowSecs:  3600,
		RevealWindowSecs:   3600,
		MaxActionsPerLog:   128,
		MaxRaisesPerStreet: 4,
	}
}

// Load reads a TOML file over the defaults. Keys absent from the file keep
// their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "config: decode %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return errors.New("config: listen_addr must be set")
	}
	if c.Transport != "socket" && c.Transport != "grpc" {
		return errors.Errorf("config: unknown transport %q", c.Transport)
	}
	if c.DisputeWindowSecs <= 0 {
		return errors.New("config: dispute_window_secs must be positive")
	}
	if c.RevealWindowSecs <= 0 {
		return errors.New("config: reveal_window_secs must be positive")
	}
	if c.MaxActionsPerLog <= 0 {
		return errors.New("config: max_actions_per_log must be positive")
	}
	if c.MaxRaisesPerStreet <= 0 {
		return errors.New("config: max_raises_per_street must be positive")
	}
	return nil
}
