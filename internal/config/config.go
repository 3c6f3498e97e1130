// Package config loads the multitag TOML configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/solidcopy/multitag/internal/model"
)

// Separators sets how multi-valued tags are stored. An unset id3 or vorbis
// separator keeps the format's native layout.
type Separators struct {
	ID3    *string `toml:"id3"`
	Vorbis *string `toml:"vorbis"`
	MP4    string  `toml:"mp4"`
}

type ID3 struct {
	V24        bool `toml:"v24"`
	Latin1Only bool `toml:"latin1_only"`
}

type Batch struct {
	Workers int  `toml:"workers"`
	Verify  bool `toml:"verify"`
}

type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type Config struct {
	Separators Separators `toml:"separators"`
	ID3        ID3        `toml:"id3"`
	Batch      Batch      `toml:"batch"`
	Logging    Logging    `toml:"logging"`
}

func Default() Config {
	return Config{
		Separators: Separators{MP4: model.DefaultSeparator},
		ID3:        ID3{V24: true},
		Batch:      Batch{Workers: 4},
		Logging:    Logging{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	if err := toml.NewDecoder(f).DisallowUnknownFields().Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.Separators.MP4 == "" {
		return errors.New("separators.mp4 must not be empty")
	}
	if c.Separators.ID3 != nil && *c.Separators.ID3 == "" {
		return errors.New("separators.id3 must not be empty when set")
	}
	if c.Separators.Vorbis != nil && *c.Separators.Vorbis == "" {
		return errors.New("separators.vorbis must not be empty when set")
	}
	if c.ID3.Latin1Only && c.ID3.V24 {
		return errors.New("id3.latin1_only requires id3.v24 = false")
	}
	if c.Batch.Workers < 1 {
		return errors.New("batch.workers must be positive")
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

// Options converts the configuration to per-call save options.
func (c *Config) Options() model.Options {
	return model.Options{
		Separators: model.Separators{
			ID3:    c.Separators.ID3,
			Vorbis: c.Separators.Vorbis,
			MP4:    c.Separators.MP4,
		},
		ID3v24:    c.ID3.V24,
		ID3Latin1: c.ID3.Latin1Only,
		Verify:    c.Batch.Verify,
	}
}
