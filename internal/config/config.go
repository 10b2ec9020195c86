// Package config loads the aa command's settings from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the CLI settings. Flags override whatever is loaded here.
type Config struct {
	BaseURL       string        `yaml:"base_url"`
	SampleRate    float64       `yaml:"sample_rate"`
	BlockSize     int           `yaml:"block_size"`
	FetchAttempts int           `yaml:"fetch_attempts"`
	FetchTimeout  time.Duration `yaml:"fetch_timeout"`
}

func Default() Config {
	return Config{
		SampleRate:    48000,
		BlockSize:     256,
		FetchAttempts: 1,
		FetchTimeout:  30 * time.Second,
	}
}

// Path returns the default location, $XDG_CONFIG_HOME/aa/config.yaml or
// the platform equivalent.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "aa", "config.yaml"), nil
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	return Read(f)
}

// Read decodes YAML from r over the defaults. Unknown keys are rejected.
func Read(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("sample_rate must be positive, got %v", c.SampleRate)
	case c.BlockSize <= 0:
		return fmt.Errorf("block_size must be positive, got %d", c.BlockSize)
	case c.FetchAttempts < 1:
		return fmt.Errorf("fetch_attempts must be at least 1, got %d", c.FetchAttempts)
	case c.FetchTimeout < 0:
		return fmt.Errorf("fetch_timeout must not be negative, got %v", c.FetchTimeout)
	}
	return nil
}
