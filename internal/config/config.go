// Package config holds the settings of a ghcat run and loads the optional
// TOML profile they can come from.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/hayeah/ghcat/internal/selection"
)

// DefaultPath is the profile read from the working directory when --config is
// not given.
const DefaultPath = ".ghcat.toml"

// Token estimators understood by the metrics layer.
const (
	EstimatorSimple   = "simple"
	EstimatorTiktoken = "tiktoken"
)

// Config is the merged view of flags, environment, profile and defaults.
// Zero values mean "not set" so that layers can be merged.
type Config struct {
	APIURL           string   `toml:"api_url"`
	Mode             string   `toml:"mode"`
	Blacklist        []string `toml:"blacklist"`
	Whitelist        []string `toml:"whitelist"`
	MaxFiles         int      `toml:"max_files"`
	RespectGitignore bool     `toml:"respect_gitignore"`
	TokenEstimator   string   `toml:"token_estimator"`
}

// Defaults returns the settings used when nothing else is configured.
func Defaults() *Config {
	return &Config{
		APIURL:         "https://api.github.com",
		Mode:           string(selection.ModeMinimal),
		Blacklist:      append([]string(nil), selection.DefaultBlacklist...),
		MaxFiles:       60,
		TokenEstimator: EstimatorSimple,
	}
}

// Load reads the profile at path. A missing file yields an empty Config
// unless explicit is set, in which case it is an error.
func Load(path string, explicit bool) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to open config %s: %w", path, err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a TOML profile. Unknown keys are rejected.
func Parse(r io.Reader) (*Config, error) {
	var cfg Config
	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return &cfg, nil
}

// Merge fills the unset fields of cfg from src. cfg keeps every value it
// already has; booleans stay true once set.
func (cfg *Config) Merge(src *Config) {
	if src == nil {
		return
	}
	if cfg.APIURL == "" {
		cfg.APIURL = src.APIURL
	}
	if cfg.Mode == "" {
		cfg.Mode = src.Mode
	}
	if len(cfg.Blacklist) == 0 {
		cfg.Blacklist = src.Blacklist
	}
	if len(cfg.Whitelist) == 0 {
		cfg.Whitelist = src.Whitelist
	}
	if cfg.MaxFiles == 0 {
		cfg.MaxFiles = src.MaxFiles
	}
	cfg.RespectGitignore = cfg.RespectGitignore || src.RespectGitignore
	if cfg.TokenEstimator == "" {
		cfg.TokenEstimator = src.TokenEstimator
	}
}

// Validate rejects settings that would only fail later, after remote calls.
func (cfg *Config) Validate() error {
	if _, err := selection.ParseMode(cfg.Mode); err != nil {
		return err
	}
	if cfg.MaxFiles <= 0 {
		return fmt.Errorf("max_files must be positive, got %d", cfg.MaxFiles)
	}
	switch cfg.TokenEstimator {
	case EstimatorSimple, EstimatorTiktoken:
	default:
		return fmt.Errorf("unknown token estimator: %s", cfg.TokenEstimator)
	}
	return nil
}

// SelectionMode is the parsed Mode. Call Validate first.
func (cfg *Config) SelectionMode() selection.Mode {
	m, _ := selection.ParseMode(cfg.Mode)
	return m
}
