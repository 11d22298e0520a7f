// Package config loads runtime settings from TOML files: defaults,
// overlaid by ~/.zplay/config.toml, overlaid by a project-local
// .zplay.toml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	defaultGamesDir = "games"
	defaultSavesDir = "saves"
	defaultTimeout  = 5 * time.Second
	defaultSettle   = 300 * time.Millisecond
)

// Config stores resolved runtime settings.
type Config struct {
	// Dfrotz is an explicit interpreter path; empty means environment
	// and PATH lookup.
	Dfrotz   string
	GamesDir string
	SavesDir string
	Timeout  time.Duration
	Settle   time.Duration
	UsePTY   bool
	// PromptPattern overrides the end-of-turn prompt regex; empty
	// keeps the default.
	PromptPattern string
	// FailurePatterns are extra refusal regexes appended to the
	// defaults.
	FailurePatterns []string
}

type fileConfig struct {
	Dfrotz    *string          `toml:"dfrotz"`
	GamesDir  *string          `toml:"games_dir"`
	SavesDir  *string          `toml:"saves_dir"`
	TimeoutMs *int             `toml:"timeout_ms"`
	SettleMs  *int             `toml:"settle_ms"`
	UsePTY    *bool            `toml:"use_pty"`
	Patterns  *patternsSection `toml:"patterns"`
}

type patternsSection struct {
	Prompt  *string  `toml:"prompt"`
	Failure []string `toml:"failure"`
}

func defaults() *Config {
	return &Config{
		GamesDir: defaultGamesDir,
		SavesDir: defaultSavesDir,
		Timeout:  defaultTimeout,
		Settle:   defaultSettle,
	}
}

// Load reads config from the home directory and overlays a
// project-local file on top. Missing files are fine; defaults apply.
func Load() (*Config, error) {
	cfg := defaults()

	if homeDir, err := os.UserHomeDir(); err == nil {
		if err := overlay(cfg, filepath.Join(homeDir, ".zplay", "config.toml")); err != nil {
			return nil, err
		}
	}
	if err := overlay(cfg, ".zplay.toml"); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads exactly one config file over the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := defaults()
	if err := overlay(cfg, path); err != nil {
		return nil, err
	}
	return cfg, nil
}

func overlay(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if fc.Dfrotz != nil {
		cfg.Dfrotz = *fc.Dfrotz
	}
	if fc.GamesDir != nil {
		cfg.GamesDir = *fc.GamesDir
	}
	if fc.SavesDir != nil {
		cfg.SavesDir = *fc.SavesDir
	}
	if fc.TimeoutMs != nil {
		if *fc.TimeoutMs <= 0 {
			return fmt.Errorf("config %s: timeout_ms must be positive", path)
		}
		cfg.Timeout = time.Duration(*fc.TimeoutMs) * time.Millisecond
	}
	if fc.SettleMs != nil {
		if *fc.SettleMs <= 0 {
			return fmt.Errorf("config %s: settle_ms must be positive", path)
		}
		cfg.Settle = time.Duration(*fc.SettleMs) * time.Millisecond
	}
	if fc.UsePTY != nil {
		cfg.UsePTY = *fc.UsePTY
	}
	if fc.Patterns != nil {
		if fc.Patterns.Prompt != nil {
			cfg.PromptPattern = *fc.Patterns.Prompt
		}
		cfg.FailurePatterns = append(cfg.FailurePatterns, fc.Patterns.Failure...)
	}
	return nil
}
