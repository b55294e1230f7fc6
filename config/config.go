// Package config loads the library's ambient tuning knobs: the storage
// tree's branching factor, the incremental lexer's resync window and
// lookback cap, and the arena's initial slab
// size hint. Apart from a MaxLookback below a grammar's declared
// lookback, which can change lexing results (see lexer.CapLookback),
// none of these affect correctness (every core package has a
// working zero/default value); they exist so a host embedding this
// module can tune memory/CPU tradeoffs without touching code.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/odvcencio/increparse/lexer"
	"github.com/odvcencio/increparse/storage"
)

// Storage tunes storage.Tree construction.
type Storage struct {
	// B is the tree's branching factor (storage.DefaultBranchingFactor
	// if zero).
	B int `yaml:"b"`
}

// Resync tunes the incremental lexer (lexer.Config).
type Resync struct {
	// Window is the resync window W: how many consecutive matching
	// tokens close a divergent rescan (lexer.DefaultConfig's value if
	// zero).
	Window int `yaml:"window"`
	// MaxLookback caps how far grammar.Lookback() is allowed to push the
	// rescan entry point backward, regardless of what an individual
	// grammar declares; zero means unbounded (use the grammar's value
	// as-is).
	MaxLookback int `yaml:"max_lookback"`
	// WordAlign mirrors lexer.Config.WordAlignResync.
	WordAlign bool `yaml:"word_align"`
}

// Arena tunes arena.Repo's initial backing slice capacity hint.
type Arena struct {
	// Slab is the number of slots to pre-size a fresh Repo's backing
	// slice to, amortizing the first burst of Inserts during an initial
	// parse. Zero leaves Go's normal append growth in place.
	Slab int `yaml:"slab"`
}

// Config is the full set of ambient tuning knobs, loadable from YAML
// with environment-variable overrides.
type Config struct {
	Storage Storage `yaml:"storage"`
	Resync  Resync  `yaml:"resync"`
	Arena   Arena   `yaml:"arena"`
}

// Default returns the zero-tuning config: every package falls back to
// its own built-in default.
func Default() Config {
	return Config{
		Resync: Resync{Window: 1, WordAlign: true},
	}
}

// Load reads a YAML config file at path, falling back to Default for
// any field the file doesn't set.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// overrides lists the environment variables ApplyEnv consults, and the
// setter each one feeds into.
var overrides = []struct {
	env string
	set func(*Config, string) error
}{
	{"INCREPARSE_STORAGE_B", func(c *Config, v string) error {
		n, err := cast.ToIntE(v)
		if err != nil {
			return err
		}
		c.Storage.B = n
		return nil
	}},
	{"INCREPARSE_RESYNC_WINDOW", func(c *Config, v string) error {
		n, err := cast.ToIntE(v)
		if err != nil {
			return err
		}
		c.Resync.Window = n
		return nil
	}},
	{"INCREPARSE_RESYNC_MAX_LOOKBACK", func(c *Config, v string) error {
		n, err := cast.ToIntE(v)
		if err != nil {
			return err
		}
		c.Resync.MaxLookback = n
		return nil
	}},
	{"INCREPARSE_RESYNC_WORD_ALIGN", func(c *Config, v string) error {
		b, err := cast.ToBoolE(v)
		if err != nil {
			return err
		}
		c.Resync.WordAlign = b
		return nil
	}},
	{"INCREPARSE_ARENA_SLAB", func(c *Config, v string) error {
		n, err := cast.ToIntE(v)
		if err != nil {
			return err
		}
		c.Arena.Slab = n
		return nil
	}},
}

// ApplyEnv overrides cfg's fields from whichever of the
// INCREPARSE_*environment variables are set, coercing each one with
// github.com/spf13/cast so e.g. INCREPARSE_RESYNC_WINDOW="2" or
// INCREPARSE_RESYNC_WORD_ALIGN="false" parse without a manual
// strconv call per field.
func (cfg Config) ApplyEnv() (Config, error) {
	for _, o := range overrides {
		v, ok := os.LookupEnv(o.env)
		if !ok || v == "" {
			continue
		}
		if err := o.set(&cfg, v); err != nil {
			return cfg, fmt.Errorf("config: %s=%q: %w", o.env, v, err)
		}
	}
	return cfg, nil
}

// BranchingFactor returns the configured storage tree branching factor,
// or storage.DefaultBranchingFactor if unset.
func (cfg Config) BranchingFactor() int {
	if cfg.Storage.B < 2 {
		return storage.DefaultBranchingFactor
	}
	return cfg.Storage.B
}

// LexerConfig builds a lexer.Config from the Resync section. MaxLookback
// is not part of lexer.Config: lexer.Relex trusts grammar.Lookback(), so
// the cap is enforced by wrapping the grammar with
// lexer.CapLookback(grammar, cfg.Resync.MaxLookback) at unit
// construction, the way cmd/increparse does.
func (cfg Config) LexerConfig() lexer.Config {
	window := cfg.Resync.Window
	if window < 1 {
		window = 1
	}
	return lexer.Config{ResyncWindow: window, WordAlignResync: cfg.Resync.WordAlign}
}
