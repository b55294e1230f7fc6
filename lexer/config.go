// Package lexer implements the incremental lexer: given an edit span
// and replacement text, it recomputes only the
// affected chunk range and splices the result into the storage tree,
// rather than rescanning the whole document.
package lexer

import "github.com/odvcencio/increparse/lexis"

// Config tunes the affected-range and resync heuristics. Zero value is
// not valid; use DefaultConfig.
type Config struct {
	// ResyncWindow is W, the number of consecutive matching tokens
	// required to close the divergent window. 1 is sufficient for
	// stateless scanners; stateful ones may want more headroom, so it
	// stays configurable.
	ResyncWindow int

	// WordAlignResync additionally requires the resync boundary to land
	// on a Unicode word boundary for grammars that opt in via
	// WordAligned(). Ignored for grammars that
	// don't implement WordAligned, or that implement it and return false.
	WordAlignResync bool
}

// DefaultConfig is the configuration most grammars want.
func DefaultConfig() Config {
	return Config{ResyncWindow: 1, WordAlignResync: true}
}

// WordAligned is implemented by grammars that want resync points
// tightened to Unicode word boundaries. Grammars that
// don't implement it get the plain W-token rule.
type WordAligned interface {
	WordAligned() bool
}

func grammarWantsWordAlign(g interface{}, cfg Config) bool {
	if !cfg.WordAlignResync {
		return false
	}
	wa, ok := g.(WordAligned)
	return ok && wa.WordAligned()
}

// CapLookback wraps g so that Lookback() reports at most max, letting a
// host bound how far Relex's rescan entry point can be pushed backward
// regardless of what an individual grammar declares (config's
// Resync.MaxLookback knob). A zero or negative max returns g unchanged.
//
// Capping below the grammar's true lookback trades correctness for
// latency: a token whose shape genuinely depends on characters further
// back than the cap may resync one token late. Hosts that set this are
// expected to know their grammars' real bounds.
func CapLookback(g lexis.Grammar, max int) lexis.Grammar {
	if max <= 0 || g.Lookback() <= max {
		return g
	}
	return cappedGrammar{Grammar: g, max: max}
}

type cappedGrammar struct {
	lexis.Grammar
	max int
}

func (c cappedGrammar) Lookback() int { return c.max }

// WordAligned forwards the wrapped grammar's preference so CapLookback
// doesn't silently strip the §4.7 resync-tightening opt-in.
func (c cappedGrammar) WordAligned() bool {
	wa, ok := c.Grammar.(WordAligned)
	return ok && wa.WordAligned()
}
