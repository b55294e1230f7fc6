package syntax

import (
	"fmt"

	"github.com/odvcencio/increparse/lexis"
)

// Rule identifies a grammar production (non-terminal).
type Rule uint16

// Node is a parsed syntax tree node. Concrete node types are produced by
// the grammar's ParseFuncs; the runtime itself only needs which rule a
// node was parsed as. A caller that knows the grammar reads captures
// through a type assertion to the concrete struct; generic tree-walking
// code (a dumper, a diff, a semantic layer) enumerates them through
// Captures instead.
type Node interface {
	Rule() Rule

	// Captures returns the node's captured children — child nodes,
	// child tokens, repeated children — keyed by field name, in the
	// order the grammar declares them.
	Captures() Captures
}

// SyntaxError is recorded by Session.Failure during panic-mode recovery
// and on rule-entry mismatches.
type SyntaxError struct {
	Rule           Rule
	Span           lexis.Span
	ExpectedTokens []lexis.TokenKind
	ExpectedRules  []Rule
}

// ParseError adapts a recorded SyntaxError into the stdlib error
// interface, for a
// host that wants to surface one through ordinary Go error handling
// rather than reading SyntaxError's fields directly.
type ParseError struct {
	SyntaxError
}

func (e ParseError) Error() string {
	return fmt.Sprintf("syntax: rule %d at [%d,%d): expected tokens %v, rules %v",
		e.Rule, e.Span.Start, e.Span.End, e.ExpectedTokens, e.ExpectedRules)
}

// ParseFunc parses one rule starting at the session's current position
// and returns the resulting node value. Descend (which calls this)
// handles ref allocation, cache bookkeeping, and watcher notification
// around it — the production only needs to consume tokens and build its
// own struct. This is the hand-written (or, in a fuller toolchain,
// derive-generated) production for one grammar rule.
type ParseFunc func(session *Session, rule Rule) Node

// RecoverySet is the synchronizing token/bracket-pair set panic-mode
// recovery consults for one rule.
type RecoverySet struct {
	// Tokens are token kinds that stop the skip.
	Tokens map[lexis.TokenKind]bool
	// Brackets maps an open token kind to its matching close kind; pairs
	// mentioned here are skipped as balanced units rather than stopping
	// the skip at the first occurrence.
	Brackets map[lexis.TokenKind]lexis.TokenKind
}

func (rs RecoverySet) stops(k lexis.TokenKind) bool {
	return rs.Tokens != nil && rs.Tokens[k]
}

func (rs RecoverySet) closeFor(open lexis.TokenKind) (lexis.TokenKind, bool) {
	if rs.Brackets == nil {
		return 0, false
	}
	c, ok := rs.Brackets[open]
	return c, ok
}

// Grammar is the parser-side counterpart of lexis.Grammar: a table of
// productions keyed by rule, the root rule, and per-rule recovery sets.
type Grammar struct {
	Productions map[Rule]ParseFunc
	RootRule    Rule
	Recovery    map[Rule]RecoverySet
	// TokenGrammar is the lexical grammar these productions parse, kept
	// here so a single grammar package value can answer both the lexis
	// and syntax questions.
	TokenGrammar lexis.Grammar
}

func (g Grammar) recoveryFor(rule Rule) RecoverySet {
	if g.Recovery == nil {
		return RecoverySet{}
	}
	return g.Recovery[rule]
}
