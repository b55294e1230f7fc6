package lexis

// TokenKind is a grammar-specific terminal tag. 0 is reserved for "no
// token"/EOI by convention in the grammars this runtime ships
// (grammars/json) but Grammar.EOI is authoritative.
type TokenKind uint16

// Grammar is the compile-time contract a user-supplied token type must
// satisfy. Implementations are almost always generated from a
// regex-like rule description by a derive code-generator; no such
// generator ships with this module, so Grammar is written by hand for
// grammars/json and would be the target of such a generator for any
// other language.
type Grammar interface {
	// Lookback is the maximum distance backwards Scan ever inspects past
	// a token's start. 0 for context-free scanners.
	Lookback() int

	// Scan consumes characters from session starting at its current
	// position and returns the matched token kind. Scan must call
	// session.Submit at least once before returning a non-Mismatch kind;
	// the last submitted position becomes the token's end.
	Scan(session *ScanSession) TokenKind

	// EOI is the token kind synthesized at end-of-input.
	EOI() TokenKind

	// Mismatch is the token kind used when no rule of the grammar
	// matches at the current position; the engine advances one
	// character and resumes, so lexing never fails outright.
	Mismatch() TokenKind

	// IsTrivia reports whether tokens of this kind are automatically
	// skipped between syntax-significant tokens.
	IsTrivia(TokenKind) bool
}

// ScanSession is the token scanner: a stateless cursor object driven by
// Grammar.Scan. It is stateless in the sense that no DFA state
// persists between Scan invocations, even though the Go value itself
// obviously carries scan position.
//
// The session shape follows tree-sitter's external-scanner contract
// (lookahead/advance/mark-end), generalized with bounded backward
// lookback: a lexer that needs to peek behind the token start (e.g. to
// distinguish a second '-' that continues a '--' token from one that
// starts a new token) declares Grammar.Lookback() and reads
// Character(-k).
type ScanSession struct {
	text  []rune
	start int // rune index where the current token scan began
	pos   int // current scan cursor
	end   int // last Submit()-ted position; -1 if none yet
	maxLB int // Grammar.Lookback(), clamps negative offsets
}

func newScanSession(text []rune, start, maxLookback int) *ScanSession {
	return &ScanSession{text: text, start: start, pos: start, end: -1, maxLB: maxLookback}
}

// Character peeks the rune at offset characters from the scan start
// (offset == 0 is the first character of the token being scanned;
// negative offsets look backward, up to -Grammar.Lookback()). Returns
// (0, false) out of bounds.
func (s *ScanSession) Character(offset int) (rune, bool) {
	if offset < -s.maxLB {
		return 0, false
	}
	i := s.start + offset
	if i < 0 || i >= len(s.text) {
		return 0, false
	}
	return s.text[i], true
}

// Lookahead returns the rune at the current cursor, or (0, false) at
// end of input. This is Character(pos - start).
func (s *ScanSession) Lookahead() (rune, bool) {
	if s.pos >= len(s.text) {
		return 0, false
	}
	return s.text[s.pos], true
}

// Advance consumes the rune under the cursor and returns it. Advancing
// past end of input is a no-op and returns (0, false).
func (s *ScanSession) Advance() (rune, bool) {
	r, ok := s.Lookahead()
	if !ok {
		return 0, false
	}
	s.pos++
	return r, true
}

// Submit marks the current cursor position as a valid token boundary.
// Scan may call Submit more than once (e.g. trying progressively longer
// matches); the position from the *last* call wins, mirroring
// tree-sitter external-scanner mark-end semantics (the last accepting
// DFA state walked, not the final one).
func (s *ScanSession) Submit() {
	s.end = s.pos
}

// Rewind resets the scan cursor back to the token start, letting Scan
// retry a different rule after a failed attempt without losing
// backward-lookback access to characters before the start.
func (s *ScanSession) Rewind() {
	s.pos = s.start
}

// Pos returns the current absolute rune-index cursor position.
func (s *ScanSession) Pos() int { return s.pos }

// submitted reports the token's end cursor and whether Submit was ever
// called.
func (s *ScanSession) submitted() (int, bool) {
	if s.end < s.start {
		return s.start, false
	}
	return s.end, true
}
