package lexis

// Token is one lexed unit: a grammar symbol plus the span of source
// text it covers.
type Token struct {
	Kind TokenKind
	Span Span
	Text string
}

// Scanner drives Grammar.Scan repeatedly over text, producing a token
// stream. It is the runtime's token scanner: a
// thin driver around the stateless per-token Scan call, with no
// persistent DFA state of its own.
type Scanner struct {
	grammar Grammar
	text    []rune
	lb      int
}

// NewScanner creates a Scanner for grammar over text.
func NewScanner(grammar Grammar, text []rune) *Scanner {
	return &Scanner{grammar: grammar, text: text, lb: grammar.Lookback()}
}

// Next scans a single token starting at the given rune offset and
// returns it along with the rune offset immediately after it. At end of
// input it returns the grammar's EOI token with a zero-length span.
//
// If Scan never calls Submit (a malformed grammar), or matches zero
// characters for a non-empty input, this falls back to a one-character
// Mismatch token and advances by one rune — the lexer never fails,
// worst case it rescans everything.
func (sc *Scanner) Next(start int) (Token, int) {
	if start >= len(sc.text) {
		return Token{Kind: sc.grammar.EOI(), Span: Span{Start: Site(start), End: Site(start)}}, start
	}

	session := newScanSession(sc.text, start, sc.lb)
	kind := sc.grammar.Scan(session)
	end, ok := session.submitted()

	if !ok || end <= start {
		end = start + 1
		kind = sc.grammar.Mismatch()
	}

	return Token{
		Kind: kind,
		Span: Span{Start: Site(start), End: Site(end)},
		Text: string(sc.text[start:end]),
	}, end
}

// ScanAll tokenizes the full text, including an appended EOI token, and
// skips no trivia (trivia classification is the parser's concern per
// the scanner just emits the raw token stream).
func ScanAll(grammar Grammar, text []rune) []Token {
	sc := NewScanner(grammar, text)
	var out []Token
	pos := 0
	for {
		tok, next := sc.Next(pos)
		out = append(out, tok)
		if tok.Kind == grammar.EOI() {
			return out
		}
		pos = next
	}
}
