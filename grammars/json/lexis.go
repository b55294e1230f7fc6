// Package json is the worked-example grammar the incremental pipeline
// is exercised against: a JSON token/node pair implemented by hand
// against the lexis.Grammar/syntax.Grammar contracts, the way a derive
// code-generator would emit it for a fuller toolchain.
package json

import "github.com/odvcencio/increparse/lexis"

// Token kinds. EOI is zero so a zero chunk never masquerades as a
// significant token.
const (
	TokenEOI lexis.TokenKind = iota
	TokenTrue
	TokenFalse
	TokenNull
	TokenBraceOpen
	TokenBraceClose
	TokenBracketOpen
	TokenBracketClose
	TokenComma
	TokenColon
	TokenString
	TokenNumber
	TokenWhitespace
	TokenMismatch
)

// Lexis implements lexis.Grammar for JSON. Lookback is 0: no JSON token
// needs to see characters before its own start to decide its shape.
type Lexis struct{}

func (Lexis) Lookback() int            { return 0 }
func (Lexis) EOI() lexis.TokenKind      { return TokenEOI }
func (Lexis) Mismatch() lexis.TokenKind { return TokenMismatch }
func (Lexis) IsTrivia(k lexis.TokenKind) bool {
	return k == TokenWhitespace
}

// WordAligned opts this grammar out of lexer §4.7's resync tightening:
// JSON's tokens are all punctuation, keywords, or quoted/numeric
// literals with no ambiguous word-continuation case uax29 would help
// with.
func (Lexis) WordAligned() bool { return false }

var keywords = map[string]lexis.TokenKind{
	"true":  TokenTrue,
	"false": TokenFalse,
	"null":  TokenNull,
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isWhitespace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\f', '\r':
		return true
	}
	return false
}

// Scan implements the JSON token rules by hand: punctuation, strings
// with escapes, numbers with optional fraction/exponent, whitespace
// runs, and the true/false/null keywords.
func (g Lexis) Scan(s *lexis.ScanSession) lexis.TokenKind {
	r, ok := s.Lookahead()
	if !ok {
		return TokenEOI
	}

	switch r {
	case '{':
		s.Advance()
		s.Submit()
		return TokenBraceOpen
	case '}':
		s.Advance()
		s.Submit()
		return TokenBraceClose
	case '[':
		s.Advance()
		s.Submit()
		return TokenBracketOpen
	case ']':
		s.Advance()
		s.Submit()
		return TokenBracketClose
	case ',':
		s.Advance()
		s.Submit()
		return TokenComma
	case ':':
		s.Advance()
		s.Submit()
		return TokenColon
	case '"':
		return g.scanString(s)
	}

	if isWhitespace(r) {
		for {
			s.Advance()
			s.Submit()
			next, ok := s.Lookahead()
			if !ok || !isWhitespace(next) {
				return TokenWhitespace
			}
		}
	}

	if r == '-' || isDigit(r) {
		return g.scanNumber(s)
	}

	for word, kind := range keywords {
		if matchLiteral(s, word) {
			return kind
		}
	}

	return TokenMismatch
}

// matchLiteral tries to consume exactly word from the session's current
// position, rewinding on failure so the caller can try another rule.
func matchLiteral(s *lexis.ScanSession, word string) bool {
	for _, want := range word {
		got, ok := s.Lookahead()
		if !ok || got != want {
			s.Rewind()
			return false
		}
		s.Advance()
	}
	s.Submit()
	return true
}

// scanString matches '"' & (ESCAPE | ^['"','\\'])* & '"'.
func (Lexis) scanString(s *lexis.ScanSession) lexis.TokenKind {
	s.Advance() // opening quote
	for {
		r, ok := s.Lookahead()
		if !ok {
			// Unterminated string: report a Mismatch without submitting;
			// Scanner.Next then emits the opening quote alone as a
			// one-character Mismatch token and lexing resumes after it.
			return TokenMismatch
		}
		if r == '"' {
			s.Advance()
			s.Submit()
			return TokenString
		}
		if r == '\\' {
			s.Advance()
			if esc, ok := s.Lookahead(); ok {
				if esc == 'u' {
					s.Advance()
					for i := 0; i < 4; i++ {
						if _, ok := s.Lookahead(); !ok {
							break
						}
						s.Advance()
					}
				} else {
					s.Advance()
				}
			}
			continue
		}
		s.Advance()
	}
}

// scanNumber matches '-'? & ('0' | POSITIVE) & ('.' & DEC+)? & (['e','E'] & ['-','+']? & DEC+)?.
func (Lexis) scanNumber(s *lexis.ScanSession) lexis.TokenKind {
	if r, ok := s.Lookahead(); ok && r == '-' {
		s.Advance()
	}
	r, ok := s.Lookahead()
	if !ok || !isDigit(r) {
		return TokenMismatch
	}
	if r == '0' {
		s.Advance()
	} else {
		for {
			r, ok := s.Lookahead()
			if !ok || !isDigit(r) {
				break
			}
			s.Advance()
		}
	}
	s.Submit()

	if r, ok := s.Lookahead(); ok && r == '.' {
		s.Advance()
		digits := 0
		for {
			r, ok := s.Lookahead()
			if !ok || !isDigit(r) {
				break
			}
			s.Advance()
			digits++
		}
		if digits > 0 {
			s.Submit()
		}
		// else: fractional part requires >=1 digit; Submit stays at the integer part.
	}

	if r, ok := s.Lookahead(); ok && (r == 'e' || r == 'E') {
		s.Advance()
		if r2, ok := s.Lookahead(); ok && (r2 == '+' || r2 == '-') {
			s.Advance()
		}
		digits := 0
		for {
			r, ok := s.Lookahead()
			if !ok || !isDigit(r) {
				break
			}
			s.Advance()
			digits++
		}
		if digits > 0 {
			s.Submit()
		}
	}

	return TokenNumber
}
