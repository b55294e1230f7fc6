package json

import (
	"fmt"

	"github.com/odvcencio/increparse/lexis"
	"github.com/odvcencio/increparse/syntax"
)

// Rules, one per node kind the grammar produces.
const (
	RuleRoot syntax.Rule = iota
	RuleObject
	RuleEntry
	RuleArray
	RuleString
	RuleNumber
	RuleTrue
	RuleFalse
	RuleNull

	// RuleAny tags errors raised while dispatching the ANY alternation
	// (Object | Array | True | False | String | Number | Null); it has no
	// production of its own, parseAny handles the dispatch inline.
	RuleAny
)

// Root is the document root: a single top-level Object.
type Root struct {
	Object syntax.NodeRef
}

func (Root) Rule() syntax.Rule { return RuleRoot }

func (n Root) Captures() syntax.Captures {
	c := syntax.NewCaptures()
	c.Set("object", n.Object)
	return c
}

// Object is a synchronization point (its recovery set stops the skip
// at BraceOpen/BraceClose): `{ (entries: Entry)*{,} }`.
type Object struct {
	Entries []syntax.NodeRef
}

func (Object) Rule() syntax.Rule { return RuleObject }

func (n Object) Captures() syntax.Captures {
	c := syntax.NewCaptures()
	c.Set("entries", n.Entries)
	return c
}

// Entry is `key: $String & $Colon & value: ANY`.
type Entry struct {
	Key   syntax.TokenRef
	Value syntax.NodeRef
}

func (Entry) Rule() syntax.Rule { return RuleEntry }

func (n Entry) Captures() syntax.Captures {
	c := syntax.NewCaptures()
	c.Set("key", n.Key)
	c.Set("value", n.Value)
	return c
}

// Array is the other synchronization point: `[ (items: ANY)*{,} ]`.
type Array struct {
	Items []syntax.NodeRef
}

func (Array) Rule() syntax.Rule { return RuleArray }

func (n Array) Captures() syntax.Captures {
	c := syntax.NewCaptures()
	c.Set("items", n.Items)
	return c
}

type String struct{ Value syntax.TokenRef }

func (String) Rule() syntax.Rule { return RuleString }

func (n String) Captures() syntax.Captures {
	c := syntax.NewCaptures()
	c.Set("value", n.Value)
	return c
}

type Number struct{ Value syntax.TokenRef }

func (Number) Rule() syntax.Rule { return RuleNumber }

func (n Number) Captures() syntax.Captures {
	c := syntax.NewCaptures()
	c.Set("value", n.Value)
	return c
}

type True struct{}

func (True) Rule() syntax.Rule { return RuleTrue }

func (True) Captures() syntax.Captures { return syntax.NewCaptures() }

type False struct{}

func (False) Rule() syntax.Rule { return RuleFalse }

func (False) Captures() syntax.Captures { return syntax.NewCaptures() }

type Null struct{}

func (Null) Rule() syntax.Rule { return RuleNull }

func (Null) Captures() syntax.Captures { return syntax.NewCaptures() }

// anyTokens is the first-set of the ANY alternation (Object | Array |
// True | False | String | Number | Null), used both to dispatch and to
// build SyntaxError.ExpectedTokens on mismatch.
var anyTokens = []lexis.TokenKind{
	TokenBraceOpen, TokenBracketOpen, TokenTrue, TokenFalse, TokenString, TokenNumber, TokenNull,
}

var anyRules = []syntax.Rule{RuleObject, RuleArray, RuleTrue, RuleFalse, RuleString, RuleNumber, RuleNull}

func parseAny(s *syntax.Session) syntax.NodeRef {
	switch s.Token(0) {
	case TokenBraceOpen:
		return s.Descend(RuleObject)
	case TokenBracketOpen:
		return s.Descend(RuleArray)
	case TokenTrue:
		return s.Descend(RuleTrue)
	case TokenFalse:
		return s.Descend(RuleFalse)
	case TokenString:
		return s.Descend(RuleString)
	case TokenNumber:
		return s.Descend(RuleNumber)
	case TokenNull:
		return s.Descend(RuleNull)
	default:
		s.Recover(RuleAny, anyTokens, anyRules)
		return syntax.NilNodeRef
	}
}

func parseRoot(s *syntax.Session, _ syntax.Rule) syntax.Node {
	obj := s.Descend(RuleObject)
	return Root{Object: obj}
}

func parseObject(s *syntax.Session, _ syntax.Rule) syntax.Node {
	if s.Token(0) != TokenBraceOpen {
		s.Recover(RuleObject, []lexis.TokenKind{TokenBraceOpen}, nil)
		return Object{}
	}
	s.Advance()

	var entries []syntax.NodeRef
	for {
		switch s.Token(0) {
		case TokenBraceClose:
			s.Advance()
			return Object{Entries: entries}
		case TokenEOI:
			s.Recover(RuleObject, []lexis.TokenKind{TokenBraceClose}, nil)
			return Object{Entries: entries}
		default:
			entries = append(entries, s.Descend(RuleEntry))
			if s.Token(0) == TokenComma {
				s.Advance()
				continue
			}
		}
	}
}

func parseEntry(s *syntax.Session, _ syntax.Rule) syntax.Node {
	if s.Token(0) != TokenString {
		s.Recover(RuleEntry, []lexis.TokenKind{TokenString}, nil)
		return Entry{Value: syntax.NilNodeRef}
	}
	_, keyRef := s.Advance()

	if s.Token(0) != TokenColon {
		s.Recover(RuleEntry, []lexis.TokenKind{TokenColon}, nil)
		return Entry{Key: keyRef, Value: syntax.NilNodeRef}
	}
	s.Advance()

	value := parseAny(s)
	return Entry{Key: keyRef, Value: value}
}

func parseArray(s *syntax.Session, _ syntax.Rule) syntax.Node {
	if s.Token(0) != TokenBracketOpen {
		s.Recover(RuleArray, []lexis.TokenKind{TokenBracketOpen}, nil)
		return Array{}
	}
	s.Advance()

	var items []syntax.NodeRef
	for {
		switch s.Token(0) {
		case TokenBracketClose:
			s.Advance()
			return Array{Items: items}
		case TokenEOI:
			s.Recover(RuleArray, []lexis.TokenKind{TokenBracketClose}, nil)
			return Array{Items: items}
		default:
			items = append(items, parseAny(s))
			if s.Token(0) == TokenComma {
				s.Advance()
				continue
			}
		}
	}
}

func parseString(s *syntax.Session, _ syntax.Rule) syntax.Node {
	if s.Token(0) != TokenString {
		s.Recover(RuleString, []lexis.TokenKind{TokenString}, nil)
		return String{}
	}
	_, ref := s.Advance()
	return String{Value: ref}
}

func parseNumber(s *syntax.Session, _ syntax.Rule) syntax.Node {
	if s.Token(0) != TokenNumber {
		s.Recover(RuleNumber, []lexis.TokenKind{TokenNumber}, nil)
		return Number{}
	}
	_, ref := s.Advance()
	return Number{Value: ref}
}

func parseTrue(s *syntax.Session, _ syntax.Rule) syntax.Node {
	if s.Token(0) != TokenTrue {
		s.Recover(RuleTrue, []lexis.TokenKind{TokenTrue}, nil)
		return True{}
	}
	s.Advance()
	return True{}
}

func parseFalse(s *syntax.Session, _ syntax.Rule) syntax.Node {
	if s.Token(0) != TokenFalse {
		s.Recover(RuleFalse, []lexis.TokenKind{TokenFalse}, nil)
		return False{}
	}
	s.Advance()
	return False{}
}

func parseNull(s *syntax.Session, _ syntax.Rule) syntax.Node {
	if s.Token(0) != TokenNull {
		s.Recover(RuleNull, []lexis.TokenKind{TokenNull}, nil)
		return Null{}
	}
	s.Advance()
	return Null{}
}

var ruleNames = map[syntax.Rule]string{
	RuleRoot:   "Root",
	RuleObject: "Object",
	RuleEntry:  "Entry",
	RuleArray:  "Array",
	RuleString: "String",
	RuleNumber: "Number",
	RuleTrue:   "True",
	RuleFalse:  "False",
	RuleNull:   "Null",
	RuleAny:    "Any",
}

// RuleName returns the human-readable name of a rule, for dumps and
// diagnostics.
func RuleName(r syntax.Rule) string {
	if name, ok := ruleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("rule-%d", r)
}

// recoverySet builds the RecoverySet every rule here uses: the
// Object/Array brace and bracket pairs are always skipped as balanced
// units during recovery, on top of whatever tokens end that particular
// rule's skip.
func recoverySet(stop ...lexis.TokenKind) syntax.RecoverySet {
	tokens := make(map[lexis.TokenKind]bool, len(stop))
	for _, t := range stop {
		tokens[t] = true
	}
	return syntax.RecoverySet{
		Tokens: tokens,
		Brackets: map[lexis.TokenKind]lexis.TokenKind{
			TokenBraceOpen:   TokenBraceClose,
			TokenBracketOpen: TokenBracketClose,
		},
	}
}

// Grammar is the complete JSON syntax.Grammar: production table, root
// rule, and per-rule recovery sets.
func Grammar() syntax.Grammar {
	return syntax.Grammar{
		RootRule: RuleRoot,
		Productions: map[syntax.Rule]syntax.ParseFunc{
			RuleRoot:   parseRoot,
			RuleObject: parseObject,
			RuleEntry:  parseEntry,
			RuleArray:  parseArray,
			RuleString: parseString,
			RuleNumber: parseNumber,
			RuleTrue:   parseTrue,
			RuleFalse:  parseFalse,
			RuleNull:   parseNull,
		},
		Recovery: map[syntax.Rule]syntax.RecoverySet{
			RuleObject: recoverySet(TokenBraceClose, TokenComma),
			RuleArray:  recoverySet(TokenBracketClose, TokenComma),
			RuleEntry:  recoverySet(TokenComma, TokenBraceClose),
		},
		TokenGrammar: Lexis{},
	}
}
