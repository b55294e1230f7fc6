package units

import (
	"github.com/google/uuid"

	"github.com/odvcencio/increparse/arena"
	"github.com/odvcencio/increparse/lexis"
	"github.com/odvcencio/increparse/parse"
	"github.com/odvcencio/increparse/storage"
	"github.com/odvcencio/increparse/syntax"
)

// ImmutableUnit is a one-shot parse with no reparse machinery: it is
// lexed and parsed exactly once at construction and never edited again.
// It still carries a syntax cache, since cache hits are useful within
// a single parse (a rule invoked twice at the same anchor, e.g.
// through backtracking-free ambiguity in a hand-written grammar) even
// without a subsequent edit to make reuse matter more.
type ImmutableUnit struct {
	id     syntax.UnitID
	text   []rune
	tree   *storage.Tree
	lines  *lexis.LineIndex
	arenas parse.Arenas
	root   syntax.NodeRef
}

// NewImmutableUnit lexes and parses text once and returns the finished,
// permanently frozen unit.
func NewImmutableUnit(grammar syntax.Grammar, text string) *ImmutableUnit {
	runes := []rune(text)
	tree := buildTree(grammar.TokenGrammar, runes)
	arenas := parse.NewArenas()
	id := uuid.New()
	root := parse.Full(id, grammar, tree, newCacheTable(), syntax.VoidWatcher{}, arenas)

	return &ImmutableUnit{
		id:     id,
		text:   runes,
		tree:   tree,
		lines:  lexis.NewLineIndex(runes),
		arenas: arenas,
		root:   root,
	}
}

func (u *ImmutableUnit) ID() syntax.UnitID    { return u.id }
func (u *ImmutableUnit) Text() string         { return string(u.text) }
func (u *ImmutableUnit) Tree() *storage.Tree  { return u.tree }
func (u *ImmutableUnit) Root() syntax.NodeRef { return u.root }

// Length returns the unit's text length in characters.
func (u *ImmutableUnit) Length() lexis.Length { return lexis.Length(len(u.text)) }

// Position converts a character site to a (line, column) pair.
func (u *ImmutableUnit) Position(site lexis.Site) lexis.Position {
	return u.lines.ToPosition(site)
}

// Site converts a (line, column) pair to a character site.
func (u *ImmutableUnit) Site(pos lexis.Position) lexis.Site {
	return u.lines.ToSite(pos)
}

// Cursor returns a token cursor over the chunks intersecting span.
func (u *ImmutableUnit) Cursor(span lexis.Span) *TokenCursor {
	return newTokenCursor(u.tree, span)
}

// Chars returns a character cursor over span.
func (u *ImmutableUnit) Chars(span lexis.Span) *CharCursor {
	return newCharCursor(u.text, span)
}

// EachNode visits every node in the unit's arena, in slot order.
func (u *ImmutableUnit) EachNode(fn func(syntax.NodeRef, syntax.Node)) {
	u.arenas.Nodes.Each(func(e arena.Entry, n syntax.Node) {
		fn(syntax.NodeRef{Unit: u.id, Entry: e}, n)
	})
}

// EachError visits every parse error recorded by the one-shot parse.
func (u *ImmutableUnit) EachError(fn func(syntax.ErrorRef, syntax.SyntaxError)) {
	u.arenas.Errors.Each(func(e arena.Entry, err syntax.SyntaxError) {
		fn(syntax.ErrorRef{Unit: u.id, Entry: e}, err)
	})
}

// ErrorCount returns the number of parse errors the parse recorded.
func (u *ImmutableUnit) ErrorCount() int { return u.arenas.Errors.Len() }

func (u *ImmutableUnit) ResolveNode(ref syntax.NodeRef) (syntax.Node, bool) {
	return u.arenas.Nodes.Get(ref.Entry)
}

func (u *ImmutableUnit) ResolveToken(ref syntax.TokenRef) (lexis.Token, bool) {
	return u.arenas.Tokens.Get(ref.Entry)
}

func (u *ImmutableUnit) ResolveError(ref syntax.ErrorRef) (syntax.SyntaxError, bool) {
	return u.arenas.Errors.Get(ref.Entry)
}
