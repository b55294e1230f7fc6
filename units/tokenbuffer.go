package units

import (
	"github.com/odvcencio/increparse/lexis"
	"github.com/odvcencio/increparse/storage"
)

// TokenBuffer is the lex-only sibling of ImmutableUnit: it lexes text
// once into a storage tree and stops there, for callers that only need
// the token
// stream and Site<->Position conversion (a linter, a token-level diff,
// a gutter renderer) without paying for a parse tree they won't use.
type TokenBuffer struct {
	text  string
	tree  *storage.Tree
	lines *lexis.LineIndex
}

// NewTokenBuffer lexes text in full under grammar and returns the
// finished, frozen buffer.
func NewTokenBuffer(grammar lexis.Grammar, text string) *TokenBuffer {
	runes := []rune(text)
	return &TokenBuffer{
		text:  text,
		tree:  buildTree(grammar, runes),
		lines: lexis.NewLineIndex(runes),
	}
}

func (b *TokenBuffer) Text() string        { return b.text }
func (b *TokenBuffer) Tree() *storage.Tree { return b.tree }

// Length returns the buffer's text length in characters.
func (b *TokenBuffer) Length() lexis.Length { return b.tree.Length() }

// Cursor returns a token cursor over the chunks intersecting span.
func (b *TokenBuffer) Cursor(span lexis.Span) *TokenCursor {
	return newTokenCursor(b.tree, span)
}

// Position converts a character Site to a (Line, Column) pair.
func (b *TokenBuffer) Position(site lexis.Site) lexis.Position {
	return b.lines.ToPosition(site)
}

// Site converts a (Line, Column) pair to a character Site.
func (b *TokenBuffer) Site(pos lexis.Position) lexis.Site {
	return b.lines.ToSite(pos)
}

// DisplayPosition is Position with the column counted in grapheme
// clusters instead of runes (lexis.LineIndex.DisplayColumn).
func (b *TokenBuffer) DisplayPosition(site lexis.Site) lexis.Position {
	pos := b.lines.ToPosition(site)
	pos.Column = b.lines.DisplayColumn([]rune(b.text), site)
	return pos
}

// Tokens returns every chunk in the buffer as a flat slice, in order.
// Meant for small buffers / tests and tooling; large documents should
// walk storage.Tree.Lookup/ChildCursor directly to avoid the allocation.
func (b *TokenBuffer) Tokens() []storage.Chunk {
	var out []storage.Chunk
	var site lexis.Length
	c := b.tree.Lookup(&site)
	for !c.Dangling() {
		out = append(out, c.Chunk())
		c = c.Next()
	}
	return out
}
