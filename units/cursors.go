package units

import (
	"github.com/odvcencio/increparse/lexis"
	"github.com/odvcencio/increparse/storage"
)

// TokenCursor is an external chunk iterator: it walks the chunks
// intersecting a [start, end) site range in document order,
// delivering each as a lexis.Token (kind, absolute span, text). A
// cursor is a snapshot of the tree it was created from; writes applied
// to the owning unit afterwards are not reflected.
type TokenCursor struct {
	cur  storage.ChildCursor
	site lexis.Site
	end  lexis.Site
}

func newTokenCursor(tree *storage.Tree, span lexis.Span) *TokenCursor {
	end := span.End
	if end > tree.Length() {
		end = tree.Length()
	}
	residual := lexis.Length(span.Start)
	cur := tree.Lookup(&residual)
	return &TokenCursor{cur: cur, site: span.Start - lexis.Site(residual), end: end}
}

// Next returns the next chunk and advances, or ok=false once the cursor
// has moved past the end of its range. The first chunk returned is the
// one containing the range's start site, with its own true span — a
// range starting mid-token still sees that whole token.
func (c *TokenCursor) Next() (lexis.Token, bool) {
	if c.cur.Dangling() || c.site >= c.end {
		return lexis.Token{}, false
	}
	chunk := c.cur.Chunk()
	tok := lexis.Token{
		Kind: chunk.Token,
		Span: lexis.Span{Start: c.site, End: c.site + lexis.Site(chunk.Length)},
		Text: chunk.Text,
	}
	c.site += lexis.Site(chunk.Length)
	c.cur = c.cur.Next()
	return tok, true
}

// CharCursor iterates the characters of a unit's text over a site
// range, reporting each rune with the site it occupies. Like
// TokenCursor, it snapshots the text at creation time.
type CharCursor struct {
	text []rune
	pos  lexis.Site
	end  lexis.Site
}

func newCharCursor(text []rune, span lexis.Span) *CharCursor {
	end := span.End
	if end > lexis.Site(len(text)) {
		end = lexis.Site(len(text))
	}
	start := span.Start
	if start > end {
		start = end
	}
	return &CharCursor{text: text, pos: start, end: end}
}

// Next returns the rune at the cursor and its site, advancing by one
// character; ok=false at the end of the range.
func (c *CharCursor) Next() (rune, lexis.Site, bool) {
	if c.pos >= c.end {
		return 0, c.pos, false
	}
	r := c.text[c.pos]
	site := c.pos
	c.pos++
	return r, site, true
}
