// Package storage implements the token storage tree: a persistent,
// height-balanced B+ tree of Chunks, dual-indexed by character length
// and chunk count, supporting O(log n) lookup and path-local
// split/join/write.
package storage

import "github.com/odvcencio/increparse/lexis"

// Chunk is the tree's leaf record: one token plus its length and source
// text. Syntax cache entries are addressed by anchor
// site rather than carried on the chunk itself, since inserting one
// would otherwise force a persistent-tree rewrite on every successful
// parse rule — see units.cacheTable.
type Chunk struct {
	Token  lexis.TokenKind
	Length lexis.Length
	Text   string
}

// node is either a *pageNode (leaf) or a *branchNode (internal). Both
// cache their own aggregate length/count so lookups never need to
// rescan siblings.
type node interface {
	length() lexis.Length
	count() uint32
	height() int
}

// pageNode is a leaf holding up to maxChunks(B) chunks in order.
type pageNode struct {
	chunks []Chunk
	sumLen lexis.Length
}

func newPage(chunks []Chunk) *pageNode {
	p := &pageNode{chunks: chunks}
	p.recompute()
	return p
}

func (p *pageNode) recompute() {
	var sum lexis.Length
	for _, c := range p.chunks {
		sum += c.Length
	}
	p.sumLen = sum
}

func (p *pageNode) length() lexis.Length { return p.sumLen }
func (p *pageNode) count() uint32        { return uint32(len(p.chunks)) }
func (p *pageNode) height() int          { return 0 }

// branchNode is an internal node whose children carry their own cached
// aggregates; a branch recomputes its own aggregates from its children
// rather than walking further down.
type branchNode struct {
	children []node
	h        int
	sumLen   lexis.Length
	sumCnt   uint32
}

func newBranch(children []node) *branchNode {
	b := &branchNode{children: children}
	if len(children) > 0 {
		b.h = children[0].height() + 1
	}
	b.recompute()
	return b
}

func (b *branchNode) recompute() {
	var sl lexis.Length
	var sc uint32
	for _, c := range b.children {
		sl += c.length()
		sc += c.count()
	}
	b.sumLen = sl
	b.sumCnt = sc
}

func (b *branchNode) length() lexis.Length { return b.sumLen }
func (b *branchNode) count() uint32        { return b.sumCnt }
func (b *branchNode) height() int          { return b.h }
