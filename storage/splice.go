package storage

import "github.com/odvcencio/increparse/lexis"

// ChunkSplitter truncates a chunk into two at an interior offset when a
// split falls mid-token. Relex only splits at chunk boundaries and
// passes no splitter; storage falls back to a
// naive text slice (same token kind on both halves) when none is given,
// which is enough for callers (tests, tools) that only need the text
// content preserved and don't care about re-lexing the halves.
type ChunkSplitter func(c Chunk, offset lexis.Length) (left, right Chunk)

func defaultSplitter(c Chunk, offset lexis.Length) (Chunk, Chunk) {
	rs := []rune(c.Text)
	left := Chunk{Token: c.Token, Length: offset, Text: string(rs[:offset])}
	right := Chunk{Token: c.Token, Length: c.Length - offset, Text: string(rs[offset:])}
	return left, right
}

// SplitAt splits the tree at site, returning (left, right) trees such
// that every chunk ending at or before site is in left. If site falls
// inside a chunk, splitter (or the default text-slicing fallback) cuts
// that chunk across the boundary.
func (t *Tree) SplitAt(site lexis.Length, splitter ChunkSplitter) (*Tree, *Tree) {
	if splitter == nil {
		splitter = defaultSplitter
	}
	if t.root == nil || site == 0 {
		return NewEmptyTree(t.b), &Tree{b: t.b, root: t.root}
	}
	if site >= t.root.length() {
		return &Tree{b: t.b, root: t.root}, NewEmptyTree(t.b)
	}

	left, right := splitNode(t.root, site, splitter, t.b)
	return &Tree{b: t.b, root: left}, &Tree{b: t.b, root: right}
}

func splitNode(n node, site lexis.Length, splitter ChunkSplitter, b int) (node, node) {
	switch v := n.(type) {
	case *pageNode:
		var cum lexis.Length
		for i, c := range v.chunks {
			if cum+lexis.Length(c.Length) <= site {
				cum += lexis.Length(c.Length)
				continue
			}
			offset := site - cum
			if offset == 0 {
				return rebuildPage(v.chunks[:i], b), rebuildPage(v.chunks[i:], b)
			}
			l, r := splitter(c, offset)
			leftChunks := append(append([]Chunk{}, v.chunks[:i]...), l)
			rightChunks := append([]Chunk{r}, v.chunks[i+1:]...)
			return rebuildPage(leftChunks, b), rebuildPage(rightChunks, b)
		}
		return rebuildPage(v.chunks, b), nil

	case *branchNode:
		var cum lexis.Length
		for i, ch := range v.children {
			if cum+ch.length() <= site {
				cum += ch.length()
				continue
			}
			childLeft, childRight := splitNode(ch, site-cum, splitter, b)
			leftChildren := append([]node{}, v.children[:i]...)
			if childLeft != nil {
				leftChildren = append(leftChildren, childLeft)
			}
			rightChildren := []node{}
			if childRight != nil {
				rightChildren = append(rightChildren, childRight)
			}
			rightChildren = append(rightChildren, v.children[i+1:]...)
			return layer(leftChildren, 2*b-1), layer(rightChildren, 2*b-1)
		}
		return layer(append([]node{}, v.children...), 2*b-1), nil
	}
	return nil, nil
}

func rebuildPage(chunks []Chunk, b int) node {
	if len(chunks) == 0 {
		return nil
	}
	if len(chunks) <= 2*b-1 {
		return newPage(chunks)
	}
	pages := distribute(chunks, 2*b-1, func(cs []Chunk) node { return newPage(cs) })
	return layer(pages, 2*b-1)
}

// Join concatenates t and right in order, rebalancing the border pages
// so the result satisfies the tree's page/branch size policy.
func (t *Tree) Join(right *Tree) *Tree {
	if t.root == nil {
		return right
	}
	if right == nil || right.root == nil {
		return t
	}
	merged := joinNodes(t.root, right.root, t.b)
	return &Tree{b: t.b, root: merged}
}

// joinNodes concatenates two node subtrees (of possibly different
// height) into one, borrowing the classic B-tree "descend into the
// taller side's boundary child" strategy so only the path along the
// seam is touched.
func joinNodes(a, b node, branchFactor int) node {
	ha, hb := a.height(), b.height()
	max := 2*branchFactor - 1

	switch {
	case ha == hb:
		if pa, ok := a.(*pageNode); ok {
			pb := b.(*pageNode)
			combined := append(append([]Chunk{}, pa.chunks...), pb.chunks...)
			return rebuildPage(combined, branchFactor)
		}
		ba, bb := a.(*branchNode), b.(*branchNode)
		combined := append(append([]node{}, ba.children...), bb.children...)
		return layer(combined, max)

	case ha > hb:
		ba := a.(*branchNode)
		lastIdx := len(ba.children) - 1
		mergedTail := joinNodes(ba.children[lastIdx], b, branchFactor)
		children := append(append([]node{}, ba.children[:lastIdx]...), flattenIfOversized(mergedTail, max)...)
		return layer(children, max)

	default:
		bb := b.(*branchNode)
		mergedHead := joinNodes(a, bb.children[0], branchFactor)
		children := append(flattenIfOversized(mergedHead, max), bb.children[1:]...)
		return layer(children, max)
	}
}

// flattenIfOversized re-splits a node produced by a recursive join if it
// grew past the max fan-out, so its parent's rebuild sees valid-sized
// children instead of one oversized one.
func flattenIfOversized(n node, max int) []node {
	if n == nil {
		return nil
	}
	switch v := n.(type) {
	case *pageNode:
		if len(v.chunks) <= max {
			return []node{n}
		}
		return distribute(v.chunks, max, func(cs []Chunk) node { return newPage(cs) })
	case *branchNode:
		if len(v.children) <= max {
			return []node{n}
		}
		return distribute(v.children, max, func(cs []node) node { return newBranch(cs) })
	}
	return []node{n}
}

// Write replaces the chunks covering span with replacement, returning
// the new tree: split at span.Start, split at span.End, join the
// untouched borders with the replacement chunks in between.
func (t *Tree) Write(span lexis.Span, replacement []Chunk, splitter ChunkSplitter) *Tree {
	left, rest := t.SplitAt(span.Start, splitter)
	// rest currently starts at span.Start; split it again at
	// (span.End - span.Start) to isolate the removed region.
	_, right := rest.SplitAt(span.End-span.Start, splitter)

	mid := BuildTree(t.b, replacement)
	return left.Join(mid).Join(right)
}
