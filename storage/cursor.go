package storage

import "github.com/odvcencio/increparse/lexis"

// cursorStep is one level of a ChildCursor's root-to-leaf path.
type cursorStep struct {
	n   node
	idx int // index into n's children (branch) or chunks (page)
}

// ChildCursor identifies (page, index-within-page) by way of the full
// root-to-leaf path, so Next/Prev can move to a sibling page in O(1)
// amortised without re-descending from the root or needing parent
// back-pointers.
type ChildCursor struct {
	path    []cursorStep
	dangling bool
}

// Dangling reports whether the cursor points one past the last chunk
// (the tree's end, which is what Lookup returns for site == total
// length).
func (c ChildCursor) Dangling() bool { return c.dangling || len(c.path) == 0 }

func (c ChildCursor) page() *pageNode {
	return c.path[len(c.path)-1].n.(*pageNode)
}

func (c ChildCursor) chunkIndex() int {
	return c.path[len(c.path)-1].idx
}

// Chunk returns the chunk the cursor currently points to. Calling this
// on a dangling cursor panics; check Dangling first.
func (c ChildCursor) Chunk() Chunk {
	return c.page().chunks[c.chunkIndex()]
}

// Lookup descends the tree to the chunk covering *site, leaving *site
// holding the residual offset within that chunk (0 <= residual <
// chunk.Length). If site equals the tree's total length, Lookup returns
// a dangling cursor and leaves *site at 0.
func (t *Tree) Lookup(site *lexis.Length) ChildCursor {
	if t.root == nil {
		return ChildCursor{dangling: true}
	}
	if *site >= t.root.length() {
		*site = 0
		return ChildCursor{dangling: true}
	}

	var path []cursorStep
	cur := t.root
	remaining := *site
	for {
		switch n := cur.(type) {
		case *pageNode:
			for i, c := range n.chunks {
				if remaining < lexis.Length(c.Length) {
					path = append(path, cursorStep{n: n, idx: i})
					*site = remaining
					return ChildCursor{path: path}
				}
				remaining -= lexis.Length(c.Length)
			}
			// Shouldn't happen given the length check above, but guard
			// against float/rounding-style drift by landing on the last
			// chunk.
			path = append(path, cursorStep{n: n, idx: len(n.chunks) - 1})
			*site = 0
			return ChildCursor{path: path}

		case *branchNode:
			for i, ch := range n.children {
				if remaining < ch.length() {
					path = append(path, cursorStep{n: n, idx: i})
					cur = ch
					goto nextLevel
				}
				remaining -= ch.length()
			}
			// Fallback: descend into the last child.
			path = append(path, cursorStep{n: n, idx: len(n.children) - 1})
			cur = n.children[len(n.children)-1]
		nextLevel:
		}
	}
}

// SiteOf returns the character offset of the chunk the cursor
// identifies by walking the cursor's own path and accumulating sibling
// lengths to its left at every level — O(depth), not O(n).
func (t *Tree) SiteOf(c ChildCursor) lexis.Length {
	if c.Dangling() {
		return t.Length()
	}
	var site lexis.Length
	for _, step := range c.path {
		switch n := step.n.(type) {
		case *pageNode:
			for i := 0; i < step.idx; i++ {
				site += lexis.Length(n.chunks[i].Length)
			}
		case *branchNode:
			for i := 0; i < step.idx; i++ {
				site += n.children[i].length()
			}
		}
	}
	return site
}

// Next advances the cursor to the next chunk in document order. Moving
// past the last chunk yields a dangling cursor.
func (c ChildCursor) Next() ChildCursor {
	if c.Dangling() {
		return c
	}
	path := append([]cursorStep(nil), c.path...)
	level := len(path) - 1
	for level >= 0 {
		step := &path[level]
		if _, isPage := step.n.(*pageNode); isPage {
			if step.idx+1 < len(step.n.(*pageNode).chunks) {
				step.idx++
				return ChildCursor{path: path[:level+1]}
			}
			level--
			continue
		}
		branch := step.n.(*branchNode)
		if step.idx+1 < len(branch.children) {
			step.idx++
			return descendLeftmost(path[:level+1])
		}
		level--
	}
	return ChildCursor{dangling: true}
}

// Prev moves the cursor to the previous chunk in document order.
// Returns false if already at the first chunk.
func (c ChildCursor) Prev() (ChildCursor, bool) {
	if c.Dangling() {
		return ChildCursor{}, false
	}
	path := append([]cursorStep(nil), c.path...)
	level := len(path) - 1
	for level >= 0 {
		step := &path[level]
		if step.idx > 0 {
			step.idx--
			if _, isPage := step.n.(*pageNode); isPage {
				return ChildCursor{path: path[:level+1]}, true
			}
			return descendRightmost(path[:level+1]), true
		}
		level--
	}
	return ChildCursor{}, false
}

// descendLeftmost extends path (whose last step is a branch that was
// just advanced to a new child) down to that child's leftmost chunk.
func descendLeftmost(path []cursorStep) ChildCursor {
	last := path[len(path)-1].n.(*branchNode)
	cur := last.children[path[len(path)-1].idx]
	for {
		switch n := cur.(type) {
		case *pageNode:
			return ChildCursor{path: append(path, cursorStep{n: n, idx: 0})}
		case *branchNode:
			path = append(path, cursorStep{n: n, idx: 0})
			cur = n.children[0]
		}
	}
}

func descendRightmost(path []cursorStep) ChildCursor {
	last := path[len(path)-1].n.(*branchNode)
	cur := last.children[path[len(path)-1].idx]
	for {
		switch n := cur.(type) {
		case *pageNode:
			return ChildCursor{path: append(path, cursorStep{n: n, idx: len(n.chunks) - 1})}
		case *branchNode:
			idx := len(n.children) - 1
			path = append(path, cursorStep{n: n, idx: idx})
			cur = n.children[idx]
		}
	}
}
