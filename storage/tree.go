package storage

import "github.com/odvcencio/increparse/lexis"

// DefaultBranchingFactor (B) bounds page/branch fan-out at 2B-1.
const DefaultBranchingFactor = 16

// Tree is a persistent two-level B+ tree of chunks: height-balanced,
// dual-indexed by chunk count and character length.
//
// Unlike the syntax tree (package syntax's Node graph), chunks
// in this tree are never referenced from outside except through a
// ChildCursor's own root-to-leaf path, so there is no parent/child
// reference cycle to break with arena indices here, unlike syntax.Node
// — plain Go pointers between branch and child nodes are sufficient
// and simpler.
type Tree struct {
	b    int
	root node // nil for an empty tree
}

// NewEmptyTree returns the empty-tree sentinel.
func NewEmptyTree(b int) *Tree {
	if b < 2 {
		b = DefaultBranchingFactor
	}
	return &Tree{b: b}
}

// BuildTree bulk-loads a Tree from an ordered chunk slice. Used by unit
// and TokenBuffer construction and by Write for a splice's replacement
// chunks.
func BuildTree(b int, chunks []Chunk) *Tree {
	t := NewEmptyTree(b)
	if len(chunks) == 0 {
		return t
	}
	pages := distribute(chunks, t.maxChunks(), func(cs []Chunk) node { return newPage(cs) })
	t.root = layer(pages, t.maxChildren())
	return t
}

func (t *Tree) maxChunks() int   { return 2*t.b - 1 }
func (t *Tree) maxChildren() int { return 2*t.b - 1 }

// Length returns the total character length of the tree's text.
func (t *Tree) Length() lexis.Length {
	if t.root == nil {
		return 0
	}
	return t.root.length()
}

// ChunkCount returns the total number of chunks in the tree.
func (t *Tree) ChunkCount() uint32 {
	if t.root == nil {
		return 0
	}
	return t.root.count()
}

// distribute groups items into ceil(len/max) buckets whose sizes differ
// by at most one (the larger ones first), each of size <= max, and
// wraps each bucket with make. Items that fit in one bucket stay in a
// single bucket however few they are.
func distribute[T any](items []T, max int, make_ func([]T) node) []node {
	if len(items) == 0 {
		return nil
	}
	if len(items) <= max {
		return []node{make_(items)}
	}
	numBuckets := (len(items) + max - 1) / max
	base := len(items) / numBuckets
	rem := len(items) % numBuckets
	out := make([]node, 0, numBuckets)
	idx := 0
	for i := 0; i < numBuckets; i++ {
		sz := base
		if i < rem {
			sz++
		}
		out = append(out, make_(items[idx:idx+sz]))
		idx += sz
	}
	return out
}

// layer wraps a slice of same-height nodes into a single node, adding
// branch levels as needed until one root node remains, which keeps all
// leaves at equal depth by construction.
func layer(nodes []node, maxChildren int) node {
	for len(nodes) > 1 {
		groups := distribute(nodes, maxChildren, func(ns []node) node { return newBranch(ns) })
		nodes = groups
	}
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}
