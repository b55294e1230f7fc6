package storage

import (
	"testing"

	"github.com/odvcencio/increparse/lexis"
)

func mkChunks(words ...string) []Chunk {
	chunks := make([]Chunk, len(words))
	for i, w := range words {
		chunks[i] = Chunk{Token: lexis.TokenKind(1), Length: lexis.Length(len(w)), Text: w}
	}
	return chunks
}

func collectText(t *Tree) string {
	var out string
	var site lexis.Length
	c := t.Lookup(&site)
	for !c.Dangling() {
		out += c.Chunk().Text
		c = c.Next()
	}
	return out
}

func TestSplitAtBoundary(t *testing.T) {
	tree := BuildTree(2, mkChunks("ab", "cd", "ef", "gh"))
	left, right := tree.SplitAt(4, nil)
	if got := collectText(left); got != "abcd" {
		t.Fatalf("left = %q, want abcd", got)
	}
	if got := collectText(right); got != "efgh" {
		t.Fatalf("right = %q, want efgh", got)
	}
	if left.Length() != 4 || right.Length() != 4 {
		t.Fatalf("lengths = %d,%d want 4,4", left.Length(), right.Length())
	}
}

func TestSplitAtMidChunk(t *testing.T) {
	tree := BuildTree(2, mkChunks("abcd", "efgh"))
	left, right := tree.SplitAt(3, nil)
	if got := collectText(left); got != "abc" {
		t.Fatalf("left = %q, want abc", got)
	}
	if got := collectText(right); got != "defgh" {
		t.Fatalf("right = %q, want defgh", got)
	}
}

func TestSplitAtEdges(t *testing.T) {
	tree := BuildTree(2, mkChunks("ab", "cd"))
	left, right := tree.SplitAt(0, nil)
	if left.Length() != 0 || collectText(right) != "abcd" {
		t.Fatalf("split at 0 broken: left=%d right=%q", left.Length(), collectText(right))
	}
	left2, right2 := tree.SplitAt(4, nil)
	if right2.Length() != 0 || collectText(left2) != "abcd" {
		t.Fatalf("split at end broken: left=%q right=%d", collectText(left2), right2.Length())
	}
}

func TestJoinRoundTrip(t *testing.T) {
	full := BuildTree(2, mkChunks("ab", "cd", "ef", "gh", "ij", "kl"))
	left, right := full.SplitAt(6, nil)
	joined := left.Join(right)
	if got, want := collectText(joined), collectText(full); got != want {
		t.Fatalf("joined text = %q, want %q", got, want)
	}
	if joined.Length() != full.Length() || joined.ChunkCount() != full.ChunkCount() {
		t.Fatalf("joined aggregates mismatch: len=%d cnt=%d want len=%d cnt=%d",
			joined.Length(), joined.ChunkCount(), full.Length(), full.ChunkCount())
	}
}

func TestJoinUnevenHeights(t *testing.T) {
	big := BuildTree(2, mkChunks("a1", "a2", "a3", "a4", "a5", "a6", "a7", "a8", "a9", "a0"))
	small := BuildTree(2, mkChunks("zz"))
	joined := big.Join(small)
	want := collectText(big) + collectText(small)
	if got := collectText(joined); got != want {
		t.Fatalf("joined = %q, want %q", got, want)
	}
	if joined.Length() != big.Length()+small.Length() {
		t.Fatalf("length mismatch after uneven join")
	}
}

func TestWriteReplacesSpan(t *testing.T) {
	tree := BuildTree(2, mkChunks("ab", "cd", "ef", "gh"))
	replacement := mkChunks("XY")
	out := tree.Write(lexis.Span{Start: 2, End: 6}, replacement, nil)
	if got, want := collectText(out), "abXYgh"; got != want {
		t.Fatalf("write result = %q, want %q", got, want)
	}
}

func TestWriteInsertAtSite(t *testing.T) {
	tree := BuildTree(2, mkChunks("ab", "cd"))
	out := tree.Write(lexis.Span{Start: 2, End: 2}, mkChunks("!!"), nil)
	if got, want := collectText(out), "ab!!cd"; got != want {
		t.Fatalf("insert result = %q, want %q", got, want)
	}
}

func TestWriteDeleteSpan(t *testing.T) {
	tree := BuildTree(2, mkChunks("ab", "cd", "ef"))
	out := tree.Write(lexis.Span{Start: 2, End: 4}, nil, nil)
	if got, want := collectText(out), "abef"; got != want {
		t.Fatalf("delete result = %q, want %q", got, want)
	}
}

func TestLookupAndSiteOfRoundTrip(t *testing.T) {
	tree := BuildTree(2, mkChunks("ab", "cd", "ef", "gh"))
	for _, site := range []lexis.Length{0, 1, 2, 3, 4, 5, 6, 7} {
		s := site
		c := tree.Lookup(&s)
		if c.Dangling() {
			t.Fatalf("site %d: unexpected dangling cursor", site)
		}
		chunkStart := site - s
		if got := tree.SiteOf(c); got != chunkStart {
			t.Errorf("site %d: SiteOf = %d, want %d", site, got, chunkStart)
		}
	}
	s := lexis.Length(8)
	if !tree.Lookup(&s).Dangling() {
		t.Fatalf("site at tree length should be dangling")
	}
}

func TestCursorNextPrevTraversal(t *testing.T) {
	words := []string{"a1", "a2", "a3", "a4", "a5", "a6", "a7", "a8", "a9", "b0"}
	tree := BuildTree(2, mkChunks(words...))
	var site lexis.Length
	c := tree.Lookup(&site)
	var forward []string
	for !c.Dangling() {
		forward = append(forward, c.Chunk().Text)
		c = c.Next()
	}
	if len(forward) != len(words) {
		t.Fatalf("forward walk got %d chunks, want %d", len(forward), len(words))
	}
	for i, w := range words {
		if forward[i] != w {
			t.Errorf("forward[%d] = %q, want %q", i, forward[i], w)
		}
	}

	site = tree.Length() - 1
	c = tree.Lookup(&site)
	var backward []string
	backward = append(backward, c.Chunk().Text)
	for {
		prev, ok := c.Prev()
		if !ok {
			break
		}
		c = prev
		backward = append(backward, c.Chunk().Text)
	}
	if len(backward) != len(words) {
		t.Fatalf("backward walk got %d chunks, want %d", len(backward), len(words))
	}
	for i := 0; i < len(words); i++ {
		if backward[i] != words[len(words)-1-i] {
			t.Errorf("backward[%d] = %q, want %q", i, backward[i], words[len(words)-1-i])
		}
	}
}
