package lexer

import (
	"github.com/odvcencio/increparse/lexis"
	"github.com/odvcencio/increparse/storage"
)

// step is one token produced during the post-divergence rescan, paired
// with the old chunk occupying the same ordinal position (if any).
type step struct {
	newChunk      storage.Chunk
	newSiteBefore lexis.Site
	oldSiteBefore lexis.Site
}

// Splice describes, in terms of the OLD tree, the region Relex actually
// rewrote: [OldSpan.Start, OldSpan.End) of the previous chunk stream was
// discarded and replaced by a run of new chunks Delta longer (or
// shorter, if negative). package parse's Reparse uses this to find and
// shift surviving cache entries.
type Splice struct {
	OldSpan lexis.Span
	Delta   int
}

// Relex recomputes the chunks affected by replacing the text in
// editSpan with replacement: rescan from a lookback-widened entry
// point, find the divergent window, resync, splice. It returns the new
// full text, the new storage tree, and the Splice describing what
// changed.
//
// grammar.Lookback() bounds how far before editSpan rescanning must
// begin (the declared maximum lookback). cfg.ResyncWindow (W) bounds how
// many consecutive re-matching tokens close the divergent window.
//
// After divergence each new token is compared with the next old chunk
// in order, one for one. When an edit changes the number of tokens, the
// two streams stay offset by that many chunks and no later token meets
// the position condition. The splice then runs from the divergence
// point to the end of the document.
func Relex(
	grammar lexis.Grammar,
	oldText []rune,
	oldTree *storage.Tree,
	editSpan lexis.Span,
	replacement []rune,
	cfg Config,
) ([]rune, *storage.Tree, Splice) {
	newText := make([]rune, 0, len(oldText)-int(editSpan.Len())+len(replacement))
	newText = append(newText, oldText[:editSpan.Start]...)
	newText = append(newText, replacement...)
	newText = append(newText, oldText[editSpan.End:]...)
	delta := len(newText) - len(oldText)

	entry := rescanEntrySite(oldTree, lexis.Length(grammar.Lookback()), editSpan.Start)

	scanner := lexis.NewScanner(grammar, newText)
	oldCursor, oldSite := cursorAt(oldTree, entry)

	wordAlign := grammarWantsWordAlign(grammar, cfg)
	var bounds map[lexis.Site]bool
	if wordAlign {
		bounds = wordBoundaries(newText)
	}

	newPos := int(entry)
	diverged := false
	var divergeOldSite lexis.Site
	var steps []step
	matchRun := 0
	required := cfg.ResyncWindow
	if required < 1 {
		required = 1
	}

	for {
		tok, next := scanner.Next(newPos)
		isEOI := tok.Kind == grammar.EOI()

		var oldChunk storage.Chunk
		hadOldChunk := !oldCursor.Dangling()
		if hadOldChunk {
			oldChunk = oldCursor.Chunk()
		}

		if !diverged {
			same := hadOldChunk && tok.Kind == oldChunk.Token && lexis.Length(tok.Span.Len()) == oldChunk.Length && tok.Text == oldChunk.Text
			if same && !isEOI {
				oldSite += oldChunk.Length
				oldCursor = oldCursor.Next()
				newPos = next
				continue
			}
			diverged = true
			divergeOldSite = oldSite
		}

		if isEOI {
			// Ran off the end of either stream without a clean resync:
			// everything from divergence to the document end is replaced.
			oldSpan := lexis.Span{Start: divergeOldSite, End: oldTree.Length()}
			newTree := spliceResult(oldTree, oldSpan.Start, oldSpan.End, steps, nil)
			return newText, newTree, Splice{OldSpan: oldSpan, Delta: int(newTree.Length()) - int(oldTree.Length())}
		}

		// A post-divergence match only counts toward the resync run if
		// the two tokens also sit at corresponding positions (new ==
		// old + delta). Without that, a token-count-changing edit (two
		// chunks merging into one) could resync while the streams are
		// offset by a token, splicing a tree whose text disagrees with
		// the document.
		same := hadOldChunk && tok.Kind == oldChunk.Token && lexis.Length(tok.Span.Len()) == oldChunk.Length &&
			tok.Text == oldChunk.Text && newPos == int(oldSite)+delta
		steps = append(steps, step{
			newChunk:      storage.Chunk{Token: tok.Kind, Length: lexis.Length(tok.Span.Len()), Text: tok.Text},
			newSiteBefore: lexis.Site(newPos),
			oldSiteBefore: oldSite,
		})

		if same {
			matchRun++
		} else {
			matchRun = 0
		}

		if hadOldChunk {
			oldSite += oldChunk.Length
			oldCursor = oldCursor.Next()
		}
		newPos = next

		if matchRun >= required {
			runStart := steps[len(steps)-matchRun]
			if wordAlign && !bounds[runStart.newSiteBefore] {
				// Don't accept a resync that splits a word; keep
				// scanning for the next candidate boundary.
				required++
				continue
			}
			oldSpan := lexis.Span{Start: divergeOldSite, End: runStart.oldSiteBefore}
			newTree := spliceResult(oldTree, oldSpan.Start, oldSpan.End, steps[:len(steps)-matchRun], nil)
			return newText, newTree, Splice{OldSpan: oldSpan, Delta: int(newTree.Length()) - int(oldTree.Length())}
		}
	}
}

// rescanEntrySite finds the chunk containing editStart-L (clamped to 0)
// and returns its start site as the rescan entry cursor, or the tree
// length when that site is at the end, so a scanner that peeks backward
// re-reads enough context.
func rescanEntrySite(tree *storage.Tree, lookback lexis.Length, editStart lexis.Site) lexis.Site {
	var target lexis.Site
	if lexis.Site(lookback) > editStart {
		target = 0
	} else {
		target = editStart - lexis.Site(lookback)
	}
	if tree.Length() == 0 {
		return 0
	}
	residual := lexis.Length(target)
	cursor := tree.Lookup(&residual)
	if cursor.Dangling() {
		return tree.Length()
	}
	return target - lexis.Site(residual)
}

// cursorAt returns a cursor positioned at the chunk starting at site,
// along with that site (site is assumed to already be a chunk boundary,
// as produced by rescanEntrySite).
func cursorAt(tree *storage.Tree, site lexis.Site) (storage.ChildCursor, lexis.Site) {
	residual := lexis.Length(site)
	cursor := tree.Lookup(&residual)
	return cursor, site - lexis.Site(residual)
}

func spliceResult(oldTree *storage.Tree, oldSpanStart, oldSpanEnd lexis.Site, steps []step, splitter storage.ChunkSplitter) *storage.Tree {
	chunks := make([]storage.Chunk, len(steps))
	for i, s := range steps {
		chunks[i] = s.newChunk
	}
	span := lexis.Span{Start: oldSpanStart, End: oldSpanEnd}
	return oldTree.Write(span, chunks, splitter)
}
