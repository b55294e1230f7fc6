// Package parse implements the recursive-descent parse engine that
// drives a syntax.Grammar's productions through a syntax.Session: a
// first full parse from the root rule, and the incremental reparse
// algorithm that replays only the rule whose cached span was
// invalidated by a lexer splice.
package parse

import (
	"sort"

	"github.com/odvcencio/increparse/arena"
	"github.com/odvcencio/increparse/internal/obslog"
	"github.com/odvcencio/increparse/lexis"
	"github.com/odvcencio/increparse/storage"
	"github.com/odvcencio/increparse/syntax"
)

// Arenas bundles the three node/error/token arenas a Unit owns across
// its lifetime, so a reparse can keep writing into the same slots a
// previous parse allocated.
type Arenas struct {
	Nodes  *arena.Repo[syntax.Node]
	Errors *arena.Repo[syntax.SyntaxError]
	Tokens *arena.Repo[lexis.Token]
}

// NewArenas returns a fresh, empty Arenas set.
func NewArenas() Arenas {
	return Arenas{
		Nodes:  arena.New[syntax.Node](),
		Errors: arena.New[syntax.SyntaxError](),
		Tokens: arena.New[lexis.Token](),
	}
}

// NewArenasWithSlab returns a fresh Arenas set whose node and token
// repos are pre-sized to slab slots (errors stay unsized — a healthy
// document has none). Zero slab behaves like NewArenas.
func NewArenasWithSlab(slab int) Arenas {
	if slab <= 0 {
		return NewArenas()
	}
	return Arenas{
		Nodes:  arena.NewWithCapacity[syntax.Node](slab),
		Errors: arena.New[syntax.SyntaxError](),
		Tokens: arena.NewWithCapacity[lexis.Token](slab),
	}
}

// Full performs a complete parse of tree from site 0, descending the
// grammar's root rule. Used for the initial parse of a unit and as the
// Reparse fallback when no surviving cache entry covers the splice.
func Full(unit syntax.UnitID, grammar syntax.Grammar, tree *storage.Tree, cache syntax.CacheTable, watcher syntax.Watcher, arenas Arenas) syntax.NodeRef {
	session := syntax.NewSessionWithArenas(unit, grammar, tree, cache, watcher, 0, arenas.Nodes, arenas.Errors, arenas.Tokens)
	return session.Descend(grammar.RootRule)
}

// Splice describes what lexer.Relex changed about the tree, as needed by
// Reparse's cache-invalidation walk.
type Splice struct {
	// OldSpan is the [start,end) region of the PREVIOUS tree that was
	// replaced.
	OldSpan lexis.Span
	// Delta is newChunksLength - OldSpan.Len(): how far sites at or past
	// OldSpan.End shift in the new tree.
	Delta int
}

func (s Splice) newSpan() lexis.Span {
	newLen := int(s.OldSpan.Len()) + s.Delta
	if newLen < 0 {
		newLen = 0
	}
	return lexis.Span{Start: s.OldSpan.Start, End: s.OldSpan.Start + lexis.Site(newLen)}
}

func shiftSite(site lexis.Site, splice Splice) lexis.Site {
	if site < splice.OldSpan.End {
		return site
	}
	shifted := int(site) + splice.Delta
	if shifted < 0 {
		shifted = 0
	}
	return lexis.Site(shifted)
}

// cacheKey identifies one (anchor site, rule) cache entry — the
// granularity syntax.CacheTable.Remove operates at, since a rule and the
// first child it immediately descends into commonly share an anchor
// site.
type cacheKey struct {
	site lexis.Site
	rule syntax.Rule
}

// Reparse brings the parse tree back in step with the already-spliced
// newTree. Cache entries sort into four fates:
//
//   - destroyed — the anchor chunk was removed, or the entry overlaps
//     the splice without covering it: its nodes and errors are released
//     from the arenas (so stale refs stop resolving) and reported to
//     the watcher as removed;
//   - best — the innermost entry covering the splice: its rule is
//     replayed via ReparseAt, reusing its primary NodeRef so ancestors
//     that captured it keep resolving, while the rest of its old
//     subtree is released like a destroyed entry's;
//   - silent — covering ancestors of best: their node values stay
//     current (the rebuilt subtree lands in the reused primary slot),
//     so they are carried over with shifted coordinates and their
//     ownership lists trimmed to refs that survived;
//   - relocated — entries past the splice: carried over with their
//     sites and ParseEnd snapshots shifted by Delta.
//
// If nothing covers the splice, this falls back to a full reparse.
func Reparse(
	unit syntax.UnitID,
	grammar syntax.Grammar,
	newTree *storage.Tree,
	cache syntax.CacheTable,
	watcher syntax.Watcher,
	arenas Arenas,
	rootRef syntax.NodeRef,
	splice Splice,
) syntax.NodeRef {
	if watcher == nil {
		watcher = syntax.VoidWatcher{}
	}

	type survivor struct {
		key        cacheKey
		newAnchor  lexis.Site
		newCovered lexis.Site
		entry      *syntax.CacheEntry
	}

	type doomed struct {
		key   cacheKey
		entry *syntax.CacheEntry
	}

	var destroyed []doomed // freed: nodes/errors released, reported removed
	var kept []*syntax.CacheEntry
	var silent []struct {
		key           cacheKey
		newAnchor     lexis.Site
		newCoveredEnd lexis.Site
		entry         *syntax.CacheEntry
	} // overlaps the splice but still covers it: node value unaffected, not reported removed
	var relocate []struct {
		key     cacheKey
		newSite lexis.Site
		entry   *syntax.CacheEntry
	}
	var best *survivor

	newSpliceSpan := splice.newSpan()

	cache.Each(func(anchorSite lexis.Site, entry *syntax.CacheEntry) {
		k := cacheKey{site: anchorSite, rule: entry.Rule}

		anchorRemoved := anchorSite >= splice.OldSpan.Start && anchorSite < splice.OldSpan.End
		if anchorRemoved {
			destroyed = append(destroyed, doomed{key: k, entry: entry})
			return
		}

		oldSpan := lexis.Span{Start: entry.AnchorSite, End: entry.CoveredEnd}
		if !oldSpan.Intersects(splice.OldSpan) {
			newAnchor := shiftSite(entry.AnchorSite, splice)
			newCoveredEnd := shiftSite(entry.CoveredEnd, splice)
			if newAnchor != entry.AnchorSite || newCoveredEnd != entry.CoveredEnd {
				copyEntry := *entry
				copyEntry.AnchorSite = newAnchor
				copyEntry.CoveredEnd = newCoveredEnd
				relocate = append(relocate, struct {
					key     cacheKey
					newSite lexis.Site
					entry   *syntax.CacheEntry
				}{k, newAnchor, &copyEntry})
				kept = append(kept, &copyEntry)
			} else {
				kept = append(kept, entry)
			}
			return
		}

		// Entry overlaps the splice. If its (shifted) span still fully
		// covers the new splice span, it's a candidate reparse root —
		// its node value survives untouched (or gets rebuilt in place by
		// ReparseAt), so this is a silent cache eviction, not a node
		// removal. Otherwise the edit broke this entry's own boundary
		// (e.g. a new sibling entry spliced in where this one ended) and
		// it cannot be salvaged.
		newAnchor := shiftSite(entry.AnchorSite, splice)
		newCoveredEnd := shiftSite(entry.CoveredEnd, splice)
		survivorSpan := lexis.Span{Start: newAnchor, End: newCoveredEnd}
		if survivorSpan.Covers(newSpliceSpan) {
			silent = append(silent, struct {
				key           cacheKey
				newAnchor     lexis.Site
				newCoveredEnd lexis.Site
				entry         *syntax.CacheEntry
			}{k, newAnchor, newCoveredEnd, entry})
			// Among covering entries, always prefer the deepest anchor
			// (the greatest start site). Entries sharing an anchor (a rule
			// and the first child it descends into) tie-break on recorded
			// nesting depth, since their spans can coincide exactly.
			// Covering entries nest by construction, so two candidates
			// whose spans merely overlap point at a grammar bug worth
			// surfacing.
			if best != nil && !survivorSpan.Covers(lexis.Span{Start: best.newAnchor, End: best.newCovered}) &&
				!(lexis.Span{Start: best.newAnchor, End: best.newCovered}).Covers(survivorSpan) {
				obslog.Warn("sibling cache entries both cover a splice",
					"rule_a", best.entry.Rule, "span_a", lexis.Span{Start: best.newAnchor, End: best.newCovered},
					"rule_b", entry.Rule, "span_b", survivorSpan)
			}
			if best == nil || newAnchor > best.newAnchor ||
				(newAnchor == best.newAnchor && entry.Depth > best.entry.Depth) {
				best = &survivor{key: k, newAnchor: newAnchor, newCovered: newCoveredEnd, entry: entry}
			}
			return
		}
		destroyed = append(destroyed, doomed{key: k, entry: entry})
	})

	// Nodes and errors are dropped when their owning cache entry is
	// freed, but a ref can be listed by several nested entries at
	// once: a destroyed inner entry's whole subtree appears again in
	// every ancestor's secondary list. Build the set of refs that stay
	// reachable in the new tree — everything owned by entries that
	// remain live in the table, the primaries of covering ancestors
	// whose node values survive untouched, and the primary the reparse
	// reuses in place — and release only what falls outside it.
	keepNodes := make(map[arena.Entry]bool)
	keepErrors := make(map[arena.Entry]bool)
	keepAll := func(e *syntax.CacheEntry) {
		keepNodes[e.PrimaryNode.Entry] = true
		for _, n := range e.SecondaryNodes {
			keepNodes[n.Entry] = true
		}
		for _, er := range e.Errors {
			keepErrors[er.Entry] = true
		}
	}
	for _, e := range kept {
		keepAll(e)
	}
	// Covering entries keep only their primary: the ancestor's node
	// value survives the rebuild untouched, but everything beneath it
	// that isn't protected by a kept inner entry is being replaced.
	for _, s := range silent {
		keepNodes[s.entry.PrimaryNode.Entry] = true
	}

	// Release inner entries before their ancestors so deletion events
	// reach the watcher children-first; within one entry the secondary
	// list is already in post-order.
	sort.Slice(destroyed, func(i, j int) bool {
		return destroyed[i].entry.AnchorSite > destroyed[j].entry.AnchorSite
	})
	for _, d := range destroyed {
		freeEntry(watcher, arenas, d.entry, true, keepNodes, keepErrors)
		cache.Remove(d.key.site, d.key.rule)
	}
	if best != nil {
		// The reused subtree is rebuilt from scratch by ReparseAt below;
		// everything it produced last time dies now, except the primary
		// slot ReparseAt writes in place and whatever kept inner entries
		// will stitch back.
		freeEntry(watcher, arenas, best.entry, false, keepNodes, keepErrors)
	}
	for _, s := range silent {
		cache.Remove(s.key.site, s.key.rule)
		// best's own entry is rebuilt (and reinserted) by ReparseAt/
		// LeaveCache below; every other covering ancestor's node value
		// is still current (its children refs are stable — the rebuilt
		// subtree is written into the reused primary slot), so keep it
		// live rather than forcing every future edit under it back to a
		// full reparse. Its bookkeeping has to catch up with the new
		// tree first: coordinates and the ParseEnd snapshot shift by
		// Delta, and refs the rebuild just released drop out of its
		// ownership lists (the rebuilt subtree's refs are owned by the
		// entry ReparseAt reinstalls).
		if best != nil && s.key == best.key {
			continue
		}
		copyEntry := *s.entry
		copyEntry.AnchorSite = s.newAnchor
		copyEntry.CoveredEnd = s.newCoveredEnd
		shiftParseEnd(arenas, &copyEntry, splice)
		copyEntry.SecondaryNodes = liveNodeRefs(arenas, copyEntry.SecondaryNodes)
		copyEntry.Errors = liveErrorRefs(arenas, copyEntry.Errors)
		cache.Insert(s.newAnchor, &copyEntry)
	}
	for _, r := range relocate {
		cache.Remove(r.key.site, r.key.rule)
		shiftParseEnd(arenas, r.entry, splice)
		cache.Insert(r.newSite, r.entry)
	}

	if best == nil {
		return Full(unit, grammar, newTree, cache, watcher, arenas)
	}

	session := syntax.NewSessionWithArenas(unit, grammar, newTree, cache, watcher, best.newAnchor, arenas.Nodes, arenas.Errors, arenas.Tokens)
	session.ReparseAt(best.entry.Rule, best.entry.PrimaryNode, best.entry.Depth)

	// rootRef's arena slot is untouched by a sub-root reparse (ReparseAt
	// reuses best.entry.PrimaryNode's slot in place), so the document's
	// root ref is still correct even though a descendant was rebuilt.
	return rootRef
}

// shiftParseEnd rewrites entry's ParseEnd token snapshot into
// post-splice coordinates so a later cache hit's jump lands on the
// right chunk of the new tree. The snapshot slot is owned by exactly
// one cache entry (LeaveCache mints a fresh ref per entry), so updating
// it in place can't disturb unrelated token refs.
func shiftParseEnd(arenas Arenas, entry *syntax.CacheEntry, splice Splice) {
	tok, ok := arenas.Tokens.Get(entry.ParseEnd.Entry)
	if !ok {
		return
	}
	shifted := lexis.Span{
		Start: shiftSite(tok.Span.Start, splice),
		End:   shiftSite(tok.Span.End, splice),
	}
	if shifted == tok.Span {
		return
	}
	tok.Span = shifted
	arenas.Tokens.Update(entry.ParseEnd.Entry, tok)
}

func liveNodeRefs(arenas Arenas, refs []syntax.NodeRef) []syntax.NodeRef {
	out := make([]syntax.NodeRef, 0, len(refs))
	for _, r := range refs {
		if arenas.Nodes.Contains(r.Entry) {
			out = append(out, r)
		}
	}
	return out
}

func liveErrorRefs(arenas Arenas, refs []syntax.ErrorRef) []syntax.ErrorRef {
	out := make([]syntax.ErrorRef, 0, len(refs))
	for _, r := range refs {
		if arenas.Errors.Contains(r.Entry) {
			out = append(out, r)
		}
	}
	return out
}

// freeEntry releases a cache entry's nodes and errors from the arenas,
// reporting each actual removal to the watcher. Refs in the keep sets
// (still reachable in the new tree) are skipped; refs shared between
// nested entries are released at most once since arena.Repo.Remove
// reports false for an already-freed slot.
func freeEntry(
	watcher syntax.Watcher,
	arenas Arenas,
	entry *syntax.CacheEntry,
	includePrimary bool,
	keepNodes, keepErrors map[arena.Entry]bool,
) {
	for _, n := range entry.SecondaryNodes {
		if keepNodes[n.Entry] {
			continue
		}
		if _, ok := arenas.Nodes.Remove(n.Entry); ok {
			watcher.ReportNodeRemoved(n)
		}
	}
	for _, e := range entry.Errors {
		if keepErrors[e.Entry] {
			continue
		}
		if _, ok := arenas.Errors.Remove(e.Entry); ok {
			watcher.ReportErrorRemoved(e)
		}
	}
	if includePrimary && !keepNodes[entry.PrimaryNode.Entry] {
		if _, ok := arenas.Nodes.Remove(entry.PrimaryNode.Entry); ok {
			watcher.ReportNodeRemoved(entry.PrimaryNode)
		}
	}
}
