package parse_test

import (
	"testing"

	"github.com/google/uuid"

	"github.com/odvcencio/increparse/grammars/json"
	"github.com/odvcencio/increparse/lexer"
	"github.com/odvcencio/increparse/lexis"
	"github.com/odvcencio/increparse/parse"
	"github.com/odvcencio/increparse/storage"
	"github.com/odvcencio/increparse/syntax"
)

// mapCache mirrors units.cacheTable, duplicated here since that type is
// unexported outside its package and parse must stay independent of
// units (units depends on parse, not the other way around).
type mapCache struct {
	m map[lexis.Site]map[syntax.Rule]*syntax.CacheEntry
}

func newMapCache() *mapCache {
	return &mapCache{m: make(map[lexis.Site]map[syntax.Rule]*syntax.CacheEntry)}
}

func (c *mapCache) Lookup(site lexis.Site, rule syntax.Rule) (*syntax.CacheEntry, bool) {
	byRule, ok := c.m[site]
	if !ok {
		return nil, false
	}
	e, ok := byRule[rule]
	return e, ok
}

func (c *mapCache) Insert(site lexis.Site, entry *syntax.CacheEntry) {
	byRule, ok := c.m[site]
	if !ok {
		byRule = make(map[syntax.Rule]*syntax.CacheEntry, 1)
		c.m[site] = byRule
	}
	byRule[entry.Rule] = entry
}

func (c *mapCache) Remove(site lexis.Site, rule syntax.Rule) {
	if byRule, ok := c.m[site]; ok {
		delete(byRule, rule)
		if len(byRule) == 0 {
			delete(c.m, site)
		}
	}
}

func (c *mapCache) Each(fn func(lexis.Site, *syntax.CacheEntry)) {
	for site, byRule := range c.m {
		for _, e := range byRule {
			fn(site, e)
		}
	}
}

func (c *mapCache) size() int {
	n := 0
	for _, byRule := range c.m {
		n += len(byRule)
	}
	return n
}

func buildTree(t *testing.T, text string) *storage.Tree {
	t.Helper()
	toks := lexis.ScanAll(json.Lexis{}, []rune(text))
	var chunks []storage.Chunk
	for _, tok := range toks {
		if tok.Kind == json.TokenEOI {
			continue
		}
		chunks = append(chunks, storage.Chunk{Token: tok.Kind, Length: lexis.Length(tok.Span.Len()), Text: tok.Text})
	}
	return storage.BuildTree(storage.DefaultBranchingFactor, chunks)
}

func TestFullParsesRoot(t *testing.T) {
	tree := buildTree(t, `{"a": 1, "b": 2}`)
	arenas := parse.NewArenas()
	ref := parse.Full(uuid.New(), json.Grammar(), tree, newMapCache(), syntax.VoidWatcher{}, arenas)

	root, ok := arenas.Nodes.Get(ref.Entry)
	if !ok {
		t.Fatal("root ref not resolvable")
	}
	obj, ok := arenas.Nodes.Get(root.(json.Root).Object.Entry)
	if !ok || len(obj.(json.Object).Entries) != 2 {
		t.Fatalf("object = %#v, want 2 entries", obj)
	}
}

func TestReparseReusesEntryNotTouchedBySplice(t *testing.T) {
	text := []rune(`{"a": 1, "b": 2, "c": 3}`)
	unit := uuid.New()
	grammar := json.Grammar()
	tree := buildTree(t, string(text))
	cache := newMapCache()
	arenas := parse.NewArenas()
	watcher := syntax.VoidWatcher{}

	rootRef := parse.Full(unit, grammar, tree, cache, watcher, arenas)
	root, _ := arenas.Nodes.Get(rootRef.Entry)
	objBefore, _ := arenas.Nodes.Get(root.(json.Root).Object.Entry)
	entriesBefore := objBefore.(json.Object).Entries
	cEntryRefBefore := entriesBefore[2]

	entriesBeforeCache := cache.size()
	if entriesBeforeCache == 0 {
		t.Fatal("expected Full to populate the cache")
	}

	// Site 14 is the '2' in "b": 2; replace it with "99".
	editSpan := lexis.Span{Start: 14, End: 15}
	newText, newTree, splice := lexer.Relex(json.Lexis{}, text, tree, editSpan, []rune("99"), lexer.DefaultConfig())

	newRootRef := parse.Reparse(unit, grammar, newTree, cache, watcher, arenas, rootRef, parse.Splice{
		OldSpan: splice.OldSpan,
		Delta:   splice.Delta,
	})

	if newRootRef != rootRef {
		t.Fatalf("Reparse changed the root ref: %v vs %v", newRootRef, rootRef)
	}
	if got, want := string(newText), `{"a": 1, "b": 99, "c": 3}`; got != want {
		t.Fatalf("relexed text = %q, want %q", got, want)
	}

	rootAfter, _ := arenas.Nodes.Get(rootRef.Entry)
	objAfter, _ := arenas.Nodes.Get(rootAfter.(json.Root).Object.Entry)
	entriesAfter := objAfter.(json.Object).Entries
	if entriesAfter[2] != cEntryRefBefore {
		t.Fatalf("entry 'c' ref changed across an edit that never touched it: %v vs %v", entriesAfter[2], cEntryRefBefore)
	}
}

func TestReparseFallsBackToFullWithEmptyCache(t *testing.T) {
	text := []rune(`{"a": 1}`)
	unit := uuid.New()
	grammar := json.Grammar()
	tree := buildTree(t, string(text))
	arenas := parse.NewArenas()
	watcher := syntax.VoidWatcher{}

	// Parse once to get a root ref, then discard the cache entirely so
	// Reparse has nothing to reuse.
	rootRef := parse.Full(unit, grammar, tree, newMapCache(), watcher, arenas)

	editSpan := lexis.Span{Start: 6, End: 7}
	newText, newTree, splice := lexer.Relex(json.Lexis{}, text, tree, editSpan, []rune("2"), lexer.DefaultConfig())

	emptyCache := newMapCache()
	newRootRef := parse.Reparse(unit, grammar, newTree, emptyCache, watcher, arenas, rootRef, parse.Splice{
		OldSpan: splice.OldSpan,
		Delta:   splice.Delta,
	})

	node, ok := arenas.Nodes.Get(newRootRef.Entry)
	if !ok {
		t.Fatal("fallback-to-full reparse produced an unresolvable root")
	}
	if got, want := string(newText), `{"a": 2}`; got != want {
		t.Fatalf("relexed text = %q, want %q", got, want)
	}
	obj, ok := arenas.Nodes.Get(node.(json.Root).Object.Entry)
	if !ok || len(obj.(json.Object).Entries) != 1 {
		t.Fatalf("object after fallback full reparse = %#v, want 1 entry", obj)
	}
}

func TestReparseDestroysEntryAnchoredInsideSplice(t *testing.T) {
	text := []rune(`{"a": 1, "b": 2}`)
	unit := uuid.New()
	grammar := json.Grammar()
	tree := buildTree(t, string(text))
	cache := newMapCache()
	arenas := parse.NewArenas()

	var removed []syntax.NodeRef
	watcher := &recordingWatcher{onRemoved: func(ref syntax.NodeRef) { removed = append(removed, ref) }}

	rootRef := parse.Full(unit, grammar, tree, cache, watcher, arenas)

	// Delete the whole ", "b": 2" entry (sites 7 through 15), leaving the
	// closing brace from the first entry's object intact.
	editSpan := lexis.Span{Start: 7, End: 15}
	_, newTree, splice := lexer.Relex(json.Lexis{}, text, tree, editSpan, nil, lexer.DefaultConfig())

	parse.Reparse(unit, grammar, newTree, cache, watcher, arenas, rootRef, parse.Splice{
		OldSpan: splice.OldSpan,
		Delta:   splice.Delta,
	})

	if len(removed) == 0 {
		t.Fatal("expected at least one ReportNodeRemoved for the deleted entry")
	}
}

type recordingWatcher struct {
	onRemoved func(syntax.NodeRef)
}

func (w *recordingWatcher) ReportNode(syntax.NodeRef, syntax.Node)  {}
func (w *recordingWatcher) ReportError(syntax.ErrorRef, syntax.SyntaxError) {}
func (w *recordingWatcher) ReportNodeRemoved(ref syntax.NodeRef) {
	if w.onRemoved != nil {
		w.onRemoved(ref)
	}
}
func (w *recordingWatcher) ReportErrorRemoved(syntax.ErrorRef) {}
