package json

import (
	"errors"
	"strings"
	"testing"

	"github.com/odvcencio/increparse/lexer"
	"github.com/odvcencio/increparse/lexis"
	"github.com/odvcencio/increparse/syntax"
	"github.com/odvcencio/increparse/units"
)

// resolver is the common surface MutableUnit and ImmutableUnit both
// expose, enough to walk a parsed tree structurally.
type resolver interface {
	ResolveNode(syntax.NodeRef) (syntax.Node, bool)
	ResolveToken(syntax.TokenRef) (lexis.Token, bool)
}

// structurallyEqual compares two node refs (possibly from different
// units) by rule, token text, and shape, ignoring NodeRef/arena
// identity: same rules, same captures, same values, regardless of
// which arena slots hold them.
func structurallyEqual(ra resolver, na syntax.NodeRef, rb resolver, nb syntax.NodeRef) bool {
	nodeA, okA := ra.ResolveNode(na)
	nodeB, okB := rb.ResolveNode(nb)
	if okA != okB {
		return false
	}
	if !okA {
		return true
	}
	if nodeA.Rule() != nodeB.Rule() {
		return false
	}

	switch a := nodeA.(type) {
	case Root:
		b := nodeB.(Root)
		return structurallyEqual(ra, a.Object, rb, b.Object)
	case Object:
		b := nodeB.(Object)
		if len(a.Entries) != len(b.Entries) {
			return false
		}
		for i := range a.Entries {
			if !structurallyEqual(ra, a.Entries[i], rb, b.Entries[i]) {
				return false
			}
		}
		return true
	case Entry:
		b := nodeB.(Entry)
		ta, _ := ra.ResolveToken(a.Key)
		tb, _ := rb.ResolveToken(b.Key)
		if ta.Text != tb.Text {
			return false
		}
		return structurallyEqual(ra, a.Value, rb, b.Value)
	case Array:
		b := nodeB.(Array)
		if len(a.Items) != len(b.Items) {
			return false
		}
		for i := range a.Items {
			if !structurallyEqual(ra, a.Items[i], rb, b.Items[i]) {
				return false
			}
		}
		return true
	case String:
		b := nodeB.(String)
		ta, _ := ra.ResolveToken(a.Value)
		tb, _ := rb.ResolveToken(b.Value)
		return ta.Text == tb.Text
	case Number:
		b := nodeB.(Number)
		ta, _ := ra.ResolveToken(a.Value)
		tb, _ := rb.ResolveToken(b.Value)
		return ta.Text == tb.Text
	case True, False, Null:
		return true
	default:
		return false
	}
}

// countingWatcher tallies ReportNode calls, for asserting an edit's
// reparse touched roughly the ancestor chain and not the whole tree.
type countingWatcher struct {
	nodes int
}

func (w *countingWatcher) ReportNode(syntax.NodeRef, syntax.Node)         { w.nodes++ }
func (w *countingWatcher) ReportError(syntax.ErrorRef, syntax.SyntaxError) {}
func (w *countingWatcher) ReportNodeRemoved(syntax.NodeRef)               {}
func (w *countingWatcher) ReportErrorRemoved(syntax.ErrorRef)             {}

// TestLocalDigitEditLeavesSiblingsUntouched: widening a
// number literal inside one array element
// must not disturb sibling entries or items the edit never reached.
func TestLocalDigitEditLeavesSiblingsUntouched(t *testing.T) {
	text := `{"a": 1, "b": [1, 2, 3]}`
	u := units.NewMutableUnitFromText(Grammar(), text, lexer.DefaultConfig())

	rootBefore, _ := u.ResolveNode(u.Root())
	objBefore, _ := u.ResolveNode(rootBefore.(Root).Object)
	entriesBefore := objBefore.(Object).Entries
	aEntryBefore := entriesBefore[0]

	bNodeBefore, _ := u.ResolveNode(entriesBefore[1])
	arrBefore, _ := u.ResolveNode(bNodeBefore.(Entry).Value)
	itemsBefore := arrBefore.(Array).Items
	item1Before, item2Before := itemsBefore[1], itemsBefore[2]

	// site 15 is the lone '1' inside the array; widen it to "10".
	editSpan := lexis.Span{Start: 15, End: 16}
	if _, err := u.Write(editSpan, "10"); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if got, want := u.Text(), `{"a": 1, "b": [10, 2, 3]}`; got != want {
		t.Fatalf("text after write = %q, want %q", got, want)
	}

	rootAfter, _ := u.ResolveNode(u.Root())
	objAfter, _ := u.ResolveNode(rootAfter.(Root).Object)
	entriesAfter := objAfter.(Object).Entries

	if entriesAfter[0] != aEntryBefore {
		t.Fatalf("'a' entry ref changed across an edit confined to 'b': before=%v after=%v", aEntryBefore, entriesAfter[0])
	}

	bNodeAfter, _ := u.ResolveNode(entriesAfter[1])
	arrAfter, _ := u.ResolveNode(bNodeAfter.(Entry).Value)
	itemsAfter := arrAfter.(Array).Items
	if itemsAfter[1] != item1Before || itemsAfter[2] != item2Before {
		t.Fatalf("untouched array items changed ref: before=[%v %v] after=[%v %v]",
			item1Before, item2Before, itemsAfter[1], itemsAfter[2])
	}

	item0Node, _ := u.ResolveNode(itemsAfter[0])
	tok, ok := u.ResolveToken(item0Node.(Number).Value)
	if !ok || tok.Text != "10" {
		t.Fatalf("widened item = %q, want \"10\"", tok.Text)
	}
}

// TestBulkReplacementMatchesColdParse: replacing an entire
// document's span must produce a tree
// structurally identical to parsing the replacement text from scratch.
func TestBulkReplacementMatchesColdParse(t *testing.T) {
	oldText := `{"a": 1}`
	newText := `{"x": [true, false, null], "y": "hi", "z": {"n": 42}}`

	u := units.NewMutableUnitFromText(Grammar(), oldText, lexer.DefaultConfig())
	if _, err := u.Write(lexis.Span{Start: 0, End: lexis.Length(len([]rune(oldText)))}, newText); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if got := u.Text(); got != newText {
		t.Fatalf("text after bulk replace = %q, want %q", got, newText)
	}

	cold := units.NewImmutableUnit(Grammar(), newText)
	if !structurallyEqual(u, u.Root(), cold, cold.Root()) {
		t.Fatal("bulk-replaced unit's tree differs structurally from a cold parse of the same text")
	}
}

// TestNestedCacheReuseIsLinearInDepth: editing a leaf buried
// depth levels down must only touch
// the ancestor chain (each level's wrapping Object/Entry plus the leaf
// itself), not the sibling "b" entries/numbers the cache keeps live at
// every level.
func TestNestedCacheReuseIsLinearInDepth(t *testing.T) {
	const depth = 12

	var open, close strings.Builder
	for i := 0; i < depth; i++ {
		open.WriteString(`{"a": `)
		close.WriteString(`, "b": 9}`)
	}
	text := open.String() + "1" + close.String()

	u := units.NewMutableUnitFromText(Grammar(), text, lexer.DefaultConfig())

	digitSite := strings.LastIndex(text, "1")
	if digitSite < 0 {
		t.Fatal("setup: couldn't find the innermost digit in the constructed document")
	}
	editSpan := lexis.Span{Start: lexis.Length(digitSite), End: lexis.Length(digitSite + 1)}

	watcher := &countingWatcher{}
	if _, err := u.WriteAndWatch(editSpan, "2", watcher); err != nil {
		t.Fatalf("WriteAndWatch: %v", err)
	}

	// A full reparse would report roughly one node per Object, per
	// Entry (two per level, "a" and "b"), and per Number — about 4 per
	// level. Reparse replays only the innermost cache entry whose span
	// still covers the edit (here, the innermost Entry, rebuilt in
	// place via ReparseAt); its ancestors' Object/Entry node values
	// never change and so are never reported, and the untouched "b"
	// siblings at every level stay cached. The generous bound below is
	// well under a full reparse's node count regardless of exactly how
	// many ancestors end up touched.
	if max := 3 * depth; watcher.nodes > max {
		t.Fatalf("reparse reported %d nodes, want <= %d (bounded by depth, not total node count, for a leaf edit)", watcher.nodes, max)
	}

	root, _ := u.ResolveNode(u.Root())
	current := root.(Root).Object
	for i := 0; i < depth; i++ {
		objNode, _ := u.ResolveNode(current)
		entryNode, _ := u.ResolveNode(objNode.(Object).Entries[0])
		current = entryNode.(Entry).Value
	}
	numNode, _ := u.ResolveNode(current)
	tok, ok := u.ResolveToken(numNode.(Number).Value)
	if !ok || tok.Text != "2" {
		t.Fatalf("innermost value after edit = %q, want \"2\"", tok.Text)
	}
}

// TestWriteEmptySpanAtStartIsNoOp: write(0..0, "") is a no-op that
// still emits no Watcher events.
func TestWriteEmptySpanAtStartIsNoOp(t *testing.T) {
	text := `{"a": 1}`
	u := units.NewMutableUnitFromText(Grammar(), text, lexer.DefaultConfig())
	rootBefore := u.Root()

	watcher := &countingWatcher{}
	rec, err := u.WriteAndWatch(lexis.Span{Start: 0, End: 0}, "", watcher)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if watcher.nodes != 0 {
		t.Fatalf("no-op write reported %d nodes, want 0", watcher.nodes)
	}
	if rec.Splice.Delta != 0 {
		t.Fatalf("no-op write splice delta = %d, want 0", rec.Splice.Delta)
	}
	if u.Text() != text {
		t.Fatalf("text after no-op write = %q, want %q", u.Text(), text)
	}
	if u.Root() != rootBefore {
		t.Fatalf("root ref changed across a no-op write: before=%v after=%v", rootBefore, u.Root())
	}
}

// TestWriteEmptySpanAtEndIsNoOp exercises the same boundary property
// at the document's other end: write(len..len, "") is likewise a no-op.
func TestWriteEmptySpanAtEndIsNoOp(t *testing.T) {
	text := `{"a": 1}`
	u := units.NewMutableUnitFromText(Grammar(), text, lexer.DefaultConfig())
	rootBefore := u.Root()

	end := lexis.Length(len([]rune(text)))
	watcher := &countingWatcher{}
	if _, err := u.WriteAndWatch(lexis.Span{Start: end, End: end}, "", watcher); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if watcher.nodes != 0 {
		t.Fatalf("no-op write reported %d nodes, want 0", watcher.nodes)
	}
	if u.Text() != text {
		t.Fatalf("text after no-op write = %q, want %q", u.Text(), text)
	}
	if u.Root() != rootBefore {
		t.Fatalf("root ref changed across a no-op write: before=%v after=%v", rootBefore, u.Root())
	}
}

// Rewriting the entire document with identical text must produce zero
// events.
func TestWriteIdenticalFullDocumentRewriteIsNoOp(t *testing.T) {
	text := `{"a": [1, 2, 3], "b": "hi"}`
	u := units.NewMutableUnitFromText(Grammar(), text, lexer.DefaultConfig())
	rootBefore := u.Root()

	watcher := &countingWatcher{}
	end := lexis.Length(len([]rune(text)))
	rec, err := u.WriteAndWatch(lexis.Span{Start: 0, End: end}, text, watcher)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if watcher.nodes != 0 {
		t.Fatalf("identical rewrite reported %d nodes, want 0", watcher.nodes)
	}
	if rec.Splice.Delta != 0 {
		t.Fatalf("identical rewrite splice delta = %d, want 0", rec.Splice.Delta)
	}
	if u.Root() != rootBefore {
		t.Fatalf("root ref changed across an identical rewrite: before=%v after=%v", rootBefore, u.Root())
	}
}

// TestWriteRejectsSpanOutsideDocument: an
// editSpan outside [0, length] is rejected with an explicit WriteError
// rather than panicking or silently clamping.
func TestWriteRejectsSpanOutsideDocument(t *testing.T) {
	text := `{"a": 1}`
	u := units.NewMutableUnitFromText(Grammar(), text, lexer.DefaultConfig())
	length := lexis.Length(len([]rune(text)))

	_, err := u.Write(lexis.Span{Start: length, End: length + 5}, "x")
	if err == nil {
		t.Fatal("Write with an out-of-bounds span returned no error")
	}
	var writeErr units.WriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("Write error = %#v (%T), want a units.WriteError", err, err)
	}
	if u.Text() != text {
		t.Fatalf("text changed after a rejected write: got %q, want %q", u.Text(), text)
	}
}

// TestWriteRejectsInvertedSpan exercises the same rejection for a span
// whose Start is past its End.
func TestWriteRejectsInvertedSpan(t *testing.T) {
	u := units.NewMutableUnitFromText(Grammar(), `{"a": 1}`, lexer.DefaultConfig())
	_, err := u.Write(lexis.Span{Start: 5, End: 2}, "x")
	if err == nil {
		t.Fatal("Write with Start > End returned no error")
	}
	var writeErr units.WriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("Write error = %#v (%T), want a units.WriteError", err, err)
	}
}

// TestRecoveryErrorClearsOnFixAndLeavesSiblingsCached drives
// malformed-input recovery followed by an edit that fixes the
// malformed span. A missing colon is this grammar's recoverable
// malformation with a bounded, registered RecoverySet (RuleEntry stops
// at comma/brace-close): Recover records a SyntaxError, and inserting
// the missing colon must make that error disappear (ReportErrorRemoved)
// while the entries before and after the malformed one stay cached.
func TestRecoveryErrorClearsOnFixAndLeavesSiblingsCached(t *testing.T) {
	text := `{"before": 1, "bad" 9, "after": 3}`
	u := units.NewMutableUnitFromText(Grammar(), text, lexer.DefaultConfig())

	rootBefore, _ := u.ResolveNode(u.Root())
	objBefore, _ := u.ResolveNode(rootBefore.(Root).Object)
	entriesBefore := objBefore.(Object).Entries
	if len(entriesBefore) != 3 {
		t.Fatalf("got %d entries before fix, want 3 (before/bad/after)", len(entriesBefore))
	}
	beforeEntryBefore, afterEntryBefore := entriesBefore[0], entriesBefore[2]

	// "bad" recovered with no Value at all (parseEntry returns early);
	// resolving it should report a non-nil SyntaxError on the unit, not
	// panic or silently fabricate a node.
	badEntryNode, _ := u.ResolveNode(entriesBefore[1])
	if badEntryNode.(Entry).Value != syntax.NilNodeRef {
		t.Fatalf("malformed entry resolved a Value ref before the colon was ever inserted: %v", badEntryNode.(Entry).Value)
	}

	// insert the missing colon right after the closing quote of "bad".
	keyEnd := strings.Index(text, `"bad"`) + len(`"bad"`)
	editSpan := lexis.Span{Start: lexis.Length(keyEnd), End: lexis.Length(keyEnd)}
	if _, err := u.Write(editSpan, ":"); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if got, want := u.Text(), `{"before": 1, "bad": 9, "after": 3}`; got != want {
		t.Fatalf("text after fix-up write = %q, want %q", got, want)
	}
	if got := u.ErrorCount(); got != 0 {
		t.Fatalf("ErrorCount() after inserting the colon = %d, want 0", got)
	}

	rootAfter, _ := u.ResolveNode(u.Root())
	objAfter, _ := u.ResolveNode(rootAfter.(Root).Object)
	entriesAfter := objAfter.(Object).Entries
	if len(entriesAfter) != 3 {
		t.Fatalf("got %d entries after fix, want 3", len(entriesAfter))
	}
	if entriesAfter[0] != beforeEntryBefore {
		t.Fatalf("'before' entry ref changed across a fix confined to 'bad': before=%v after=%v",
			beforeEntryBefore, entriesAfter[0])
	}
	if entriesAfter[2] != afterEntryBefore {
		t.Fatalf("'after' entry ref changed across a fix confined to 'bad': before=%v after=%v",
			afterEntryBefore, entriesAfter[2])
	}

	fixedNode, _ := u.ResolveNode(entriesAfter[1])
	fixedEntry := fixedNode.(Entry)
	if fixedEntry.Value == syntax.NilNodeRef {
		t.Fatal("fixed entry still has no Value after inserting the colon")
	}
	valNode, _ := u.ResolveNode(fixedEntry.Value)
	valTok, ok := u.ResolveToken(valNode.(Number).Value)
	if !ok || valTok.Text != "9" {
		t.Fatalf("fixed entry value = %q, want \"9\"", valTok.Text)
	}
}

// TestTokenBufferPositionSiteRoundTripAcrossLines exercises
// Position/Site round-tripping at several sites spanning a multi-line
// document, including a line start and the final site, complementing
// units.TestTokenBufferPositionRoundTrip with JSON-shaped text.
func TestTokenBufferPositionSiteRoundTripAcrossLines(t *testing.T) {
	text := "{\n  \"a\": 1,\n  \"b\": [2, 3]\n}"
	buf := units.NewTokenBuffer(Grammar().TokenGrammar, text)

	runes := []rune(text)
	for site := lexis.Site(0); site <= lexis.Site(len(runes)); site++ {
		pos := buf.Position(site)
		if got := buf.Site(pos); got != site {
			t.Fatalf("Site(Position(%d)) = %d, want %d (pos=%v)", site, got, site, pos)
		}
	}
}
