// Package units implements the library's top-level document types: the
// MutableUnit a host edits incrementally, and the ImmutableUnit/
// TokenBuffer siblings for one-shot parses that never need to carry
// reparse machinery.
package units

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/odvcencio/increparse/arena"
	"github.com/odvcencio/increparse/lexer"
	"github.com/odvcencio/increparse/lexis"
	"github.com/odvcencio/increparse/parse"
	"github.com/odvcencio/increparse/storage"
	"github.com/odvcencio/increparse/syntax"
)

// WriteError reports that a Write/WriteAndWatch call's editSpan fell
// outside [0, length] of the unit's current text. Span misuse is an
// explicit error value, never a panic; the tree and cache are left
// untouched.
type WriteError struct {
	Span   lexis.Span
	Length lexis.Length
}

func (e WriteError) Error() string {
	return fmt.Sprintf("units: write span %v out of bounds for document of length %d", e.Span, e.Length)
}

// WriteRecord traces one edit applied to a MutableUnit: a monotonic,
// time-sortable ULID a host can use to correlate a Watcher event stream
// against the edit that produced it, alongside the edit itself and the
// resulting splice.
type WriteRecord struct {
	ID          ulid.ULID
	At          time.Time
	EditSpan    lexis.Span
	Replacement string
	Splice      lexer.Splice
}

// MutableUnit owns one document's text, storage tree, syntax cache, and
// node/error/token arenas across repeated edits. It is not safe for
// concurrent use; a host that wants concurrent readers during a write
// should serialize through its own lock (see TimeoutLock for a long walk's cancellation checkpoint,
// not a mutex substitute).
type MutableUnit struct {
	id      syntax.UnitID
	grammar syntax.Grammar
	cfg     lexer.Config

	text  []rune
	tree  *storage.Tree
	lines *lexis.LineIndex
	cache *cacheTable

	arenas  parse.Arenas
	root    syntax.NodeRef
	watcher syntax.Watcher

	writes []WriteRecord
}

// Tuning carries the construction-time memory/shape knobs the config
// package resolves from YAML and the environment: the storage tree's
// branching factor and the arenas' slab pre-size. The zero value means
// "use each package's built-in default".
type Tuning struct {
	BranchingFactor int
	ArenaSlab       int
}

func (t Tuning) branching() int {
	if t.BranchingFactor < 2 {
		return storage.DefaultBranchingFactor
	}
	return t.BranchingFactor
}

// NewMutableUnit creates an empty unit ready for an initial write.
func NewMutableUnit(grammar syntax.Grammar, cfg lexer.Config) *MutableUnit {
	return NewMutableUnitFromText(grammar, "", cfg)
}

// NewMutableUnitFromText lexes and parses text once to seed the unit.
func NewMutableUnitFromText(grammar syntax.Grammar, text string, cfg lexer.Config) *MutableUnit {
	return NewMutableUnitFromTextTuned(grammar, text, cfg, Tuning{})
}

// NewMutableUnitFromTextTuned is NewMutableUnitFromText with explicit
// Tuning, as assembled from a config.Config by a host (or
// cmd/increparse).
func NewMutableUnitFromTextTuned(grammar syntax.Grammar, text string, cfg lexer.Config, tuning Tuning) *MutableUnit {
	runes := []rune(text)
	tree := buildTreeTuned(grammar.TokenGrammar, runes, tuning.branching())

	u := &MutableUnit{
		id:      uuid.New(),
		grammar: grammar,
		cfg:     cfg,
		text:    runes,
		tree:    tree,
		lines:   lexis.NewLineIndex(runes),
		cache:   newCacheTable(),
		arenas:  parse.NewArenasWithSlab(tuning.ArenaSlab),
		watcher: syntax.VoidWatcher{},
	}
	u.root = parse.Full(u.id, u.grammar, u.tree, u.cache, u.watcher, u.arenas)
	return u
}

// buildTree lexes text in full and packs the resulting tokens (minus the
// trailing EOI sentinel) into a fresh storage tree with the default
// branching factor, as used by ImmutableUnit and TokenBuffer
// construction; a MutableUnit's initial tree comes from buildTreeTuned.
func buildTree(grammar lexis.Grammar, text []rune) *storage.Tree {
	return buildTreeTuned(grammar, text, storage.DefaultBranchingFactor)
}

func buildTreeTuned(grammar lexis.Grammar, text []rune, b int) *storage.Tree {
	toks := lexis.ScanAll(grammar, text)
	chunks := make([]storage.Chunk, 0, len(toks))
	for _, t := range toks {
		if t.Kind == grammar.EOI() {
			continue
		}
		chunks = append(chunks, storage.Chunk{Token: t.Kind, Length: lexis.Length(t.Span.Len()), Text: t.Text})
	}
	return storage.BuildTree(b, chunks)
}

// ID returns the unit's identity, used to reject refs minted by a
// different unit.
func (u *MutableUnit) ID() syntax.UnitID { return u.id }

// Text returns the unit's current full document text.
func (u *MutableUnit) Text() string { return string(u.text) }

// Tree exposes the current storage tree, mainly for tests and tooling
// that want to inspect chunk structure directly.
func (u *MutableUnit) Tree() *storage.Tree { return u.tree }

// Root returns the ref of the document's root node. The ref is kept
// across a write whenever Reparse finds a surviving cache entry that
// covers the splice. A write that leaves none (for instance one whose
// splice starts at the root's anchor site) falls back to a full parse,
// which allocates a new root ref.
func (u *MutableUnit) Root() syntax.NodeRef { return u.root }

// ResolveNode dereferences ref against this unit's current node arena.
func (u *MutableUnit) ResolveNode(ref syntax.NodeRef) (syntax.Node, bool) {
	return u.arenas.Nodes.Get(ref.Entry)
}

// ResolveToken dereferences ref against this unit's current token arena.
func (u *MutableUnit) ResolveToken(ref syntax.TokenRef) (lexis.Token, bool) {
	return u.arenas.Tokens.Get(ref.Entry)
}

// ResolveError dereferences ref against this unit's current error arena.
func (u *MutableUnit) ResolveError(ref syntax.ErrorRef) (syntax.SyntaxError, bool) {
	return u.arenas.Errors.Get(ref.Entry)
}

// Writes returns the unit's write trace in application order.
func (u *MutableUnit) Writes() []WriteRecord { return u.writes }

// LastWriteID returns the ULID of the most recent write, or ok=false if
// the unit has never been written. A host correlating Watcher events
// with edits compares this against the IDs it recorded per event batch.
func (u *MutableUnit) LastWriteID() (ulid.ULID, bool) {
	if len(u.writes) == 0 {
		return ulid.ULID{}, false
	}
	return u.writes[len(u.writes)-1].ID, true
}

// Length returns the unit's current text length in characters.
func (u *MutableUnit) Length() lexis.Length { return lexis.Length(len(u.text)) }

// Substring returns the text covered by span, clamped to the document.
func (u *MutableUnit) Substring(span lexis.Span) string {
	end := span.End
	if end > lexis.Site(len(u.text)) {
		end = lexis.Site(len(u.text))
	}
	if span.Start >= end {
		return ""
	}
	return string(u.text[span.Start:end])
}

// Position converts a character site to a (line, column) pair against
// the unit's current text.
func (u *MutableUnit) Position(site lexis.Site) lexis.Position {
	return u.lines.ToPosition(site)
}

// Site converts a (line, column) pair to a character site, with
// Position's usual clamping for out-of-range lines and columns.
func (u *MutableUnit) Site(pos lexis.Position) lexis.Site {
	return u.lines.ToSite(pos)
}

// DisplayPosition is Position with the column counted in grapheme
// clusters instead of runes (lexis.LineIndex.DisplayColumn), for
// aligning a cursor or diagnostic with what the user actually sees.
func (u *MutableUnit) DisplayPosition(site lexis.Site) lexis.Position {
	pos := u.lines.ToPosition(site)
	pos.Column = u.lines.DisplayColumn(u.text, site)
	return pos
}

// Cursor returns a token cursor over the chunks intersecting span in
// the unit's current tree.
func (u *MutableUnit) Cursor(span lexis.Span) *TokenCursor {
	return newTokenCursor(u.tree, span)
}

// Chars returns a character cursor over span in the unit's current
// text.
func (u *MutableUnit) Chars(span lexis.Span) *CharCursor {
	return newCharCursor(u.text, span)
}

// EachNode visits every live node in the unit's arena, in slot order
// (not tree order; walk from Root for structure).
func (u *MutableUnit) EachNode(fn func(syntax.NodeRef, syntax.Node)) {
	u.arenas.Nodes.Each(func(e arena.Entry, n syntax.Node) {
		fn(syntax.NodeRef{Unit: u.id, Entry: e}, n)
	})
}

// EachError visits every live parse error in the unit's arena.
func (u *MutableUnit) EachError(fn func(syntax.ErrorRef, syntax.SyntaxError)) {
	u.arenas.Errors.Each(func(e arena.Entry, err syntax.SyntaxError) {
		fn(syntax.ErrorRef{Unit: u.id, Entry: e}, err)
	})
}

// ErrorCount returns the number of live parse errors. A document the
// grammar accepts cleanly has zero.
func (u *MutableUnit) ErrorCount() int { return u.arenas.Errors.Len() }

// SetWatcher installs w as the default watcher subsequent Write calls
// report through; pass nil to go back to discarding events.
func (u *MutableUnit) SetWatcher(w syntax.Watcher) {
	if w == nil {
		w = syntax.VoidWatcher{}
	}
	u.watcher = w
}

// Write replaces the text in editSpan with replacement, relexing and
// reparsing incrementally: this is the library's
// one mutation entry point. It reports through the unit's installed
// watcher (VoidWatcher by default).
func (u *MutableUnit) Write(editSpan lexis.Span, replacement string) (WriteRecord, error) {
	return u.WriteAndWatch(editSpan, replacement, u.watcher)
}

// WritePosition is Write addressed by (line, column) pairs instead of
// sites. The position range resolves against the unit's current text, before
// the edit applies.
func (u *MutableUnit) WritePosition(span lexis.PositionSpan, replacement string) (WriteRecord, error) {
	return u.WriteAndWatch(span.ToSpan(u.lines), replacement, u.watcher)
}

// WritePositionAndWatch is WritePosition with a one-off watcher.
func (u *MutableUnit) WritePositionAndWatch(span lexis.PositionSpan, replacement string, watcher syntax.Watcher) (WriteRecord, error) {
	return u.WriteAndWatch(span.ToSpan(u.lines), replacement, watcher)
}

// WriteAndWatch is Write with a one-off watcher for this edit only,
// without disturbing the unit's installed default. It rejects a span
// outside [0, length] of the current text with a WriteError rather than
// relexing or reparsing, and short-circuits an edit whose replacement
// text is identical to the span it would replace — a true no-op (empty
// insertion, identical full rewrite) reports zero Watcher events and
// leaves the tree and cache untouched.
func (u *MutableUnit) WriteAndWatch(editSpan lexis.Span, replacement string, watcher syntax.Watcher) (WriteRecord, error) {
	if watcher == nil {
		watcher = syntax.VoidWatcher{}
	}

	length := lexis.Length(len(u.text))
	if editSpan.Start > editSpan.End || lexis.Length(editSpan.End) > length {
		return WriteRecord{}, WriteError{Span: editSpan, Length: length}
	}

	if replacement == string(u.text[editSpan.Start:editSpan.End]) {
		rec := WriteRecord{
			ID:          ulid.MustNew(ulid.Now(), ulid.DefaultEntropy()),
			At:          time.Now(),
			EditSpan:    editSpan,
			Replacement: replacement,
			Splice:      lexer.Splice{OldSpan: lexis.Span{Start: editSpan.Start, End: editSpan.Start}, Delta: 0},
		}
		u.writes = append(u.writes, rec)
		return rec, nil
	}

	newText, newTree, splice := lexer.Relex(u.grammar.TokenGrammar, u.text, u.tree, editSpan, []rune(replacement), u.cfg)

	u.text = newText
	u.tree = newTree
	u.lines = lexis.NewLineIndex(newText)
	u.root = parse.Reparse(u.id, u.grammar, u.tree, u.cache, watcher, u.arenas, u.root, parse.Splice{
		OldSpan: splice.OldSpan,
		Delta:   splice.Delta,
	})

	rec := WriteRecord{
		ID:          ulid.MustNew(ulid.Now(), ulid.DefaultEntropy()),
		At:          time.Now(),
		EditSpan:    editSpan,
		Replacement: replacement,
		Splice:      splice,
	}
	u.writes = append(u.writes, rec)
	return rec, nil
}
