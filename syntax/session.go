package syntax

import (
	"fmt"

	"github.com/odvcencio/increparse/arena"
	"github.com/odvcencio/increparse/lexis"
	"github.com/odvcencio/increparse/storage"
)

// CacheTable is consulted by Session.Descend for cache hits and
// populated by Session.LeaveCache on a successful rule exit. It is
// keyed by anchor site rather than carried on the storage chunk itself
// (see storage.Chunk's doc comment), and is owned by the calling Unit
// so cache lifetime matches unit lifetime.
type CacheTable interface {
	Lookup(anchorSite lexis.Site, rule Rule) (*CacheEntry, bool)
	Insert(anchorSite lexis.Site, entry *CacheEntry)
	// Remove discards exactly the (anchorSite, rule) entry. Multiple
	// rules can share an anchor site (a rule and the first child it
	// immediately descends into both start at the same site), so Remove
	// is scoped to one rule rather than clearing every entry at the
	// site.
	Remove(anchorSite lexis.Site, rule Rule)
	Each(fn func(anchorSite lexis.Site, entry *CacheEntry))
}

type cacheScope struct {
	rule       Rule
	anchorSite lexis.Site
	depth      int
	nodeMark   int
	errMark    int
}

// Session is the runtime object parser productions are written
// against: token peek/consume, rule descent, cache consultation, error
// recording. One Session drives one parse or reparse invocation over a
// single storage.Tree.
type Session struct {
	unit    UnitID
	grammar Grammar
	tree    *storage.Tree
	cache   CacheTable
	watcher Watcher

	nodes  *arena.Repo[Node]
	errors *arena.Repo[SyntaxError]
	tokens *arena.Repo[lexis.Token]

	cursor      storage.ChildCursor
	site        lexis.Site
	maxPeekSite lexis.Site

	parentStack []NodeRef
	cacheStack  []cacheScope
	baseDepth   int
	nodeLog     []NodeRef
	errorLog    []ErrorRef
}

// NewSession creates a Session positioned at startSite in tree, with
// fresh node/error/token arenas — used for a first full parse.
func NewSession(unit UnitID, grammar Grammar, tree *storage.Tree, cache CacheTable, watcher Watcher, startSite lexis.Site) *Session {
	return NewSessionWithArenas(unit, grammar, tree, cache, watcher, startSite,
		arena.New[Node](), arena.New[SyntaxError](), arena.New[lexis.Token]())
}

// NewSessionWithArenas creates a Session that reads and writes the given
// arenas instead of fresh ones — used for reparse, where surviving refs
// from the previous parse must keep resolving against the same Unit.
func NewSessionWithArenas(
	unit UnitID,
	grammar Grammar,
	tree *storage.Tree,
	cache CacheTable,
	watcher Watcher,
	startSite lexis.Site,
	nodes *arena.Repo[Node],
	errors *arena.Repo[SyntaxError],
	tokens *arena.Repo[lexis.Token],
) *Session {
	if watcher == nil {
		watcher = VoidWatcher{}
	}
	s := &Session{
		unit:    unit,
		grammar: grammar,
		tree:    tree,
		cache:   cache,
		watcher: watcher,
		nodes:   nodes,
		errors:  errors,
		tokens:  tokens,
	}
	residual := lexis.Length(startSite)
	s.cursor = tree.Lookup(&residual)
	s.site = startSite
	s.maxPeekSite = startSite
	return s
}

// Nodes gives access to the arena a reparse stitches reused nodes into.
func (s *Session) Nodes() *arena.Repo[Node] { return s.nodes }

// Errors gives access to the session's error arena.
func (s *Session) Errors() *arena.Repo[SyntaxError] { return s.errors }

// Tokens gives access to the session's token-snapshot arena.
func (s *Session) Tokens() *arena.Repo[lexis.Token] { return s.tokens }

// Site returns the session's current cursor position.
func (s *Session) Site() lexis.Site { return s.site }

// ResolveNode dereferences ref against this session's node arena.
func (s *Session) ResolveNode(ref NodeRef) (Node, bool) {
	if ref.Unit != s.unit {
		return nil, false
	}
	return s.nodes.Get(ref.Entry)
}

// ResolveToken dereferences ref against this session's token arena.
func (s *Session) ResolveToken(ref TokenRef) (lexis.Token, bool) {
	if ref.Unit != s.unit {
		return lexis.Token{}, false
	}
	return s.tokens.Get(ref.Entry)
}

func (s *Session) observe(site lexis.Site) {
	if site > s.maxPeekSite {
		s.maxPeekSite = site
	}
}

// Token peeks the n-th non-trivia token ahead without consuming
// anything; n=0 is the current token. Reading past end of input
// returns the grammar's EOI kind.
func (s *Session) Token(n int) lexis.TokenKind {
	c := s.cursor
	site := s.site
	count := -1
	for {
		if c.Dangling() {
			return s.grammar.TokenGrammar.EOI()
		}
		chunk := c.Chunk()
		if s.grammar.TokenGrammar.IsTrivia(chunk.Token) {
			site += lexis.Site(chunk.Length)
			c = c.Next()
			continue
		}
		count++
		if count == n {
			s.observe(site + lexis.Site(chunk.Length))
			return chunk.Token
		}
		site += lexis.Site(chunk.Length)
		c = c.Next()
	}
}

// SkipTrivia forces trivia absorption at the current position, without
// consuming the non-trivia token that follows.
func (s *Session) SkipTrivia() {
	for !s.cursor.Dangling() && s.grammar.TokenGrammar.IsTrivia(s.cursor.Chunk().Token) {
		chunk := s.cursor.Chunk()
		s.site += lexis.Site(chunk.Length)
		s.observe(s.site)
		s.cursor = s.cursor.Next()
	}
}

// currentTokenRef snapshots the token currently under the cursor (or
// the EOI sentinel) into the token arena and returns its ref.
func (s *Session) currentTokenRef() TokenRef {
	var tok lexis.Token
	if s.cursor.Dangling() {
		tok = lexis.Token{Kind: s.grammar.TokenGrammar.EOI(), Span: lexis.Span{Start: s.site, End: s.site}}
	} else {
		c := s.cursor.Chunk()
		tok = lexis.Token{Kind: c.Token, Span: lexis.Span{Start: s.site, End: s.site + lexis.Site(c.Length)}, Text: c.Text}
	}
	return TokenRef{Unit: s.unit, Entry: s.tokens.Insert(tok)}
}

// Advance consumes the current non-trivia token, skipping any
// intervening trivia first, and returns its kind and a snapshot ref.
func (s *Session) Advance() (lexis.TokenKind, TokenRef) {
	s.SkipTrivia()
	if s.cursor.Dangling() {
		return s.grammar.TokenGrammar.EOI(), s.currentTokenRef()
	}
	ref := s.currentTokenRef()
	chunk := s.cursor.Chunk()
	s.site += lexis.Site(chunk.Length)
	s.cursor = s.cursor.Next()
	s.observe(s.site)
	return chunk.Token, ref
}

// jumpTo moves the cursor to the site recorded in ref, as used when a
// cache hit lets Descend skip straight to a rule's parse_end.
func (s *Session) jumpTo(ref TokenRef) {
	tok, ok := s.tokens.Get(ref.Entry)
	if !ok {
		return
	}
	residual := lexis.Length(tok.Span.Start)
	s.cursor = s.tree.Lookup(&residual)
	s.site = tok.Span.Start
	s.observe(s.site)
}

// ParentRef returns the ref reserved for the rule invocation currently
// being parsed (the ref Descend allocated before calling its
// production), or NilNodeRef at the top level.
func (s *Session) ParentRef() NodeRef {
	if len(s.parentStack) == 0 {
		return NilNodeRef
	}
	return s.parentStack[len(s.parentStack)-1]
}

// RegisterNode registers a user-constructed node outside the normal
// Descend/cache bookkeeping (e.g. a synthetic recovery placeholder) and
// returns its ref.
func (s *Session) RegisterNode(n Node) NodeRef {
	ref := NodeRef{Unit: s.unit, Entry: s.nodes.Insert(n)}
	s.watcher.ReportNode(ref, n)
	s.nodeLog = append(s.nodeLog, ref)
	return ref
}

// Failure records a parse error anchored at the current chunk and
// returns its ref.
func (s *Session) Failure(err SyntaxError) ErrorRef {
	ref := ErrorRef{Unit: s.unit, Entry: s.errors.Insert(err)}
	s.watcher.ReportError(ref, err)
	s.errorLog = append(s.errorLog, ref)
	return ref
}

// EnterCache marks the start of a cacheable rule invocation. Descend
// calls this on the caller's behalf; exposed directly for hand-written
// ParseFuncs that want a different caching boundary than Descend's
// default (one entry per rule invocation).
func (s *Session) EnterCache(rule Rule) {
	s.cacheStack = append(s.cacheStack, cacheScope{
		rule:       rule,
		anchorSite: s.site,
		depth:      s.baseDepth + len(s.cacheStack),
		nodeMark:   len(s.nodeLog),
		errMark:    len(s.errorLog),
	})
}

// LeaveCache closes the innermost EnterCache scope, recording a
// CacheEntry for primary (and whatever secondary nodes/errors were
// produced since EnterCache) with the given lookahead.
func (s *Session) LeaveCache(primary NodeRef, lookahead lexis.Length) {
	n := len(s.cacheStack)
	if n == 0 {
		return
	}
	scope := s.cacheStack[n-1]
	s.cacheStack = s.cacheStack[:n-1]

	entry := &CacheEntry{
		Rule:           scope.rule,
		ParseEnd:       s.currentTokenRef(),
		Lookahead:      lookahead,
		PrimaryNode:    primary,
		SecondaryNodes: append([]NodeRef(nil), s.nodeLog[scope.nodeMark:]...),
		Errors:         append([]ErrorRef(nil), s.errorLog[scope.errMark:]...),
		Depth:          scope.depth,
		AnchorSite:     scope.anchorSite,
		CoveredEnd:     s.site + lookahead,
	}
	s.cache.Insert(scope.anchorSite, entry)
}

// Descend recursively parses rule, attaching the produced node as a
// child of the currently parsing rule. If a live cache entry anchored
// at the current chunk exists for rule, it is reused and the session
// jumps straight past its parsed span.
func (s *Session) Descend(rule Rule) NodeRef {
	s.SkipTrivia()
	anchorSite := s.site

	if s.cache != nil {
		if entry, ok := s.cache.Lookup(anchorSite, rule); ok {
			s.jumpTo(entry.ParseEnd)
			s.observe(entry.CoveredEnd)
			s.nodeLog = append(s.nodeLog, entry.PrimaryNode)
			return entry.PrimaryNode
		}
	}

	prod, ok := s.grammar.Productions[rule]
	if !ok {
		panic(fmt.Sprintf("syntax: grammar has no production registered for rule %d", rule))
	}

	ref := NodeRef{Unit: s.unit, Entry: s.nodes.Insert(nil)}
	s.parentStack = append(s.parentStack, ref)
	s.EnterCache(rule)

	node := prod(s, rule)

	s.parentStack = s.parentStack[:len(s.parentStack)-1]
	s.nodes.Update(ref.Entry, node)
	s.watcher.ReportNode(ref, node)

	lookahead := lexis.Length(0)
	if s.maxPeekSite > s.site {
		lookahead = s.maxPeekSite - s.site
	}
	s.LeaveCache(ref, lookahead)
	s.nodeLog = append(s.nodeLog, ref)
	return ref
}

// ReparseAt behaves like Descend(rule) but reuses an existing NodeRef's
// arena slot instead of allocating a new one. Used by package parse to
// stitch a freshly reparsed subtree back in at the ref of the cache
// entry whose rule is being rebuilt — since the
// ref's identity (arena Entry) is unchanged, every ancestor that already
// captured it keeps resolving correctly with no tree-surgery needed.
// depth seeds the replayed rule's nesting depth so the entry it
// re-installs (and every entry created beneath it) records the same
// absolute depth a from-the-root parse would have given it.
func (s *Session) ReparseAt(rule Rule, reuse NodeRef, depth int) NodeRef {
	s.baseDepth = depth
	s.SkipTrivia()

	prod, ok := s.grammar.Productions[rule]
	if !ok {
		panic(fmt.Sprintf("syntax: grammar has no production registered for rule %d", rule))
	}

	s.parentStack = append(s.parentStack, reuse)
	s.EnterCache(rule)

	node := prod(s, rule)

	s.parentStack = s.parentStack[:len(s.parentStack)-1]
	s.nodes.Update(reuse.Entry, node)
	s.watcher.ReportNode(reuse, node)

	lookahead := lexis.Length(0)
	if s.maxPeekSite > s.site {
		lookahead = s.maxPeekSite - s.site
	}
	s.LeaveCache(reuse, lookahead)
	s.nodeLog = append(s.nodeLog, reuse)
	return reuse
}

// Recover performs panic-mode recovery for rule: it skips tokens
// (treating bracket pairs declared in the rule's recovery set as
// balanced units) until a synchronizing token is found or EOI, then
// records a SyntaxError covering the skipped span.
//
// "Panic-mode" is the compiler-construction term for this error-recovery
// strategy; it has nothing to do with Go's panic/recover builtins, which
// this method does not use.
func (s *Session) Recover(rule Rule, expectedTokens []lexis.TokenKind, expectedRules []Rule) ErrorRef {
	rs := s.grammar.recoveryFor(rule)
	start := s.site

	for {
		k := s.Token(0)
		if k == s.grammar.TokenGrammar.EOI() {
			break
		}
		if rs.stops(k) {
			break
		}
		if closeKind, ok := rs.closeFor(k); ok {
			s.skipBalanced(k, closeKind)
			continue
		}
		s.Advance()
	}

	return s.Failure(SyntaxError{
		Rule:           rule,
		Span:           lexis.Span{Start: start, End: s.site},
		ExpectedTokens: expectedTokens,
		ExpectedRules:  expectedRules,
	})
}

func (s *Session) skipBalanced(open, close lexis.TokenKind) {
	depth := 0
	for {
		k := s.Token(0)
		if k == s.grammar.TokenGrammar.EOI() {
			return
		}
		s.Advance()
		switch k {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return
			}
		}
	}
}
